package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the Millrun API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// GetStats fetches the combined pipeline statistics.
func (c *Client) GetStats() (*PipelineStats, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var stats struct {
		Execution struct {
			ActiveExecutions int `json:"active_executions"`
			QueuedSubtasks   int `json:"queued_subtasks"`
			MaxConcurrent    int `json:"max_concurrent"`
		} `json:"execution"`
		Evaluation struct {
			TotalEvaluations      int `json:"total_evaluations"`
			AverageScore          int `json:"average_score"`
			QueueSize             int `json:"queue_size"`
			EvaluationsInProgress int `json:"evaluations_in_progress"`
		} `json:"evaluation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	return &PipelineStats{
		ActiveExecutions:      stats.Execution.ActiveExecutions,
		QueuedSubtasks:        stats.Execution.QueuedSubtasks,
		MaxConcurrent:         stats.Execution.MaxConcurrent,
		TotalEvaluations:      stats.Evaluation.TotalEvaluations,
		AverageScore:          stats.Evaluation.AverageScore,
		EvalQueueSize:         stats.Evaluation.QueueSize,
		EvaluationsInProgress: stats.Evaluation.EvaluationsInProgress,
	}, nil
}

// ListEvaluations fetches recent evaluations from the in-memory history.
func (c *Client) ListEvaluations(limit int) ([]EvalRow, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/evaluations?limit=" + strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var evals []struct {
		TaskID       string `json:"task_id"`
		OverallScore int    `json:"overall_score"`
		Confidence   int    `json:"confidence"`
		Feedback     string `json:"feedback"`
		Scores       struct {
			Completeness int `json:"completeness"`
			Quality      int `json:"quality"`
			Efficiency   int `json:"efficiency"`
			Innovation   int `json:"innovation"`
		} `json:"score_breakdown"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&evals); err != nil {
		return nil, err
	}

	rows := make([]EvalRow, len(evals))
	for i, e := range evals {
		rows[i] = EvalRow{
			TaskID:       e.TaskID,
			OverallScore: e.OverallScore,
			Completeness: e.Scores.Completeness,
			Quality:      e.Scores.Quality,
			Efficiency:   e.Scores.Efficiency,
			Innovation:   e.Scores.Innovation,
			Confidence:   e.Confidence,
			Feedback:     e.Feedback,
		}
	}
	return rows, nil
}

// QueueSubtask queues a subtask for scheduled execution and returns its ID.
func (c *Client) QueueSubtask(title, workType string) (string, error) {
	body := map[string]string{
		"title":     title,
		"work_type": workType,
	}
	resp, err := c.post("/subtasks", body)
	if err != nil {
		return "", err
	}

	var ack struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(resp, &ack); err != nil {
		return "", err
	}
	return ack.TaskID, nil
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	return body, nil
}

// CheckHealth checks if the daemon is healthy.
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}

	return health.Status == "ok", nil
}
