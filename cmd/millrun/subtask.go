package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var subtaskCmd = &cobra.Command{
	Use:   "subtask",
	Short: "Queue, execute, and inspect subtasks",
}

var subtaskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a subtask for scheduled execution",
	RunE:  runSubtaskAdd,
}

var subtaskExecCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute a subtask immediately, bypassing the concurrency cap",
	RunE:  runSubtaskExec,
}

var subtaskStatusCmd = &cobra.Command{
	Use:   "status [subtask-id]",
	Short: "Show a subtask's pipeline position",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubtaskStatus,
}

var subtaskStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scheduler statistics",
	RunE:  runSubtaskStats,
}

var (
	subtaskTitle  string
	subtaskDesc   string
	subtaskType   string
	subtaskEffort float64
)

func init() {
	subtaskCmd.AddCommand(subtaskAddCmd, subtaskExecCmd, subtaskStatusCmd, subtaskStatsCmd)

	for _, c := range []*cobra.Command{subtaskAddCmd, subtaskExecCmd} {
		c.Flags().StringVar(&subtaskTitle, "title", "", "Subtask title (required)")
		c.Flags().StringVar(&subtaskDesc, "desc", "", "Subtask description")
		c.Flags().StringVar(&subtaskType, "type", "generic", "Work type (research, code, analysis, communication, decision, generic)")
		c.Flags().Float64Var(&subtaskEffort, "effort", 0, "Estimated effort in hours")
		c.MarkFlagRequired("title")
	}
}

func subtaskBody() map[string]interface{} {
	return map[string]interface{}{
		"title":            subtaskTitle,
		"description":      subtaskDesc,
		"work_type":        subtaskType,
		"estimated_effort": subtaskEffort,
	}
}

func runSubtaskAdd(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/subtasks", subtaskBody())
	if err != nil {
		return err
	}

	var ack map[string]interface{}
	if err := json.Unmarshal(resp, &ack); err != nil {
		return err
	}

	fmt.Printf("Queued subtask: %s\n", ack["task_id"])
	fmt.Printf("%s\n", ack["message"])
	return nil
}

func runSubtaskExec(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/subtasks/execute", subtaskBody())
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Subtask:  %s\n", result["subtask_id"])
	fmt.Printf("Status:   %s\n", result["status"])
	if errMsg, ok := result["error"].(string); ok && errMsg != "" {
		fmt.Printf("Error:    %s\n", errMsg)
	}
	if eval, ok := result["evaluation"].(map[string]interface{}); ok {
		if overall, ok := eval["overall_score"].(float64); ok {
			fmt.Printf("Score:    %.0f/100\n", overall)
		}
		if feedback, ok := eval["feedback"].(string); ok && feedback != "" {
			fmt.Printf("Feedback: %s\n", truncate(feedback, 120))
		}
	}
	if artifacts, ok := result["artifacts"].([]interface{}); ok && len(artifacts) > 0 {
		fmt.Println("\nArtifacts:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tCONTENT")
		for _, raw := range artifacts {
			a, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				truncateID(stringField(a, "id")),
				stringField(a, "type"),
				truncate(stringField(a, "content"), 48))
		}
		w.Flush()
	}
	return nil
}

func runSubtaskStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/subtasks/" + args[0] + "/status")
	if err != nil {
		return err
	}

	var status map[string]interface{}
	if err := json.Unmarshal(resp, &status); err != nil {
		return err
	}

	fmt.Printf("Subtask:  %s\n", status["subtask_id"])
	fmt.Printf("State:    %s\n", status["state"])
	if progress, ok := status["progress"].(float64); ok {
		fmt.Printf("Progress: %.0f%%\n", progress)
	}
	return nil
}

func runSubtaskStats(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/stats")
	if err != nil {
		return err
	}

	var stats struct {
		Execution struct {
			ActiveExecutions int `json:"active_executions"`
			QueuedSubtasks   int `json:"queued_subtasks"`
			MaxConcurrent    int `json:"max_concurrent"`
		} `json:"execution"`
	}
	if err := json.Unmarshal(resp, &stats); err != nil {
		return err
	}

	fmt.Printf("Active:         %d / %d\n", stats.Execution.ActiveExecutions, stats.Execution.MaxConcurrent)
	fmt.Printf("Queued:         %d\n", stats.Execution.QueuedSubtasks)
	return nil
}

// --- Helpers ---

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
