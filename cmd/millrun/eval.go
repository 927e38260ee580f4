package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Inspect evaluations",
}

var evalHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent evaluations",
	RunE:  runEvalHistory,
}

var evalArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Show archived evaluations (persisted across restarts)",
	RunE:  runEvalArchive,
}

var evalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show evaluation engine statistics",
	RunE:  runEvalStats,
}

var (
	evalTaskID string
	evalLimit  int
)

func init() {
	evalCmd.AddCommand(evalHistoryCmd, evalArchiveCmd, evalStatsCmd)

	for _, c := range []*cobra.Command{evalHistoryCmd, evalArchiveCmd} {
		c.Flags().StringVar(&evalTaskID, "task", "", "Filter by task ID")
		c.Flags().IntVar(&evalLimit, "limit", 10, "Maximum number of evaluations")
	}
}

func runEvalHistory(cmd *cobra.Command, args []string) error {
	return printEvaluations("/evaluations")
}

func runEvalArchive(cmd *cobra.Command, args []string) error {
	return printEvaluations("/evaluations/archive")
}

func printEvaluations(path string) error {
	url := path + "?limit=" + strconv.Itoa(evalLimit)
	if evalTaskID != "" {
		url += "&task_id=" + evalTaskID
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
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
	if err := json.Unmarshal(resp, &evals); err != nil {
		return err
	}

	if len(evals) == 0 {
		fmt.Println("No evaluations found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tOVERALL\tCOMPL\tQUAL\tEFFIC\tINNOV\tCONF\tFEEDBACK")
	for _, e := range evals {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			truncateID(e.TaskID),
			e.OverallScore,
			e.Scores.Completeness,
			e.Scores.Quality,
			e.Scores.Efficiency,
			e.Scores.Innovation,
			e.Confidence,
			truncate(e.Feedback, 60))
	}
	w.Flush()
	return nil
}

func runEvalStats(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/evaluations/stats")
	if err != nil {
		return err
	}

	var stats struct {
		TotalEvaluations      int `json:"total_evaluations"`
		AverageScore          int `json:"average_score"`
		QueueSize             int `json:"queue_size"`
		EvaluationsInProgress int `json:"evaluations_in_progress"`
	}
	if err := json.Unmarshal(resp, &stats); err != nil {
		return err
	}

	fmt.Printf("Total evaluations: %d\n", stats.TotalEvaluations)
	fmt.Printf("Average score:     %d\n", stats.AverageScore)
	fmt.Printf("Queued:            %d\n", stats.QueueSize)
	fmt.Printf("In progress:       %d\n", stats.EvaluationsInProgress)
	return nil
}
