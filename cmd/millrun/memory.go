package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage knowledge-store items",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a memory item",
	RunE:  runMemoryAdd,
}

var memoryQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query memory items",
	RunE:  runMemoryQuery,
}

var (
	memContent  string
	memCategory string
	memQuery    string
)

func init() {
	memoryCmd.AddCommand(memoryAddCmd, memoryQueryCmd)

	memoryAddCmd.Flags().StringVar(&memContent, "content", "", "Memory content (required)")
	memoryAddCmd.Flags().StringVar(&memCategory, "category", "", "Item category")
	memoryAddCmd.MarkFlagRequired("content")

	memoryQueryCmd.Flags().StringVar(&memQuery, "q", "", "Search query")
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"content":  memContent,
		"category": memCategory,
	}

	resp, err := apiPost("/memory", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created memory item: %s\n", result["id"])
	return nil
}

func runMemoryQuery(cmd *cobra.Command, args []string) error {
	path := "/memory"
	if memQuery != "" {
		path += "?q=" + url.QueryEscape(memQuery)
	}

	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var items []struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(resp, &items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No memory items found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tCONTENT")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			truncateID(item.ID),
			item.Category,
			truncate(item.Content, 60))
	}
	w.Flush()
	return nil
}
