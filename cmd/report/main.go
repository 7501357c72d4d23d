// Command report uploads a data file to an analysis backend and prints the
// resulting report to stdout. Useful for smoke-testing a backend without the
// web UI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"datalens/domain/dataset"
	"datalens/internal/transfer"
	"datalens/ports"
)

var (
	flagBackend string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Upload a dataset and print its analysis report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.Flags().StringVar(&flagBackend, "backend", "http://localhost:9000", "analysis backend base URL")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "upload timeout")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&flagBackend, "backend", "http://localhost:9000", "analysis backend base URL")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "request timeout")
}

func runReport(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	client := transfer.NewClient(flagBackend, transfer.WithTimeouts(flagTimeout, flagTimeout))
	res, err := client.Upload(context.Background(), filepath.Base(path), f)
	if err != nil {
		return err
	}

	fmt.Printf("file_id: %s\n", res.FileID)
	fmt.Printf("columns: %v\n", res.Columns)
	if res.Analysis == nil {
		fmt.Println("no analysis returned")
		return nil
	}
	return printJSON(res.Analysis)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file_id> <operation>",
	Short: "Run one analysis operation against an already uploaded file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := transfer.NewClient(flagBackend, transfer.WithTimeouts(flagTimeout, flagTimeout))
		raw, err := client.Analyze(context.Background(), ports.AnalyzeRequest{
			Operation: ports.Operation(args[1]),
			FileID:    args[0],
		})
		if err != nil {
			return err
		}
		var out interface{}
		if err := dataset.DecodeResult(raw, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
