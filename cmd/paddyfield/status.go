package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Query server status or a specific run",
	Long: `Queries the server for run status information.
If no run-id is provided, lists all runs.
If run-id is provided, shows detailed status for that run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		url := fmt.Sprintf("%s/api/v1/runs", serverURL)
		return listRuns(url)
	}
	runID := args[0]
	url := fmt.Sprintf("%s/api/v1/runs/%s/status", serverURL, runID)
	return getRunStatus(url, runID)
}

func listRuns(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var runs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("Found %d run(s):\n\n", len(runs))
	for _, run := range runs {
		fmt.Printf("Run ID: %s\n", run["id"])
		fmt.Printf("  State: %s\n", run["state"])
		fmt.Printf("  Objective: %s\n", run["objective"])
		if gens, ok := run["generations"].(float64); ok && gens > 0 {
			fmt.Printf("  Generations: %.0f\n", gens)
			fmt.Printf("  Best fitness: %.6f\n", run["bestFitness"])
		}
		if startRaw, ok := run["startTime"].(string); ok {
			if start, err := time.Parse(time.RFC3339Nano, startRaw); err == nil {
				fmt.Printf("  Started: %s\n", humanize.Time(start))
			}
		}
		fmt.Println()
	}

	return nil
}

func getRunStatus(url, runID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("run not found: %s", runID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Run: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Printf("Objective: %s\n", status["objective"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		fmt.Printf("  Type: %s\n", config["paddyType"])
		fmt.Printf("  Qmax: %v\n", config["qmax"])
		fmt.Printf("  Yield target: %v\n", config["yt"])
		fmt.Printf("  Radius factor: %v\n", config["r"])
		fmt.Printf("  Iterations: %v\n", config["iterations"])
		fmt.Printf("  Seed: %v\n", config["randSeed"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	if gens, ok := status["generations"].(float64); ok && gens > 0 {
		fmt.Printf("  Generations: %.0f\n", gens)
		fmt.Printf("  Best fitness: %.6f\n", status["bestFitness"])
		if values, ok := status["bestValues"].([]interface{}); ok {
			fmt.Printf("  Best values: %v\n", values)
		}
	}

	if elapsedRaw, ok := status["elapsed"].(float64); ok {
		elapsed := time.Duration(elapsedRaw * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if eps, ok := status["eps"].(float64); ok && eps > 0 {
		fmt.Printf("  Throughput: %.0f evaluations/sec\n", eps)
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
