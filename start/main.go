package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	probax "probax-client"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
)

var (
	homeID   string
	homeName string
	awayID   string
	awayName string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a one-shot match prediction workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := probax.MatchRequest{
			Home: &probax.TeamCandidate{ID: homeID, Name: homeName},
			Away: &probax.TeamCandidate{ID: awayID, Name: awayName},
		}
		if err := req.Validate(); err != nil {
			return err
		}

		logger := probax.NewLogger()
		probax.LoadConfig()

		c, err := client.Dial(probax.GetClientOptions(logger))
		if err != nil {
			return fmt.Errorf("unable to create Temporal client: %w", err)
		}
		defer c.Close()

		// Workflow ID is the timestamp of now()
		workflowID := fmt.Sprintf("predict-%s", time.Now().Format("20060102-150405"))
		options := client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: probax.TaskQueue(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		we, err := c.ExecuteWorkflow(ctx, options, probax.PredictMatchWorkflow, req)
		if err != nil {
			return fmt.Errorf("unable to execute workflow: %w", err)
		}
		log.Println("Started workflow", "WorkflowID", we.GetID(), "RunID", we.GetRunID())

		var result probax.EnrichedResult
		if err := we.Get(ctx, &result); err != nil {
			return fmt.Errorf("prediction failed: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.Flags().StringVar(&homeID, "home-id", "", "home team id")
	rootCmd.Flags().StringVar(&homeName, "home", "", "home team display name")
	rootCmd.Flags().StringVar(&awayID, "away-id", "", "away team id")
	rootCmd.Flags().StringVar(&awayName, "away", "", "away team display name")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the result")
	rootCmd.MarkFlagRequired("home")
	rootCmd.MarkFlagRequired("away")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
