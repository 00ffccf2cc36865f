package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"taap-agent-system/models"
	"taap-agent-system/workflows"
)

const (
	TaskQueueName = "taap-order-queue"
)

func main() {
	// Command line flags
	command := flag.String("command", "", "Order command text, e.g. \"#aiads 0x... S1 Promote my product #adtech #promotion\"")
	workflowID := flag.String("workflow-id", "", "Workflow ID for query operations")
	query := flag.Bool("query", false, "Query workflow state instead of starting a new order")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	temporalAddress := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddress == "" {
		temporalAddress = "localhost:7233"
	}

	c, err := client.Dial(client.Options{HostPort: temporalAddress})
	if err != nil {
		logger.Fatal("Unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *query {
		if *workflowID == "" {
			logger.Fatal("Missing -workflow-id for query")
		}
		queryWorkflowState(ctx, logger, c, *workflowID)
		return
	}

	if *command == "" {
		logger.Fatal("Missing -command text")
	}
	runOrder(ctx, logger, c, *command)
}

func runOrder(ctx context.Context, logger *zap.Logger, c client.Client, command string) {
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("order-%s", uuid.NewString()),
		TaskQueue: TaskQueueName,
	}

	run, err := c.ExecuteWorkflow(ctx, options, workflows.OrderWorkflow, command)
	if err != nil {
		logger.Fatal("Unable to start workflow", zap.Error(err))
	}
	logger.Info("Started order workflow",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()))

	var result models.Result
	if err := run.Get(ctx, &result); err != nil {
		logger.Fatal("Workflow failed", zap.Error(err))
	}

	if result.Success {
		logger.Info("Order completed", zap.String("order_id", result.OrderID))
	} else {
		logger.Warn("Order failed",
			zap.String("order_id", result.OrderID),
			zap.String("code", string(result.Error.Code)),
			zap.String("message", result.Error.Message))
	}
	if result.Status != "" {
		fmt.Println(result.Status)
	}
}

func queryWorkflowState(ctx context.Context, logger *zap.Logger, c client.Client, workflowID string) {
	resp, err := c.QueryWorkflow(ctx, workflowID, "", workflows.QueryState)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			logger.Fatal("No workflow with that ID", zap.String("workflow_id", workflowID))
		}
		logger.Fatal("Failed to query workflow", zap.Error(err))
	}

	var state models.WorkflowState
	if err := resp.Get(&state); err != nil {
		logger.Fatal("Failed to decode query result", zap.Error(err))
	}

	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Fatal("Failed to marshal state", zap.Error(err))
	}
	fmt.Println(string(stateJSON))
}
