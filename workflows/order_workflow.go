package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"taap-agent-system/activities"
	"taap-agent-system/models"
)

const (
	QueryState = "state"
)

// stageOptions returns activity options for one pipeline stage. Retries and
// backoff are owned by the stage executor inside the agents, so Temporal is
// limited to a single attempt per activity.
func stageOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// OrderWorkflow is the main workflow for processing one order command from
// raw text to a published post. It sequences OPA intake, payment
// verification, and the CPA content stages, and maps the outcome to a
// Result. Business failures force the order to ERROR (with a best-effort
// refund) and come back in the Result rather than failing the workflow.
func OrderWorkflow(ctx workflow.Context, commandText string) (models.Result, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderWorkflow started")

	state := models.WorkflowState{State: models.StateReceived}
	err := workflow.SetQueryHandler(ctx, QueryState, func() (models.WorkflowState, error) {
		return state, nil
	})
	if err != nil {
		return models.Result{}, err
	}

	var orderAct *activities.OrderActivities
	var contentAct *activities.ContentActivities

	// Step 1: Parse the order command
	parseCtx := workflow.WithActivityOptions(ctx, stageOptions(30*time.Second))
	var parsed activities.ParseResult
	if err := workflow.ExecuteActivity(parseCtx, orderAct.ParseOrderCommand, commandText).Get(ctx, &parsed); err != nil {
		logger.Error("Order command rejected", "error", err)
		return failureResult("", "", err), nil
	}
	orderID := parsed.Order.ID
	state.OrderID = orderID
	logger.Info("Order created", "order_id", orderID)

	// Step 2: Verify payment (child workflow)
	childOptions := workflow.ChildWorkflowOptions{
		WorkflowID:               "payment-" + orderID,
		WorkflowExecutionTimeout: 10 * time.Minute,
	}
	childCtx := workflow.WithChildOptions(ctx, childOptions)
	if err := workflow.ExecuteChildWorkflow(childCtx, PaymentWorkflow, orderID).Get(ctx, nil); err != nil {
		logger.Error("Payment verification failed", "order_id", orderID, "error", err)
		return fail(ctx, orderID, err), nil
	}
	state.State = models.StatePaymentVerified
	state.PaymentDone = true
	logger.Info("Payment verified", "order_id", orderID)

	// Step 3: Generate content
	generateCtx := workflow.WithActivityOptions(ctx, stageOptions(16*time.Minute))
	genReq := activities.GenerateRequest{OrderID: orderID, Ack: parsed.Ack}
	if err := workflow.ExecuteActivity(generateCtx, contentAct.GenerateContent, genReq).Get(ctx, nil); err != nil {
		logger.Error("Content generation failed", "order_id", orderID, "error", err)
		return fail(ctx, orderID, err), nil
	}
	state.State = models.StateContentReview
	logger.Info("Content generated", "order_id", orderID)

	// Step 4: Review content
	reviewCtx := workflow.WithActivityOptions(ctx, stageOptions(11*time.Minute))
	if err := workflow.ExecuteActivity(reviewCtx, contentAct.ReviewContent, orderID).Get(ctx, nil); err != nil {
		logger.Error("Content review failed", "order_id", orderID, "error", err)
		return fail(ctx, orderID, err), nil
	}
	state.State = models.StatePublishing
	logger.Info("Content approved", "order_id", orderID)

	// Step 5: Publish, with a single resume attempt if the order was left
	// in PARTIAL_COMPLETION holding already-stored content
	publishCtx := workflow.WithActivityOptions(ctx, stageOptions(6*time.Minute))
	var published activities.PublishResult
	err = workflow.ExecuteActivity(publishCtx, contentAct.PublishContent, orderID).Get(ctx, &published)
	if err != nil {
		var current models.OrderState
		stateCtx := workflow.WithActivityOptions(ctx, stageOptions(10*time.Second))
		if qerr := workflow.ExecuteActivity(stateCtx, orderAct.OrderState, orderID).Get(ctx, &current); qerr == nil && current == models.StatePartialCompletion {
			state.State = models.StatePartialCompletion
			logger.Info("Publishing paused, resuming from stored content", "order_id", orderID)
			err = workflow.ExecuteActivity(publishCtx, contentAct.PublishContent, orderID).Get(ctx, &published)
		}
	}
	if err != nil {
		logger.Error("Publishing failed", "order_id", orderID, "error", err)
		return fail(ctx, orderID, err), nil
	}
	state.State = models.StateCompleted
	state.Published = true
	logger.Info("Content published", "order_id", orderID, "post_ids", published.PostIDs)

	// Step 6: Render the final status report
	status := statusReport(ctx, orderID)
	logger.Info("OrderWorkflow completed", "order_id", orderID)
	return models.Result{Success: true, OrderID: orderID, Status: status}, nil
}

// fail forces the order to ERROR (preserving PARTIAL_COMPLETION), attempts
// the best-effort refund, and builds the failure result.
func fail(ctx workflow.Context, orderID string, cause error) models.Result {
	var orderAct *activities.OrderActivities

	failCtx := workflow.WithActivityOptions(ctx, stageOptions(30*time.Second))
	if err := workflow.ExecuteActivity(failCtx, orderAct.FailOrder, orderID).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("Failed to mark order as errored", "order_id", orderID, "error", err)
	}
	return failureResult(orderID, statusReport(ctx, orderID), cause)
}

// statusReport fetches the order's rendered history, empty when the order
// cannot be read.
func statusReport(ctx workflow.Context, orderID string) string {
	var orderAct *activities.OrderActivities

	reportCtx := workflow.WithActivityOptions(ctx, stageOptions(10*time.Second))
	var status string
	if err := workflow.ExecuteActivity(reportCtx, orderAct.StatusReport, orderID).Get(ctx, &status); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to render status report", "order_id", orderID, "error", err)
		return ""
	}
	return status
}

// failureResult maps an error onto the externally reported result shape.
// Activity errors cross the wire as flattened messages, so the protocol
// code is recovered from the message text.
func failureResult(orderID, status string, err error) models.Result {
	return models.Result{
		Success: false,
		OrderID: orderID,
		Status:  status,
		Error: &models.ErrorInfo{
			Code:    errorCode(err),
			Message: err.Error(),
		},
	}
}

func errorCode(err error) models.ErrorCode {
	msg := err.Error()
	for _, code := range []models.ErrorCode{
		models.CodeRateLimited,
		models.CodePaymentFailed,
		models.CodeContentGeneration,
		models.CodePublishingFailed,
	} {
		if strings.Contains(msg, string(code)) {
			return code
		}
	}
	return models.CodeInvalidFormat
}
