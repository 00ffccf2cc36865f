package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"taap-agent-system/activities"
)

const (
	PaymentWorkflowName = "PaymentWorkflow"
)

// PaymentWorkflow is a child workflow that verifies and locks payment for
// one order through its chain's provider.
func PaymentWorkflow(ctx workflow.Context, orderID string) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("PaymentWorkflow started", "order_id", orderID)

	// The payment-verification stage budget is 5 minutes; the activity
	// timeout leaves headroom for the final attempt to report back.
	ctx = workflow.WithActivityOptions(ctx, stageOptions(6*time.Minute))

	var paymentAct *activities.PaymentActivities
	if err := workflow.ExecuteActivity(ctx, paymentAct.VerifyPayment, orderID).Get(ctx, nil); err != nil {
		logger.Error("Payment verification failed", "order_id", orderID, "error", err)
		return fmt.Errorf("payment verification failed: %w", err)
	}

	logger.Info("PaymentWorkflow completed", "order_id", orderID)
	return nil
}
