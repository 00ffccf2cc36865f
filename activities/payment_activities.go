package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"taap-agent-system/agents"
)

// PaymentActivities contains all payment-related activities
type PaymentActivities struct {
	opa *agents.OPA
}

// NewPaymentActivities creates a new PaymentActivities instance
func NewPaymentActivities(opa *agents.OPA) *PaymentActivities {
	return &PaymentActivities{opa: opa}
}

// VerifyPayment verifies and locks payment for the order through its
// chain's provider, retried per the payment-verification stage policy.
// Insufficient funds fails immediately with a payment error.
func (p *PaymentActivities) VerifyPayment(ctx context.Context, orderID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Verifying payment", "order_id", orderID)

	activity.RecordHeartbeat(ctx, "verifying payment")

	if err := p.opa.VerifyPayment(ctx, orderID); err != nil {
		logger.Error("Payment verification failed", "order_id", orderID, "error", err)
		return err
	}

	logger.Info("Payment verified", "order_id", orderID)
	return nil
}
