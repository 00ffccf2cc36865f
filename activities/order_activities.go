package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"taap-agent-system/agents"
	"taap-agent-system/models"
)

// OrderActivities contains the order intake and lifecycle activities
type OrderActivities struct {
	opa *agents.OPA
}

// NewOrderActivities creates a new OrderActivities instance
func NewOrderActivities(opa *agents.OPA) *OrderActivities {
	return &OrderActivities{opa: opa}
}

// ParseResult carries the created order and its signed acknowledgement
type ParseResult struct {
	Order *models.Order        `json:"order"`
	Ack   *models.AgentMessage `json:"ack"`
}

// ParseOrderCommand parses raw command text into a new order
func (a *OrderActivities) ParseOrderCommand(ctx context.Context, text string) (*ParseResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Parsing order command")

	order, ack, err := a.opa.ParseOrderCommand(text)
	if err != nil {
		return nil, err
	}

	logger.Info("Order command parsed", "order_id", order.ID, "chain", order.Chain)
	return &ParseResult{Order: order, Ack: ack}, nil
}

// OrderState returns the order's current lifecycle state
func (a *OrderActivities) OrderState(ctx context.Context, orderID string) (models.OrderState, error) {
	order, err := a.opa.GetOrder(orderID)
	if err != nil {
		return "", err
	}
	return order.State, nil
}

// StatusReport renders the order's full state history
func (a *OrderActivities) StatusReport(ctx context.Context, orderID string) (string, error) {
	return a.opa.StatusReport(orderID)
}

// FailOrder forces the order to ERROR and attempts a best-effort refund.
// Orders resting in PARTIAL_COMPLETION are preserved for resume.
func (a *OrderActivities) FailOrder(ctx context.Context, orderID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Failing order", "order_id", orderID)

	a.opa.FailOrder(ctx, orderID)
	return nil
}
