package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"taap-agent-system/agents"
	"taap-agent-system/models"
)

// ContentActivities contains the content generation, review, and publishing
// activities
type ContentActivities struct {
	cpa *agents.CPA
}

// NewContentActivities creates a new ContentActivities instance
func NewContentActivities(cpa *agents.CPA) *ContentActivities {
	return &ContentActivities{cpa: cpa}
}

// GenerateRequest carries the order and its signed acknowledgement into
// content generation
type GenerateRequest struct {
	OrderID string               `json:"order_id"`
	Ack     *models.AgentMessage `json:"ack"`
}

// PublishResult reports the identifiers of a completed publish
type PublishResult struct {
	PostIDs   []string `json:"post_ids"`
	ContentID string   `json:"content_id"`
}

// GenerateContent synthesizes and validates content for the order
func (c *ContentActivities) GenerateContent(ctx context.Context, req GenerateRequest) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating content", "order_id", req.OrderID)

	activity.RecordHeartbeat(ctx, "generating content")

	if _, err := c.cpa.GenerateContent(ctx, req.OrderID, req.Ack); err != nil {
		logger.Error("Content generation failed", "order_id", req.OrderID, "error", err)
		return err
	}

	logger.Info("Content generated", "order_id", req.OrderID)
	return nil
}

// ReviewContent screens the generated content for restricted terms
func (c *ContentActivities) ReviewContent(ctx context.Context, orderID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Reviewing content", "order_id", orderID)

	if err := c.cpa.ReviewContent(ctx, orderID); err != nil {
		logger.Error("Content review failed", "order_id", orderID, "error", err)
		return err
	}

	logger.Info("Content approved", "order_id", orderID)
	return nil
}

// PublishContent stores and posts the content, recording analytics. On a
// posting failure the order remains in PARTIAL_COMPLETION for resume.
func (c *ContentActivities) PublishContent(ctx context.Context, orderID string) (*PublishResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Publishing content", "order_id", orderID)

	activity.RecordHeartbeat(ctx, "publishing content")

	receipt, err := c.cpa.PublishContent(ctx, orderID)
	if err != nil {
		logger.Error("Publishing failed", "order_id", orderID, "error", err)
		return nil, err
	}

	logger.Info("Content published", "order_id", orderID, "post_ids", receipt.PostIDs)
	return &PublishResult{PostIDs: receipt.PostIDs, ContentID: receipt.ContentID}, nil
}
