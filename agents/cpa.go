package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"taap-agent-system/analytics"
	"taap-agent-system/models"
	"taap-agent-system/retry"
	"taap-agent-system/security"
)

// restrictedTerms is the fixed review blocklist, matched case-insensitively
// across every text fragment.
var restrictedTerms = []string{"adult", "nsfw", "hate", "manipulation", "fake"}

// ContentStore is the content-addressed storage the CPA publishes through.
type ContentStore interface {
	Put(ctx context.Context, content models.Content) (string, error)
	Get(ctx context.Context, cid string) (models.Content, error)
}

// Poster is the social posting backend.
type Poster interface {
	Post(ctx context.Context, post models.Post, userAddress string) (string, error)
	PostThread(ctx context.Context, posts []models.Post, userAddress string) ([]string, error)
}

// PublishReceipt reports a completed (or resumed) publish.
type PublishReceipt struct {
	PostIDs    []string
	ContentID  string
	Completion *models.AgentMessage
}

// publishRecord tracks stored content so an interrupted publish can resume
// from the stored identifier without regenerating content.
type publishRecord struct {
	contentID string
	postIDs   []string
}

// CPA is the Content Processing Agent. It generates, reviews, and publishes
// content for an order, advancing its state through the OPA.
type CPA struct {
	opa       *OPA
	store     ContentStore
	poster    Poster
	tracker   *analytics.Tracker
	signer    *security.Signer
	log       *zap.Logger
	retryOpts []retry.Option

	mu        sync.Mutex
	cache     map[string]models.Content
	published map[string]*publishRecord
}

// NewCPA wires a content processing agent from its collaborators.
func NewCPA(opa *OPA, store ContentStore, poster Poster, tracker *analytics.Tracker, signer *security.Signer, log *zap.Logger, retryOpts ...retry.Option) *CPA {
	return &CPA{
		opa:       opa,
		store:     store,
		poster:    poster,
		tracker:   tracker,
		signer:    signer,
		log:       log,
		retryOpts: retryOpts,
		cache:     make(map[string]models.Content),
		published: make(map[string]*publishRecord),
	}
}

// GenerateContent verifies the inbound order acknowledgement, synthesizes
// content for the order's service shape under the content-generation stage
// policy, validates it against the content rules, caches it, and advances
// the order to CONTENT_REVIEW. A generation whose output violates the rules
// is retried within the stage budget; a different generation may satisfy
// them.
func (c *CPA) GenerateContent(ctx context.Context, orderID string, ack *models.AgentMessage) (models.Content, error) {
	order, err := c.opa.GetOrder(orderID)
	if err != nil {
		return models.Content{}, err
	}
	if !c.signer.Verify(security.AgentOPA, ack) {
		return models.Content{}, models.NewFormatError("order acknowledgement is unsigned or tampered")
	}

	if _, _, err := c.opa.UpdateStatus(order.ID, models.StateContentGeneration); err != nil {
		return models.Content{}, err
	}

	var content models.Content
	exec := retry.New(retry.StageContentGeneration, c.retryOpts...)
	err = exec.Execute(ctx, func(ctx context.Context) error {
		generated, err := c.synthesize(ctx, order)
		if err != nil {
			return err
		}
		if err := models.ValidateContent(generated); err != nil {
			return err
		}
		content = generated
		return nil
	})
	if err != nil {
		return models.Content{}, err
	}

	c.mu.Lock()
	c.cache[order.ID] = content
	c.mu.Unlock()

	if _, _, err := c.opa.UpdateStatus(order.ID, models.StateContentReview); err != nil {
		return models.Content{}, err
	}
	c.log.Info("content generated",
		zap.String("order_id", order.ID),
		zap.Int("posts", len(content.Posts)))
	return content, nil
}

// ReviewContent screens the cached content for restricted terms and
// advances the order to PUBLISHING on a clean pass. Review cannot fabricate
// content: a missing cache entry is fatal.
func (c *CPA) ReviewContent(ctx context.Context, orderID string) error {
	c.mu.Lock()
	content, ok := c.cache[orderID]
	c.mu.Unlock()
	if !ok {
		return models.NewContentRejection("content not found for review: %s", orderID)
	}

	for _, post := range content.Posts {
		lowered := strings.ToLower(post.Text)
		for _, term := range restrictedTerms {
			if strings.Contains(lowered, term) {
				return models.NewContentRejection("content contains restricted term: %s", term)
			}
		}
	}

	if _, _, err := c.opa.UpdateStatus(orderID, models.StatePublishing); err != nil {
		return err
	}
	c.log.Info("content approved", zap.String("order_id", orderID))
	return nil
}

// PublishContent stores the content, submits it to the posting backend
// under the publishing stage policy, records analytics, and completes the
// order. When posting fails after the content was already stored, the order
// moves to PARTIAL_COMPLETION instead of ERROR: a later call resumes from
// the stored content identifier without regenerating content.
func (c *CPA) PublishContent(ctx context.Context, orderID string) (*PublishReceipt, error) {
	order, err := c.opa.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	content, err := c.contentFor(ctx, order)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	record := c.published[order.ID]
	c.mu.Unlock()
	if record == nil {
		cid, err := c.store.Put(ctx, content)
		if err != nil {
			return nil, models.NewPublishError(err)
		}
		record = &publishRecord{contentID: cid}
		c.mu.Lock()
		c.published[order.ID] = record
		c.mu.Unlock()
		c.log.Info("content stored",
			zap.String("order_id", order.ID),
			zap.String("content_id", cid))
	}

	var postIDs []string
	exec := retry.New(retry.StagePublishing, c.retryOpts...)
	err = exec.Execute(ctx, func(ctx context.Context) error {
		ids, err := c.post(ctx, order, content)
		if err != nil {
			return models.NewPublishError(err)
		}
		postIDs = ids
		return nil
	})
	if err != nil {
		// The content identifier survives, so a later attempt can resume.
		if _, _, perr := c.opa.UpdateStatus(order.ID, models.StatePartialCompletion); perr != nil {
			c.log.Error("failed to mark partial completion",
				zap.String("order_id", order.ID), zap.Error(perr))
		}
		c.log.Warn("publishing incomplete, order preserved for resume",
			zap.String("order_id", order.ID),
			zap.String("content_id", record.contentID),
			zap.Error(err))
		return nil, err
	}

	record.postIDs = postIDs
	if err := c.tracker.RecordPublish(order, postIDs, record.contentID); err != nil {
		// Analytics is fire-and-forget; the pipeline outcome stands.
		c.log.Error("failed to record analytics",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	if _, _, err := c.opa.UpdateStatus(order.ID, models.StateCompleted); err != nil {
		return nil, err
	}

	completion := models.NewAgentMessage(models.MessageCompletion, order.ID, strings.Join(postIDs, ","))
	if _, err := c.signer.Sign(security.AgentCPA, completion); err != nil {
		return nil, fmt.Errorf("failed to sign completion message: %w", err)
	}

	c.log.Info("content published",
		zap.String("order_id", order.ID),
		zap.Strings("post_ids", postIDs))
	return &PublishReceipt{PostIDs: postIDs, ContentID: record.contentID, Completion: completion}, nil
}

// contentFor resolves the content to publish. A fresh publish reads the
// generation cache; a resume from PARTIAL_COMPLETION re-enters PUBLISHING
// and retrieves the previously stored content by its identifier.
func (c *CPA) contentFor(ctx context.Context, order *models.Order) (models.Content, error) {
	if order.State == models.StatePartialCompletion {
		c.mu.Lock()
		record := c.published[order.ID]
		c.mu.Unlock()
		if record == nil {
			return models.Content{}, models.NewContentRejection("no stored content to resume for %s", order.ID)
		}
		content, err := c.store.Get(ctx, record.contentID)
		if err != nil {
			return models.Content{}, models.NewPublishError(err)
		}
		if _, _, err := c.opa.UpdateStatus(order.ID, models.StatePublishing); err != nil {
			return models.Content{}, err
		}
		c.log.Info("resuming publish from stored content",
			zap.String("order_id", order.ID),
			zap.String("content_id", record.contentID))
		return content, nil
	}

	c.mu.Lock()
	content, ok := c.cache[order.ID]
	c.mu.Unlock()
	if !ok {
		return models.Content{}, models.NewContentRejection("content not found for publishing: %s", order.ID)
	}
	return content, nil
}

// post submits the content through the backend: a single post for S1, a
// thread for the S2 series, and one dated post per campaign day for S3.
func (c *CPA) post(ctx context.Context, order *models.Order, content models.Content) ([]string, error) {
	switch order.ServiceCode {
	case models.ServiceSeries:
		return c.poster.PostThread(ctx, content.Posts, order.PayerAddress)
	default:
		ids := make([]string, 0, len(content.Posts))
		for _, post := range content.Posts {
			id, err := c.poster.Post(ctx, post, order.PayerAddress)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
}

// synthesize produces the order's content shape: a single text for S1,
// three sequential parts for S2, five dated posts for S3.
func (c *CPA) synthesize(ctx context.Context, order *models.Order) (models.Content, error) {
	// Simulate generation latency.
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return models.Content{}, ctx.Err()
	}

	content := models.Content{OrderID: order.ID}
	switch order.ServiceCode {
	case models.ServiceSinglePost:
		content.Posts = []models.Post{
			{Text: composePost(fmt.Sprintf("Exciting news! %s", order.Requirement), "#adtech #promotion #innovation")},
		}
	case models.ServiceSeries:
		content.Posts = []models.Post{
			{Text: composePost(fmt.Sprintf("Part 1: Introduction to %s", order.Requirement), "#adtech #promotion")},
			{Text: composePost(fmt.Sprintf("Part 2: Features of %s", order.Requirement), "#innovation #technology")},
			{Text: composePost(fmt.Sprintf("Part 3: Benefits of %s", order.Requirement), "#business #growth")},
		}
	case models.ServiceCampaign:
		now := time.Now()
		for day := 1; day <= 5; day++ {
			content.Posts = append(content.Posts, models.Post{
				Text:        composePost(fmt.Sprintf("Campaign Day %d: %s", day, order.Requirement), "#adtech #promotion #campaign"),
				ScheduledAt: now.Add(time.Duration(day-1) * 24 * time.Hour),
			})
		}
	default:
		return models.Content{}, models.NewFormatError("invalid service code: %s", order.ServiceCode)
	}
	return content, nil
}

// postFiller pads short bodies up to the minimum fragment length.
const postFiller = " Discover what this means for your audience and why it matters for your brand today."

// composePost assembles body plus hashtags into a fragment that fits the
// 180-240 character window, padding short bodies and trimming long ones.
func composePost(body, hashtags string) string {
	suffix := " " + hashtags
	for utf8.RuneCountInString(body)+utf8.RuneCountInString(suffix) < models.MinPostLength {
		body += postFiller
	}
	if max := models.MaxPostLength - utf8.RuneCountInString(suffix); utf8.RuneCountInString(body) > max {
		runes := []rune(body)
		body = strings.TrimRight(string(runes[:max]), " ")
	}
	return body + suffix
}
