// Package social simulates the posting backend. It enforces global and
// per-user rate limits the way the real API would and hands back post ids.
package social

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"taap-agent-system/models"
)

// RateLimitError reports an exhausted posting quota.
type RateLimitError struct {
	Scope string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded", e.Scope)
}

const (
	globalWindowLimit  = 100
	perUserWindowLimit = 10
	limitWindow        = time.Hour
)

type windowQuota struct {
	remaining int
	resetAt   time.Time
}

// Tweet is one published post with its engagement counters.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Media     []string  `json:"media"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TwitterAPI is the in-memory posting backend.
type TwitterAPI struct {
	mu         sync.Mutex
	tweets     map[string]Tweet
	global     windowQuota
	userQuotas map[string]windowQuota
	postDelay  time.Duration
}

// NewTwitterAPI returns a backend with fresh rate-limit windows.
func NewTwitterAPI() *TwitterAPI {
	return &TwitterAPI{
		tweets:     make(map[string]Tweet),
		global:     windowQuota{remaining: globalWindowLimit, resetAt: time.Now().Add(limitWindow)},
		userQuotas: make(map[string]windowQuota),
		postDelay:  100 * time.Millisecond,
	}
}

// Post publishes a single post on behalf of userAddress and returns the
// post id. It fails with a RateLimitError when either quota is exhausted
// and a validation error for empty content.
func (t *TwitterAPI) Post(ctx context.Context, post models.Post, userAddress string) (string, error) {
	if post.Text == "" {
		return "", fmt.Errorf("invalid tweet content")
	}
	if err := t.consumeQuota(userAddress); err != nil {
		return "", err
	}

	// Simulate network latency.
	select {
	case <-time.After(t.postDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	tweet := Tweet{
		ID:        fmt.Sprintf("tweet_%s", uuid.NewString()),
		Text:      post.Text,
		Media:     post.Media,
		CreatedAt: time.Now(),
	}
	t.mu.Lock()
	t.tweets[tweet.ID] = tweet
	t.mu.Unlock()
	return tweet.ID, nil
}

// PostThread publishes posts sequentially, each replying to the previous
// one, and returns the post ids in order.
func (t *TwitterAPI) PostThread(ctx context.Context, posts []models.Post, userAddress string) ([]string, error) {
	if len(posts) == 0 {
		return nil, fmt.Errorf("invalid thread content")
	}

	ids := make([]string, 0, len(posts))
	replyTo := ""
	for _, post := range posts {
		id, err := t.Post(ctx, post, userAddress)
		if err != nil {
			return ids, err
		}
		if replyTo != "" {
			t.mu.Lock()
			tweet := t.tweets[id]
			tweet.ReplyTo = replyTo
			t.tweets[id] = tweet
			t.mu.Unlock()
		}
		ids = append(ids, id)
		replyTo = id
	}
	return ids, nil
}

// Schedule validates the scheduled time and publishes the post.
func (t *TwitterAPI) Schedule(ctx context.Context, post models.Post, userAddress string) (string, error) {
	if post.ScheduledAt.IsZero() || !post.ScheduledAt.After(time.Now()) {
		return "", fmt.Errorf("invalid scheduled time")
	}
	return t.Post(ctx, post, userAddress)
}

// Lookup returns a published tweet by id.
func (t *TwitterAPI) Lookup(id string) (Tweet, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tweet, ok := t.tweets[id]
	return tweet, ok
}

func (t *TwitterAPI) consumeQuota(userAddress string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.global.remaining <= 0 {
		if now.Before(t.global.resetAt) {
			return &RateLimitError{Scope: "global"}
		}
		t.global = windowQuota{remaining: globalWindowLimit, resetAt: now.Add(limitWindow)}
	}

	if userAddress != "" {
		quota, ok := t.userQuotas[userAddress]
		if !ok {
			quota = windowQuota{remaining: perUserWindowLimit, resetAt: now.Add(limitWindow)}
		}
		if quota.remaining <= 0 {
			if now.Before(quota.resetAt) {
				return &RateLimitError{Scope: "user"}
			}
			quota = windowQuota{remaining: perUserWindowLimit, resetAt: now.Add(limitWindow)}
		}
		quota.remaining--
		t.userQuotas[userAddress] = quota
	}

	t.global.remaining--
	return nil
}
