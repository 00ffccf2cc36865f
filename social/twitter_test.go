package social

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taap-agent-system/models"
)

func newTestAPI() *TwitterAPI {
	api := NewTwitterAPI()
	api.postDelay = 0
	return api
}

func TestPostReturnsTweet(t *testing.T) {
	api := newTestAPI()

	post := models.Post{Text: "Hello decentralized world #adtech #promotion", Media: []string{"banner.png"}}
	id, err := api.Post(context.Background(), post, "0xabc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "tweet_"))

	tweet, ok := api.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, post.Text, tweet.Text)
	assert.Equal(t, post.Media, tweet.Media)
	assert.Empty(t, tweet.ReplyTo)
}

func TestPostRejectsEmptyContent(t *testing.T) {
	api := newTestAPI()

	_, err := api.Post(context.Background(), models.Post{}, "0xabc")
	assert.ErrorContains(t, err, "invalid tweet content")
}

func TestPostThreadChainsReplies(t *testing.T) {
	api := newTestAPI()

	posts := []models.Post{
		{Text: "Part one #adtech #promotion"},
		{Text: "Part two #adtech #promotion"},
		{Text: "Part three #adtech #promotion"},
	}
	ids, err := api.PostThread(context.Background(), posts, "0xabc")
	require.NoError(t, err)
	require.Len(t, ids, 3)

	first, _ := api.Lookup(ids[0])
	assert.Empty(t, first.ReplyTo)
	second, _ := api.Lookup(ids[1])
	assert.Equal(t, ids[0], second.ReplyTo)
	third, _ := api.Lookup(ids[2])
	assert.Equal(t, ids[1], third.ReplyTo)
}

func TestPostThreadEmpty(t *testing.T) {
	api := newTestAPI()

	_, err := api.PostThread(context.Background(), nil, "0xabc")
	assert.ErrorContains(t, err, "invalid thread content")
}

func TestPerUserRateLimit(t *testing.T) {
	api := newTestAPI()
	ctx := context.Background()
	post := models.Post{Text: "quota probe #adtech #promotion"}

	for i := 0; i < perUserWindowLimit; i++ {
		_, err := api.Post(ctx, post, "0xabc")
		require.NoError(t, err, "post %d inside quota", i+1)
	}

	_, err := api.Post(ctx, post, "0xabc")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "user", rateErr.Scope)

	// Another user still has quota.
	_, err = api.Post(ctx, post, "0xdef")
	assert.NoError(t, err)
}

func TestGlobalRateLimit(t *testing.T) {
	api := newTestAPI()
	api.global.remaining = 1
	ctx := context.Background()
	post := models.Post{Text: "quota probe #adtech #promotion"}

	_, err := api.Post(ctx, post, "0xabc")
	require.NoError(t, err)

	_, err = api.Post(ctx, post, "0xdef")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "global", rateErr.Scope)
}

func TestScheduleValidation(t *testing.T) {
	api := newTestAPI()
	ctx := context.Background()

	_, err := api.Schedule(ctx, models.Post{Text: "late post"}, "0xabc")
	assert.ErrorContains(t, err, "invalid scheduled time")

	_, err = api.Schedule(ctx, models.Post{Text: "late post", ScheduledAt: time.Now().Add(-time.Hour)}, "0xabc")
	assert.ErrorContains(t, err, "invalid scheduled time")

	id, err := api.Schedule(ctx, models.Post{Text: "late post", ScheduledAt: time.Now().Add(time.Hour)}, "0xabc")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestPostHonorsContext(t *testing.T) {
	api := NewTwitterAPI()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := api.Post(ctx, models.Post{Text: "never lands"}, "0xabc")
	assert.ErrorIs(t, err, context.Canceled)
}
