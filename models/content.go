package models

import (
	"regexp"
	"time"
	"unicode/utf8"
)

// Post is a single publishable text fragment
type Post struct {
	Text        string    `json:"text"`
	Media       []string  `json:"media,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// Content is the generated material for one order. A single post for S1,
// three sequential parts for S2, five dated posts for S3.
type Content struct {
	OrderID string `json:"order_id"`
	Posts   []Post `json:"posts"`
}

// Content rules applied per fragment regardless of service type.
const (
	MinPostLength  = 180
	MaxPostLength  = 240
	MinHashtags    = 2
	MaxHashtags    = 5
	MaxMentions    = 2
	MaxLinks       = 1
	MaxAttachments = 4
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	linkPattern    = regexp.MustCompile(`https?://\S+`)
)

// ValidateContent checks every fragment against the fixed content rules.
// A violation is a content-invalid condition; a fresh generation may
// satisfy the rules, so the synthesis stage is what gets retried.
func ValidateContent(content Content) error {
	if len(content.Posts) == 0 {
		return NewContentError("content has no posts")
	}
	for i, post := range content.Posts {
		if err := validatePost(post); err != nil {
			if len(content.Posts) > 1 {
				return NewContentError("post %d: %v", i+1, err)
			}
			return err
		}
	}
	return nil
}

func validatePost(post Post) error {
	length := utf8.RuneCountInString(post.Text)
	if length < MinPostLength || length > MaxPostLength {
		return NewContentError("text length must be between %d-%d characters, got %d", MinPostLength, MaxPostLength, length)
	}
	if n := len(hashtagPattern.FindAllString(post.Text, -1)); n < MinHashtags || n > MaxHashtags {
		return NewContentError("must include %d-%d hashtags, got %d", MinHashtags, MaxHashtags, n)
	}
	if n := len(mentionPattern.FindAllString(post.Text, -1)); n > MaxMentions {
		return NewContentError("maximum %d mentions allowed, got %d", MaxMentions, n)
	}
	if n := len(linkPattern.FindAllString(post.Text, -1)); n > MaxLinks {
		return NewContentError("maximum %d link allowed, got %d", MaxLinks, n)
	}
	if len(post.Media) > MaxAttachments {
		return NewContentError("maximum %d media attachments allowed, got %d", MaxAttachments, len(post.Media))
	}
	return nil
}
