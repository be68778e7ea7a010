package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ArticleType selects the flavor of content the pipeline produces.
type ArticleType string

const (
	// ArticleTypeBlog is a long-form article.
	ArticleTypeBlog ArticleType = "blog"

	// ArticleTypeSocial is a short-form social post.
	ArticleTypeSocial ArticleType = "social"
)

// Valid checks if the article type is defined.
func (t ArticleType) Valid() bool {
	return t == ArticleTypeBlog || t == ArticleTypeSocial
}

// String returns the string representation of the article type.
func (t ArticleType) String() string {
	return string(t)
}

// ParseArticleType converts a string to an ArticleType with validation.
func ParseArticleType(s string) (ArticleType, error) {
	t := ArticleType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid article type: %s", s)
	}
	return t, nil
}

// TargetLength selects how long the generated article should be.
type TargetLength string

const (
	LengthMini   TargetLength = "mini"
	LengthShort  TargetLength = "short"
	LengthMedium TargetLength = "medium"
	LengthLong   TargetLength = "long"
	LengthCustom TargetLength = "custom"
)

// Valid checks if the target length is defined.
func (l TargetLength) Valid() bool {
	switch l {
	case LengthMini, LengthShort, LengthMedium, LengthLong, LengthCustom:
		return true
	default:
		return false
	}
}

// String returns the string representation of the target length.
func (l TargetLength) String() string {
	return string(l)
}

// ParseTargetLength converts a string to a TargetLength with validation.
func ParseTargetLength(s string) (TargetLength, error) {
	l := TargetLength(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid target length: %s", s)
	}
	return l, nil
}

// GenerationRequest is the inbound request sent to the pipeline service to
// open a generation stream.
type GenerationRequest struct {
	Topic        string       `json:"topic"`
	ArticleType  ArticleType  `json:"article_type"`
	TargetLength TargetLength `json:"article_length"`
}

// Validate checks the request before it is sent.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrValidation(CodeEmptyTopic, "topic must not be empty")
	}
	if utf8.RuneCountInString(r.Topic) > MaxTopicLength {
		return ErrValidation(CodeTopicTooLong,
			fmt.Sprintf("topic exceeds %d characters", MaxTopicLength))
	}
	if !r.ArticleType.Valid() {
		return ErrValidation(CodeInvalidArticleType, fmt.Sprintf("invalid article type %q", r.ArticleType))
	}
	if !r.TargetLength.Valid() {
		return ErrValidation(CodeInvalidTargetLength, fmt.Sprintf("invalid target length %q", r.TargetLength))
	}
	return nil
}
