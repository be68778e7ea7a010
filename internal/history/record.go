// Package history persists finished generations so past articles can be
// listed, searched, re-rendered, and copied without the service.
package history

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/inkflow/inkflow/internal/core"
)

// Record is one persisted generation.
type Record struct {
	ID          string
	TaskID      string
	Topic       string
	Title       string
	ArticleType core.ArticleType
	Status      core.SessionStatus
	Markdown    string
	Outline     core.Outline
	Stats       ContentStats
	CreatedAt   time.Time
}

// ContentStats summarizes the generated markdown for list views.
type ContentStats struct {
	Sections   int `json:"sections"`
	Images     int `json:"images"`
	CodeBlocks int `json:"code_blocks"`
}

// maxDerivedTitleLen bounds titles derived from the raw topic.
const maxDerivedTitleLen = 50

// DeriveTitle picks the display title for a record: the approved outline
// title when present, otherwise the first H1 of the markdown, otherwise
// the topic itself, truncated.
func DeriveTitle(outline core.Outline, markdown, topic string) string {
	if t := strings.TrimSpace(outline.Title); t != "" {
		return t
	}
	if t := firstHeading(markdown); t != "" {
		return t
	}
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) <= maxDerivedTitleLen {
		return topic
	}
	runes := []rune(topic)
	return string(runes[:maxDerivedTitleLen]) + "..."
}

// Summarize parses the markdown and counts the structural elements shown
// in history listings. Sections are level-2 headings; an article is its
// H2s, not its H1 title.
func Summarize(markdown string) ContentStats {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var stats ContentStats
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 2 {
				stats.Sections++
			}
		case *ast.Image:
			stats.Images++
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			stats.CodeBlocks++
		}
		return ast.WalkContinue, nil
	})
	return stats
}

// firstHeading returns the text of the first level-1 heading, if any.
func firstHeading(markdown string) string {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			var sb strings.Builder
			for c := h.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(src))
				}
			}
			title = strings.TrimSpace(sb.String())
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// NewRecord assembles a record from a resolved session.
func NewRecord(id string, req core.GenerationRequest, taskID string, status core.SessionStatus, outline core.Outline, artifact core.Artifact) Record {
	return Record{
		ID:          id,
		TaskID:      taskID,
		Topic:       req.Topic,
		Title:       DeriveTitle(outline, artifact.Markdown, req.Topic),
		ArticleType: req.ArticleType,
		Status:      status,
		Markdown:    artifact.Markdown,
		Outline:     outline,
		Stats:       Summarize(artifact.Markdown),
		CreatedAt:   time.Now().UTC(),
	}
}
