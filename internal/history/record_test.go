package history

import (
	"strings"
	"testing"

	"github.com/inkflow/inkflow/internal/core"
)

func TestDeriveTitlePrefersOutline(t *testing.T) {
	t.Parallel()
	got := DeriveTitle(core.Outline{Title: "Approved Title"}, "# Markdown Title\n\nbody", "raw topic")
	if got != "Approved Title" {
		t.Errorf("expected outline title, got %q", got)
	}
}

func TestDeriveTitleFallsBackToHeading(t *testing.T) {
	t.Parallel()
	got := DeriveTitle(core.Outline{}, "# Markdown Title\n\nbody", "raw topic")
	if got != "Markdown Title" {
		t.Errorf("expected markdown H1, got %q", got)
	}
}

func TestDeriveTitleFallsBackToTopic(t *testing.T) {
	t.Parallel()
	if got := DeriveTitle(core.Outline{}, "no headings here", "raw topic"); got != "raw topic" {
		t.Errorf("expected topic, got %q", got)
	}

	long := strings.Repeat("a", 80)
	got := DeriveTitle(core.Outline{}, "", long)
	if len([]rune(got)) != maxDerivedTitleLen+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("long topic should be truncated with ellipsis, got %q", got)
	}
}

func TestSummarizeCountsStructure(t *testing.T) {
	t.Parallel()
	markdown := `# Title

intro ![diagram](a.png)

## Section One

` + "```go\nfunc main() {}\n```" + `

## Section Two

![chart](b.png) and ![photo](c.png)

## Section Three

text
`
	stats := Summarize(markdown)
	if stats.Sections != 3 {
		t.Errorf("expected 3 sections, got %d", stats.Sections)
	}
	if stats.Images != 3 {
		t.Errorf("expected 3 images, got %d", stats.Images)
	}
	if stats.CodeBlocks != 1 {
		t.Errorf("expected 1 code block, got %d", stats.CodeBlocks)
	}
}

func TestSummarizeEmptyMarkdown(t *testing.T) {
	t.Parallel()
	if stats := Summarize(""); stats != (ContentStats{}) {
		t.Errorf("empty markdown should produce zero stats, got %+v", stats)
	}
}

func TestNewRecordAssembles(t *testing.T) {
	t.Parallel()
	req := core.GenerationRequest{
		Topic:        "Go generics in practice",
		ArticleType:  core.ArticleTypeBlog,
		TargetLength: core.LengthMedium,
	}
	outline := core.Outline{Title: "Go Generics", SectionTitles: []string{"Basics", "Constraints"}}
	artifact := core.Artifact{ArtifactID: "art-1", Markdown: "# Go Generics\n\n## Basics\n\n## Constraints\n"}

	rec := NewRecord("rec-1", req, "task-1", core.StatusCompleted, outline, artifact)
	if rec.Title != "Go Generics" {
		t.Errorf("title: %q", rec.Title)
	}
	if rec.Stats.Sections != 2 {
		t.Errorf("sections: %d", rec.Stats.Sections)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestSearchRanksTitleMatches(t *testing.T) {
	t.Parallel()
	records := []Record{
		{ID: "1", Title: "Kubernetes networking deep dive"},
		{ID: "2", Title: "Intro to Go modules"},
		{ID: "3", Topic: "kubernetes storage basics"},
	}

	got := Search(records, "kuber")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	for _, r := range got {
		if r.ID == "2" {
			t.Error("unrelated record matched")
		}
	}

	if got := Search(records, ""); len(got) != 3 {
		t.Errorf("empty query should pass everything through, got %d", len(got))
	}
}
