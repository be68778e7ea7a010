package api

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inkflow/inkflow/internal/core"
)

// Scenario scripts the events the mock service emits for one generation.
// Scenarios live in YAML so failure modes (mid-stream errors, unknown
// stages, truncated runs) can be reproduced without code changes.
type Scenario struct {
	Steps []Step `yaml:"steps"`
}

// Step is one scripted event.
type Step struct {
	Kind    string `yaml:"kind"`
	Stage   string `yaml:"stage,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Outline is emitted as the payload of outline_ready steps. When
	// nil, the server synthesizes one from the request topic.
	Outline *OutlineSpec `yaml:"outline,omitempty"`

	// Markdown overrides the article emitted on the done step.
	Markdown string `yaml:"markdown,omitempty"`

	// Delay overrides the server's default pacing for this step.
	Delay Duration `yaml:"delay,omitempty"`
}

// OutlineSpec is the scenario-file shape of an outline.
type OutlineSpec struct {
	Title         string   `yaml:"title"`
	SectionTitles []string `yaml:"sections_titles"`
}

// toOutline converts the scenario shape to the wire type.
func (o OutlineSpec) toOutline() core.Outline {
	return core.Outline{Title: o.Title, SectionTitles: o.SectionTitles}
}

// Duration parses YAML scalars like "250ms" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &sc, nil
}

// DefaultScenario is a full happy-path run through the pipeline stages.
func DefaultScenario() *Scenario {
	return &Scenario{
		Steps: []Step{
			{Kind: "stage_start", Stage: "start", Message: "task accepted"},
			{Kind: "stage_start", Stage: "researcher", Message: "researching topic"},
			{Kind: "log", Stage: "search_service", Message: "running web searches"},
			{Kind: "stage_progress", Stage: "researcher", Message: "collected 12 sources"},
			{Kind: "outline_ready", Stage: "planner", Message: "outline ready for review"},
			{Kind: "stage_start", Stage: "writer", Message: "drafting sections"},
			{Kind: "stage_start", Stage: "coder", Message: "writing code examples"},
			{Kind: "stage_start", Stage: "artist", Message: "generating illustrations"},
			{Kind: "stage_start", Stage: "reviewer", Message: "reviewing draft"},
			{Kind: "stage_start", Stage: "assembler", Message: "assembling article"},
			{Kind: "done", Message: "generation complete"},
		},
	}
}

// synthesizeOutline builds an outline from the request when the scenario
// does not script one.
func synthesizeOutline(topic string) core.Outline {
	return core.Outline{
		Title: capitalize(topic),
		SectionTitles: []string{
			"Introduction",
			"Background",
			"Core Concepts",
			"Practical Examples",
			"Conclusion",
		},
	}
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// synthesizeMarkdown renders a plausible article from the final outline.
func synthesizeMarkdown(outline core.Outline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", outline.Title)
	sb.WriteString("![cover](https://example.com/cover.png)\n\n")
	for i, section := range outline.SectionTitles {
		fmt.Fprintf(&sb, "## %s\n\n", section)
		fmt.Fprintf(&sb, "Generated prose for %q goes here.\n\n", section)
		if i == len(outline.SectionTitles)/2 {
			sb.WriteString("```go\nfunc example() {\n\tfmt.Println(\"generated\")\n}\n```\n\n")
		}
	}
	return sb.String()
}
