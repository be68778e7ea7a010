package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkflow/inkflow/internal/config"
	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/history"
)

func TestRootCmdStructure(t *testing.T) {
	assert.Equal(t, "inkflow", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	expected := []string{"generate <topic>", "history", "serve", "doctor", "version"}
	for _, use := range expected {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Use == use {
				found = true
				break
			}
		}
		assert.True(t, found, "command %q not registered", use)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	versionCmd.Run(versionCmd, []string{})

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "inkflow v1.2.3")
	assert.Contains(t, output, "abc123def")
	assert.Contains(t, output, "2026-01-15")

	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestBuildRequestDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generate.ArticleType = "blog"
	cfg.Generate.Length = "medium"

	req, err := buildRequest(cfg, "go concurrency patterns")
	require.NoError(t, err)
	assert.Equal(t, "go concurrency patterns", req.Topic)
	assert.Equal(t, core.ArticleTypeBlog, req.ArticleType)
	assert.Equal(t, core.LengthMedium, req.TargetLength)
}

func TestBuildRequestFlagOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generate.ArticleType = "blog"
	cfg.Generate.Length = "medium"

	genType = "social"
	genLength = "short"
	t.Cleanup(func() {
		genType = ""
		genLength = ""
	})

	req, err := buildRequest(cfg, "topic")
	require.NoError(t, err)
	assert.Equal(t, core.ArticleTypeSocial, req.ArticleType)
	assert.Equal(t, core.LengthShort, req.TargetLength)
}

func TestBuildRequestRejectsBadValues(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generate.ArticleType = "blog"
	cfg.Generate.Length = "medium"

	genType = "novel"
	t.Cleanup(func() { genType = "" })

	_, err := buildRequest(cfg, "topic")
	assert.Error(t, err)
}

func TestSummaryLine(t *testing.T) {
	rec := history.Record{
		Markdown: "# Title\n\nsome words here\n",
		Stats:    history.ContentStats{Sections: 3, Images: 1},
	}
	line := summaryLine(rec)
	assert.Contains(t, line, "3 sections")
	assert.Contains(t, line, "1 images")
	assert.NotContains(t, line, "code blocks")
	assert.Contains(t, line, "words")
}

func TestStyledRespectsNoColor(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })
	assert.Equal(t, "plain", styled(styleError, "plain"))
}

func TestHeadroomNote(t *testing.T) {
	assert.Empty(t, headroomNote(42))
	assert.NotEmpty(t, headroomNote(95))
}
