package session

import (
	"path/filepath"
	"testing"

	"github.com/inkflow/inkflow/internal/core"
)

func TestResumeRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "resume.json")

	st := ResumeState{
		TaskID:    "task-3",
		SessionID: "sess-3",
		Topic:     "quantized inference",
		Status:    core.StatusGenerating,
	}
	if err := SaveResume(path, st); err != nil {
		t.Fatalf("SaveResume: %v", err)
	}

	got, err := LoadResume(path)
	if err != nil {
		t.Fatalf("LoadResume: %v", err)
	}
	if got.TaskID != st.TaskID || got.Topic != st.Topic || got.Status != st.Status {
		t.Errorf("resume state mangled: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped on save")
	}

	if err := ClearResume(path); err != nil {
		t.Fatalf("ClearResume: %v", err)
	}
	if _, err := LoadResume(path); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("expected not-found after clear, got %v", err)
	}
	// Clearing twice is a no-op.
	if err := ClearResume(path); err != nil {
		t.Errorf("second ClearResume: %v", err)
	}
}
