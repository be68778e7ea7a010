package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/inkflow/inkflow/internal/core"
)

// ResumeState is the on-disk marker for a generation that may still be
// running server-side. It lets a restarted client tell the user which
// task was in flight instead of silently losing it.
type ResumeState struct {
	TaskID    string             `json:"task_id"`
	SessionID string             `json:"session_id"`
	Topic     string             `json:"topic"`
	Status    core.SessionStatus `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SaveResume atomically writes the resume marker. A crash mid-write
// leaves either the previous marker or the new one, never a torn file.
func SaveResume(path string, st ResumeState) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return core.ErrInternal("encoding resume state").WithCause(err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return core.ErrInternal("writing resume state").WithCause(err).WithDetail("path", path)
	}
	return nil
}

// LoadResume reads the resume marker. A missing file is reported as a
// not-found domain error so callers can treat it as "nothing to resume".
func LoadResume(path string) (ResumeState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ResumeState{}, core.ErrNotFound("resume state", path)
		}
		return ResumeState{}, core.ErrInternal("reading resume state").WithCause(err).WithDetail("path", path)
	}
	var st ResumeState
	if err := json.Unmarshal(data, &st); err != nil {
		return ResumeState{}, core.ErrInternal("decoding resume state").WithCause(err).WithDetail("path", path)
	}
	return st, nil
}

// ClearResume removes the marker once the session resolves. Removing an
// already-absent marker is not an error.
func ClearResume(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return core.ErrInternal("clearing resume state").WithCause(err).WithDetail("path", path)
	}
	return nil
}
