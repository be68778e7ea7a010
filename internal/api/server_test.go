package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/history"
	"github.com/inkflow/inkflow/internal/session"
)

func newTestServer(t *testing.T, opts ...ServerOption) *httptest.Server {
	t.Helper()
	opts = append([]ServerOption{WithStageDelay(0)}, opts...)
	srv := httptest.NewServer(NewServer(opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() core.GenerationRequest {
	return core.GenerationRequest{
		Topic:        "profiling Go services",
		ArticleType:  core.ArticleTypeBlog,
		TargetLength: core.LengthShort,
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"topic": ""})
	resp, err := http.Post(srv.URL+"/api/blog/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestConfirmUnknownTask(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"task_id": "ghost", "action": "accept"})
	resp, err := http.Post(srv.URL+"/api/blog/outline/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestConfirmRejectsInvalidAction(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"task_id": "x", "action": "veto"})
	resp, err := http.Post(srv.URL+"/api/blog/outline/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

// TestFullGenerationFlow drives a real session through the mock server:
// open stream, approve the outline, collect the artifact.
func TestFullGenerationFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	decided := make(chan struct{}, 1)
	sess := session.New(
		session.NewHTTPPipeline(srv.URL),
		session.WithObserver(func(_ core.ProgressEvent, status core.SessionStatus) {
			if status == core.StatusAwaitingApproval {
				select {
				case decided <- struct{}{}:
				default:
				}
			}
		}),
	)

	if err := sess.Start(context.Background(), testRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-decided:
	case <-time.After(5 * time.Second):
		t.Fatal("never reached the outline checkpoint")
	}

	outline, err := sess.PendingOutline()
	if err != nil {
		t.Fatalf("PendingOutline: %v", err)
	}
	if outline.Title == "" || len(outline.SectionTitles) == 0 {
		t.Fatalf("empty outline surfaced: %+v", outline)
	}
	if err := sess.Decide(core.AcceptOutline()); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != core.StatusCompleted {
		t.Fatalf("expected completed, got %q (err=%v)", res.Status, res.Err)
	}
	if res.Artifact.Markdown == "" {
		t.Error("expected generated markdown in the artifact")
	}

	stats := history.Summarize(res.Artifact.Markdown)
	if stats.Sections == 0 {
		t.Errorf("generated article should have sections, got %+v", stats)
	}
}

// TestEditFlowReshapesArticle verifies edited section titles flow back
// into the generated markdown.
func TestEditFlowReshapesArticle(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	awaiting := make(chan struct{}, 1)
	sess := session.New(
		session.NewHTTPPipeline(srv.URL),
		session.WithObserver(func(_ core.ProgressEvent, status core.SessionStatus) {
			if status == core.StatusAwaitingApproval {
				select {
				case awaiting <- struct{}{}:
				default:
				}
			}
		}),
	)

	if err := sess.Start(context.Background(), testRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-awaiting:
	case <-time.After(5 * time.Second):
		t.Fatal("never reached the outline checkpoint")
	}

	if err := sess.Decide(core.EditOutline([]string{"Only Section"})); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != core.StatusCompleted {
		t.Fatalf("expected completed, got %q", res.Status)
	}

	stats := history.Summarize(res.Artifact.Markdown)
	if stats.Sections != 1 {
		t.Errorf("edited outline should yield 1 section, got %d", stats.Sections)
	}
}

// TestAutoConfirmSkipsCheckpoint exercises a server that streams through
// the outline without waiting; the client still completes.
func TestAutoConfirmSkipsCheckpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, WithAutoConfirm(true))

	sess := session.New(session.NewHTTPPipeline(srv.URL))
	if err := sess.Start(context.Background(), testRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != core.StatusCompleted {
		t.Fatalf("expected completed, got %q (err=%v)", res.Status, res.Err)
	}
}

func TestScriptedErrorScenario(t *testing.T) {
	t.Parallel()
	sc := &Scenario{Steps: []Step{
		{Kind: "stage_start", Stage: "researcher", Message: "researching"},
		{Kind: "error", Stage: "researcher", Message: "search backend unavailable"},
	}}
	srv := newTestServer(t, WithScenario(sc))

	sess := session.New(session.NewHTTPPipeline(srv.URL))
	if err := sess.Start(context.Background(), testRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != core.StatusError {
		t.Fatalf("expected error, got %q", res.Status)
	}
	if !core.IsCategory(res.Err, core.ErrCatPipeline) {
		t.Errorf("expected pipeline error, got %v", res.Err)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rec := history.NewRecord("rec-1", testRequest(), "task-1", core.StatusCompleted,
		core.Outline{Title: "Profiling Go"}, core.Artifact{Markdown: "# Profiling Go\n\n## pprof\n"})
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	srv := newTestServer(t, WithHistoryStore(store))

	resp, err := http.Get(srv.URL + "/api/blog/history/")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()
	var list struct {
		Records []historyRecordDTO `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Records) != 1 || list.Records[0].ID != "rec-1" {
		t.Fatalf("unexpected listing: %+v", list.Records)
	}
	if list.Records[0].Markdown != "" {
		t.Error("list view must not include the markdown body")
	}

	resp2, err := http.Get(srv.URL + "/api/blog/history/rec-1")
	if err != nil {
		t.Fatalf("GET record: %v", err)
	}
	defer resp2.Body.Close()
	var got historyRecordDTO
	if err := json.NewDecoder(resp2.Body).Decode(&got); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if got.Markdown == "" {
		t.Error("single fetch should include the markdown body")
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/blog/history/rec-1", nil)
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE record: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp3.StatusCode)
	}

	resp4, err := http.Get(srv.URL + "/api/blog/history/rec-1")
	if err != nil {
		t.Fatalf("GET deleted: %v", err)
	}
	defer resp4.Body.Close()
	if resp4.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp4.StatusCode)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/blog/history/")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestLoadScenario(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `
steps:
  - kind: stage_start
    stage: researcher
    message: researching
  - kind: outline_ready
    stage: planner
    outline:
      title: Scripted Title
      sections_titles: [One, Two]
  - kind: done
    message: finished
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sc.Steps))
	}
	if sc.Steps[1].Outline == nil || sc.Steps[1].Outline.Title != "Scripted Title" {
		t.Errorf("outline not parsed: %+v", sc.Steps[1].Outline)
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("steps: []"), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("empty scenario must be rejected")
	}
}
