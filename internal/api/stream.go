package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/inkflow/inkflow/internal/core"
)

// handleGenerate opens a generation stream and plays the scenario.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req core.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	t := &task{
		id:      uuid.NewString(),
		req:     req,
		confirm: make(chan core.OutlineDecision, 1),
	}
	s.register(t)
	defer s.unregister(t.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.Header().Set("X-Task-Id", t.id)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Info("generation started", "task_id", t.id, "topic", req.Topic)
	s.play(r.Context(), w, flusher, t)
	s.logger.Info("generation stream closed", "task_id", t.id)
}

// play emits the scripted events, suspending at the outline checkpoint.
func (s *Server) play(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, t *task) {
	outline := synthesizeOutline(t.req.Topic)

	for _, step := range s.scenario.Steps {
		if !s.pace(ctx, step) {
			return
		}

		ev := core.ProgressEvent{
			Kind:    core.EventKind(step.Kind),
			Stage:   core.Stage(step.Stage),
			Message: step.Message,
		}

		switch ev.Kind {
		case core.KindOutlineReady:
			if step.Outline != nil {
				outline = step.Outline.toOutline()
			}
			payload, _ := json.Marshal(outline)
			ev.Payload = payload
			if !s.emit(w, flusher, ev) {
				return
			}

			if s.autoConfirm {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case d := <-t.confirm:
				if d.Action == core.DecisionEdit {
					outline.SectionTitles = d.SectionTitles
				}
				s.logger.Info("outline confirmed", "task_id", t.id, "action", d.Action.String())
			}
			continue

		case core.KindDone:
			markdown := step.Markdown
			if markdown == "" {
				markdown = synthesizeMarkdown(outline)
			}
			payload, _ := json.Marshal(core.Artifact{
				ArtifactID: uuid.NewString(),
				Markdown:   markdown,
			})
			ev.Payload = payload
		}

		if !s.emit(w, flusher, ev) {
			return
		}
	}
}

// pace waits the configured delay before a step.
func (s *Server) pace(ctx context.Context, step Step) bool {
	delay := s.stageDelay
	if step.Delay > 0 {
		delay = time.Duration(step.Delay)
	}
	if delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// emit writes one frame to the stream.
func (s *Server) emit(w http.ResponseWriter, flusher http.Flusher, ev core.ProgressEvent) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("encoding frame", "error", err)
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// confirmRequest is the wire shape of the outline decision callback.
type confirmRequest struct {
	TaskID        string   `json:"task_id"`
	Action        string   `json:"action"`
	SectionTitles []string `json:"sections_titles"`
}

// handleConfirm delivers an outline decision to a suspended task.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	action, err := core.ParseDecisionAction(req.Action)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	decision := core.OutlineDecision{Action: action, SectionTitles: req.SectionTitles}
	if err := decision.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	t, ok := s.lookup(req.TaskID)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no running task %s", req.TaskID))
		return
	}

	select {
	case t.confirm <- decision:
		respondJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
	default:
		respondError(w, http.StatusConflict, "a decision is already pending for this task")
	}
}
