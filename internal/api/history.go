package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkflow/inkflow/internal/history"
)

// historyRecordDTO is the wire shape of a history record. Markdown is
// only included on single-record fetches; list views carry the summary.
type historyRecordDTO struct {
	ID          string               `json:"id"`
	TaskID      string               `json:"task_id"`
	Topic       string               `json:"topic"`
	Title       string               `json:"title"`
	ArticleType string               `json:"article_type"`
	Status      string               `json:"status"`
	Markdown    string               `json:"markdown_content,omitempty"`
	Outline     interface{}          `json:"outline,omitempty"`
	Stats       history.ContentStats `json:"stats"`
	CreatedAt   time.Time            `json:"created_at"`
}

func toDTO(rec history.Record, includeBody bool) historyRecordDTO {
	dto := historyRecordDTO{
		ID:          rec.ID,
		TaskID:      rec.TaskID,
		Topic:       rec.Topic,
		Title:       rec.Title,
		ArticleType: rec.ArticleType.String(),
		Status:      rec.Status.String(),
		Stats:       rec.Stats,
		CreatedAt:   rec.CreatedAt,
	}
	if includeBody {
		dto.Markdown = rec.Markdown
		dto.Outline = rec.Outline
	}
	return dto
}

// handleListHistory returns records newest-first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		records = history.Search(records, q)
	}

	dtos := make([]historyRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toDTO(rec, false))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"records": dtos})
}

// handleGetHistory returns one record including its markdown.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDTO(rec, true))
}

// handleDeleteHistory removes a record.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	if err := s.store.Delete(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
