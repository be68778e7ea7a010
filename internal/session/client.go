package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/logging"
)

// Pipeline is the interface to the out-of-scope generation service. The
// core only opens streams and posts outline decisions; everything else the
// service does is opaque.
type Pipeline interface {
	// OpenStream issues a generation request and returns the live
	// progress stream. The returned body stays open until the pipeline
	// finishes or the context is cancelled.
	OpenStream(ctx context.Context, req core.GenerationRequest) (*StreamHandle, error)

	// SubmitDecision forwards an outline decision for a running task.
	SubmitDecision(ctx context.Context, taskID string, d core.OutlineDecision) error
}

// StreamHandle is an open progress stream plus the task identity the
// server assigned to it.
type StreamHandle struct {
	TaskID string
	Body   io.ReadCloser
}

// taskIDHeader carries the server-assigned task identifier on the
// streaming response.
const taskIDHeader = "X-Task-Id"

// HTTPPipeline talks to the generation service over HTTP.
type HTTPPipeline struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// HTTPPipelineOption configures the HTTP pipeline client.
type HTTPPipelineOption func(*HTTPPipeline)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPPipelineOption {
	return func(p *HTTPPipeline) {
		p.client = c
	}
}

// WithPipelineLogger sets the client logger.
func WithPipelineLogger(logger *logging.Logger) HTTPPipelineOption {
	return func(p *HTTPPipeline) {
		p.logger = logger
	}
}

// NewHTTPPipeline creates a pipeline client for the given base URL.
//
// The client deliberately carries no overall request timeout: generation
// stages (illustration in particular) legitimately run for minutes, and
// only transport-level termination ends a session.
func NewHTTPPipeline(baseURL string, opts ...HTTPPipelineOption) *HTTPPipeline {
	p := &HTTPPipeline{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenStream implements Pipeline.
func (p *HTTPPipeline) OpenStream(ctx context.Context, req core.GenerationRequest) (*StreamHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.ErrTransport(core.CodeRequestFailed, "encoding generation request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/blog/generate", bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrTransport(core.CodeRequestFailed, "building generation request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, core.ErrTransport(core.CodeRequestFailed, "connecting to generation service").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.ErrTransport(core.CodeUnexpectedStatus,
			fmt.Sprintf("generation service returned %d", resp.StatusCode)).
			WithDetail("body", string(msg))
	}

	taskID := resp.Header.Get(taskIDHeader)
	p.logger.Info("generation stream opened", "task_id", taskID, "topic", req.Topic)
	return &StreamHandle{TaskID: taskID, Body: resp.Body}, nil
}

// decisionRequest is the wire shape of the outline decision callback.
type decisionRequest struct {
	TaskID        string   `json:"task_id"`
	Action        string   `json:"action"`
	SectionTitles []string `json:"sections_titles,omitempty"`
}

// SubmitDecision implements Pipeline.
func (p *HTTPPipeline) SubmitDecision(ctx context.Context, taskID string, d core.OutlineDecision) error {
	payload, err := json.Marshal(decisionRequest{
		TaskID:        taskID,
		Action:        d.Action.String(),
		SectionTitles: d.SectionTitles,
	})
	if err != nil {
		return core.ErrTransport(core.CodeRequestFailed, "encoding outline decision").WithCause(err)
	}

	// Decisions are small control messages; unlike the stream they get a
	// bounded deadline so a dead server surfaces promptly.
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/blog/outline/confirm", bytes.NewReader(payload))
	if err != nil {
		return core.ErrTransport(core.CodeRequestFailed, "building decision request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return core.ErrTransport(core.CodeRequestFailed, "posting outline decision").WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.ErrTransport(core.CodeUnexpectedStatus,
			fmt.Sprintf("outline decision rejected with %d", resp.StatusCode))
	}

	p.logger.Info("outline decision submitted", "task_id", taskID, "action", d.Action.String())
	return nil
}
