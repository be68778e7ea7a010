// Package session orchestrates one generation request end-to-end: it opens
// the progress stream, feeds the scanner, applies events to the ledger,
// suspends at the outline approval checkpoint, and resolves to a terminal
// result.
//
// Concurrency model: a single loop goroutine owns all ledger mutation.
// Events are sequenced in the order the transport delivers them; user
// decisions and cancellation are delivered into the loop through channels.
// Independent sessions share nothing.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/ledger"
	"github.com/inkflow/inkflow/internal/logging"
	"github.com/inkflow/inkflow/internal/stream"
)

// Result is the terminal outcome handed to the caller.
type Result struct {
	Status   core.SessionStatus
	Artifact core.Artifact
	Err      error
}

// Observer receives every appended event together with the status derived
// after it. Called from the session loop; implementations must not block.
type Observer func(ev core.ProgressEvent, status core.SessionStatus)

// Session drives one generation request.
type Session struct {
	id       string
	pipeline Pipeline
	ledger   *ledger.Ledger
	gate     *Gate
	logger   *logging.Logger
	onEvent  Observer

	mu       sync.Mutex
	started  bool
	resolved bool
	taskID   string
	result   Result
	cancel   context.CancelFunc

	cancelled atomic.Bool
	done      chan struct{}
}

// Option configures a session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithObserver registers a callback for appended events.
func WithObserver(fn Observer) Option {
	return func(s *Session) {
		s.onEvent = fn
	}
}

// New creates a session bound to a pipeline service.
func New(pipeline Pipeline, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		pipeline: pipeline,
		ledger:   ledger.New(),
		gate:     newGate(),
		logger:   logging.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithSession(s.id)
	return s
}

// ID returns the client-side session identifier.
func (s *Session) ID() string {
	return s.id
}

// TaskID returns the server-assigned task identifier, empty until the
// stream is open.
func (s *Session) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// Status returns the current derived status.
func (s *Session) Status() core.SessionStatus {
	return s.ledger.Status()
}

// Snapshot returns a copy of the ledger for rendering.
func (s *Session) Snapshot() ledger.Snapshot {
	return s.ledger.Snapshot()
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start validates the request, opens the stream, and begins ingestion.
// It returns once the stream is open; progress is consumed asynchronously.
func (s *Session) Start(ctx context.Context, req core.GenerationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return core.ErrState(core.CodeInvalidState, "session already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := s.ledger.Begin(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	handle, err := s.pipeline.OpenStream(runCtx, req)
	if err != nil {
		ev := core.NewTransportErrorEvent(err)
		status := s.ledger.Append(ev)
		s.notify(ev, status)
		s.finalize(Result{Status: core.StatusError, Err: err})
		return err
	}

	s.mu.Lock()
	s.taskID = handle.TaskID
	s.mu.Unlock()
	s.logger.Info("session started", "task_id", handle.TaskID, "topic", req.Topic)

	go s.run(runCtx, handle)
	return nil
}

// Cancel aborts a running session. Once the cancel lands the terminal
// status is cancelled, even if a done event was already in flight.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return core.ErrProtocol(core.CodeInvalidState, "session not started")
	}
	if s.resolved {
		s.mu.Unlock()
		return core.ErrProtocol(core.CodeSessionTerminal, "session already finished")
	}
	cancel := s.cancel
	s.mu.Unlock()

	s.cancelled.Store(true)
	cancel() // closes the transport; the loop resolves to cancelled
	return nil
}

// PendingOutline surfaces the outline awaiting approval. Valid exactly
// once per checkpoint.
func (s *Session) PendingOutline() (core.Outline, error) {
	return s.gate.TakeOutline()
}

// Decide submits the user's outline decision. Valid only while the
// session is awaiting outline approval; at any other time it is rejected
// and the ledger is untouched.
func (s *Session) Decide(d core.OutlineDecision) error {
	status := s.ledger.Status()
	if status.Terminal() {
		return core.ErrProtocol(core.CodeSessionTerminal, "decision submitted after session finished")
	}
	if status != core.StatusAwaitingApproval {
		return core.ErrProtocol(core.CodeGateNotArmed, "no outline awaiting approval")
	}
	return s.gate.Decide(d)
}

// Wait blocks until the session resolves or the context ends.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the terminal outcome; valid after Done is closed.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

type streamMsg struct {
	ev  core.ProgressEvent
	err error
}

// run is the session loop. It is the only goroutine that appends to the
// ledger after Start returns.
func (s *Session) run(ctx context.Context, handle *StreamHandle) {
	defer handle.Body.Close()

	msgs := make(chan streamMsg)
	go func() {
		sc := stream.NewScanner(handle.Body)
		for {
			ev, err := sc.Next()
			if err != nil {
				select {
				case msgs <- streamMsg{err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case msgs <- streamMsg{ev: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.finishCancelled()
			return

		case m := <-msgs:
			if m.err != nil {
				s.finishStreamEnd(m.err)
				return
			}
			if s.cancelled.Load() {
				// Cancel wins over anything still in flight.
				s.finishCancelled()
				return
			}

			status := s.ledger.Append(m.ev)
			s.notify(m.ev, status)

			switch {
			case m.ev.Kind == core.KindOutlineReady:
				if !s.awaitDecision(ctx, m.ev, msgs) {
					return
				}
			case status.Terminal():
				s.resolveTerminal(m.ev, status)
				return
			}
		}
	}
}

// awaitDecision suspends the pipeline at the outline checkpoint. It
// returns true when generation should continue, false when the session
// has resolved.
func (s *Session) awaitDecision(ctx context.Context, outlineEv core.ProgressEvent, msgs <-chan streamMsg) bool {
	outline, err := outlineEv.DecodeOutline()
	if err != nil {
		// An unapprovable outline cannot gate anything; surface it as a
		// pipeline failure rather than stalling forever.
		s.logger.Error("malformed outline payload", "error", err)
		ev := core.NewProgressEvent(core.KindError, core.StagePlanner, "malformed outline payload")
		status := s.ledger.Append(ev)
		s.notify(ev, status)
		s.finalize(Result{Status: core.StatusError, Err: err})
		return false
	}

	s.gate.arm(outline)
	s.logger.Info("awaiting outline approval", "title", outline.Title, "sections", len(outline.SectionTitles))

	for {
		select {
		case <-ctx.Done():
			s.gate.disarm()
			s.finishCancelled()
			return false

		case d := <-s.gate.decisions():
			ev := core.NewDecisionEvent(d)
			status := s.ledger.Append(ev)
			s.notify(ev, status)

			if err := s.pipeline.SubmitDecision(ctx, s.TaskID(), d); err != nil {
				tev := core.NewTransportErrorEvent(err)
				status := s.ledger.Append(tev)
				s.notify(tev, status)
				s.finalize(Result{Status: core.StatusError, Err: err})
				return false
			}
			return true

		case m := <-msgs:
			if m.err != nil {
				// A dead connection while suspended is an error, not a
				// hung approval.
				s.gate.disarm()
				s.finishStreamEnd(m.err)
				return false
			}
			status := s.ledger.Append(m.ev)
			s.notify(m.ev, status)
			if status.Terminal() {
				s.gate.disarm()
				s.resolveTerminal(m.ev, status)
				return false
			}
		}
	}
}

// finishStreamEnd resolves the session after the reader goroutine reports
// end-of-stream or a transport failure.
func (s *Session) finishStreamEnd(err error) {
	if s.cancelled.Load() {
		// Closing the transport on cancel surfaces as a read error; the
		// user's cancel takes precedence over how the stream died.
		s.finishCancelled()
		return
	}

	if errors.Is(err, io.EOF) {
		if status := s.ledger.Status(); status.Terminal() {
			// Normal shutdown after done/error was already applied.
			s.finalizeFromLedger(status)
			return
		}
		err = core.ErrTransport(core.CodeStreamFailed, "stream ended before completion")
	}

	ev := core.NewTransportErrorEvent(err)
	status := s.ledger.Append(ev)
	s.notify(ev, status)
	s.finalize(Result{Status: core.StatusError, Err: err})
}

// finishCancelled appends the cancellation marker and resolves.
func (s *Session) finishCancelled() {
	s.gate.disarm()
	if !s.ledger.Status().Terminal() {
		ev := core.NewCancelledEvent()
		status := s.ledger.Append(ev)
		s.notify(ev, status)
	}
	s.finalize(Result{Status: core.StatusCancelled})
}

// resolveTerminal resolves the session from the event that made the
// ledger terminal.
func (s *Session) resolveTerminal(ev core.ProgressEvent, status core.SessionStatus) {
	switch status {
	case core.StatusCompleted:
		artifact, err := ev.DecodeArtifact()
		if err != nil {
			s.logger.Warn("completed without decodable artifact", "error", err)
		}
		s.finalize(Result{Status: core.StatusCompleted, Artifact: artifact})
	case core.StatusError:
		s.finalize(Result{Status: core.StatusError, Err: core.ErrPipeline(ev.Message)})
	default:
		s.finalizeFromLedger(status)
	}
}

func (s *Session) finalizeFromLedger(status core.SessionStatus) {
	res := Result{Status: status}
	if status == core.StatusError {
		res.Err = core.ErrTransport(core.CodeStreamFailed, "generation failed")
	}
	s.finalize(res)
}

// finalize records the terminal result exactly once and releases the
// reader goroutine and transport.
func (s *Session) finalize(res Result) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.result = res
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Info("session resolved", "status", res.Status.String())
	close(s.done)
}

func (s *Session) notify(ev core.ProgressEvent, status core.SessionStatus) {
	if s.onEvent != nil {
		s.onEvent(ev, status)
	}
}
