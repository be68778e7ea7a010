// Package stream decodes the generation service's progress stream into
// discrete events.
//
// The wire format is newline-delimited frames of the form `data: <json>`.
// A frame may arrive split across any number of transport chunks; the
// scanner reassembles lines before decoding. Frames that do not parse as
// JSON are noise from an otherwise-trusted server and are dropped without
// surfacing an error. Lines without the data marker (comments, keep-alives,
// SSE field lines) are skipped.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/inkflow/inkflow/internal/core"
)

// dataMarker prefixes every event-bearing line.
var dataMarker = []byte("data:")

// readChunkSize is the transport read size. Small enough to keep latency
// low on trickling streams, large enough to avoid syscall churn.
const readChunkSize = 4096

// Scanner reads progress events from a raw byte stream.
//
// It is not safe for concurrent use; a session owns exactly one scanner
// and drives it from a single goroutine.
type Scanner struct {
	r       io.Reader
	chunk   []byte
	partial []byte // carry-over of an incomplete line between reads
	pending [][]byte
	eof     bool
	dropped int
	now     func() time.Time
}

// NewScanner creates a scanner over the given transport stream.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		r:     r,
		chunk: make([]byte, readChunkSize),
		now:   time.Now,
	}
}

// Next returns the next decoded event.
//
// It returns io.EOF when the transport signals a clean end-of-stream, and a
// transport DomainError for any other read failure. Malformed frames are
// silently skipped and never terminate the stream.
func (s *Scanner) Next() (core.ProgressEvent, error) {
	for {
		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]
			if ev, ok := s.decodeLine(line); ok {
				return ev, nil
			}
		}

		if s.eof {
			return core.ProgressEvent{}, io.EOF
		}
		if err := s.fill(); err != nil {
			return core.ProgressEvent{}, err
		}
	}
}

// Dropped returns how many data frames failed to decode and were skipped.
func (s *Scanner) Dropped() int {
	return s.dropped
}

// fill reads one transport chunk and splits completed lines into the
// pending queue.
func (s *Scanner) fill() error {
	n, err := s.r.Read(s.chunk)
	if n > 0 {
		s.partial = append(s.partial, s.chunk[:n]...)
		for {
			idx := bytes.IndexByte(s.partial, '\n')
			if idx < 0 {
				break
			}
			line := make([]byte, idx)
			copy(line, s.partial[:idx])
			s.pending = append(s.pending, line)
			s.partial = s.partial[idx+1:]
		}
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			// A final line without a trailing newline is complete once
			// the stream ends.
			if len(s.partial) > 0 {
				s.pending = append(s.pending, s.partial)
				s.partial = nil
			}
			s.eof = true
			return nil
		}
		return core.ErrTransport(core.CodeStreamFailed, "reading progress stream").WithCause(err)
	}
	return nil
}

// decodeLine decodes a single reassembled line. The boolean result is
// false for non-data lines and for frames that fail to parse.
func (s *Scanner) decodeLine(line []byte) (core.ProgressEvent, bool) {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, dataMarker) {
		return core.ProgressEvent{}, false
	}
	payload := bytes.TrimLeft(line[len(dataMarker):], " ")
	if len(payload) == 0 {
		return core.ProgressEvent{}, false
	}

	var ev core.ProgressEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.dropped++
		return core.ProgressEvent{}, false
	}
	ev.ReceivedAt = s.now()
	return ev, true
}
