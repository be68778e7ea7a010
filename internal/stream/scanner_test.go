package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/inkflow/inkflow/internal/core"
)

// chunkReader delivers its input in fixed-size chunks to simulate frames
// split across network reads.
type chunkReader struct {
	data []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// failingReader returns some data and then a non-EOF error.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, r.err
}

func drain(t *testing.T, s *Scanner) []core.ProgressEvent {
	t.Helper()
	var events []core.ProgressEvent
	for {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func TestScannerDecodesFrames(t *testing.T) {
	t.Parallel()
	input := "data: {\"kind\":\"stage_start\",\"stage\":\"researcher\",\"message\":\"go\"}\n" +
		"data: {\"kind\":\"log\",\"message\":\"searching\"}\n"

	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != core.KindStageStart || events[0].Stage != core.StageResearcher {
		t.Errorf("unexpected first event: %#v", events[0])
	}
	if events[1].Kind != core.KindLog || events[1].Message != "searching" {
		t.Errorf("unexpected second event: %#v", events[1])
	}
	if events[0].ReceivedAt.IsZero() {
		t.Error("ReceivedAt should be stamped on receipt")
	}
}

func TestScannerReassemblesSplitLines(t *testing.T) {
	t.Parallel()
	input := "data: {\"kind\":\"stage_start\",\"stage\":\"writer\",\"message\":\"drafting section one\"}\n" +
		"data: {\"kind\":\"done\",\"payload\":{\"artifact_id\":\"a1\"}}\n"

	// Exercise every possible split point.
	for size := 1; size <= 16; size++ {
		s := NewScanner(&chunkReader{data: []byte(input), size: size})
		events := drain(t, s)
		if len(events) != 2 {
			t.Fatalf("chunk size %d: expected 2 events, got %d", size, len(events))
		}
		if events[1].Kind != core.KindDone {
			t.Errorf("chunk size %d: unexpected final event %#v", size, events[1])
		}
	}
}

func TestScannerDropsMalformedFrames(t *testing.T) {
	t.Parallel()
	input := "data: {not json\n" +
		"data: {\"kind\":\"log\",\"message\":\"ok\"}\n" +
		"data: also not json\n"

	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if s.Dropped() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", s.Dropped())
	}
}

func TestScannerIgnoresNonDataLines(t *testing.T) {
	t.Parallel()
	input := ": keep-alive\n" +
		"event: progress\n" +
		"\n" +
		"data: {\"kind\":\"log\",\"message\":\"hello\"}\n"

	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if s.Dropped() != 0 {
		t.Errorf("non-data lines must not count as dropped, got %d", s.Dropped())
	}
}

func TestScannerHandlesCRLF(t *testing.T) {
	t.Parallel()
	input := "data: {\"kind\":\"log\",\"message\":\"crlf\"}\r\n"
	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)
	if len(events) != 1 || events[0].Message != "crlf" {
		t.Fatalf("unexpected events: %#v", events)
	}
}

func TestScannerFinalLineWithoutNewline(t *testing.T) {
	t.Parallel()
	input := "data: {\"kind\":\"done\"}"
	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)
	if len(events) != 1 || events[0].Kind != core.KindDone {
		t.Fatalf("trailing frame should decode at EOF: %#v", events)
	}
}

func TestScannerTransportError(t *testing.T) {
	t.Parallel()
	r := &failingReader{
		data: []byte("data: {\"kind\":\"log\",\"message\":\"one\"}\n"),
		err:  errors.New("connection reset by peer"),
	}
	s := NewScanner(r)

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("first event should decode: %v", err)
	}
	if ev.Message != "one" {
		t.Errorf("unexpected event: %#v", ev)
	}

	_, err = s.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !core.IsCategory(err, core.ErrCatTransport) {
		t.Errorf("expected transport category, got %v", err)
	}
}

func TestScannerEmptyStream(t *testing.T) {
	t.Parallel()
	s := NewScanner(strings.NewReader(""))
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestScannerNoSpaceAfterMarker(t *testing.T) {
	t.Parallel()
	input := "data:{\"kind\":\"log\",\"message\":\"tight\"}\n"
	s := NewScanner(strings.NewReader(input))
	events := drain(t, s)
	if len(events) != 1 || events[0].Message != "tight" {
		t.Fatalf("marker without space should still decode: %#v", events)
	}
}
