package llm

import (
	"encoding/json"
	"fmt"
	"io"
)

// StopMarker prefixes the terminator chunk. It is followed by the usage JSON
// or the literal null.
const StopMarker = "###STOP###"

type flusher interface {
	Flush() error
}

// StreamWriter frames relayed content for the client: raw content chunks, a
// single space when any content was written, then the terminator.
type StreamWriter struct {
	w        io.Writer
	wrote    bool
	finished bool
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

func (s *StreamWriter) write(p string) error {
	if _, err := io.WriteString(s.w, p); err != nil {
		return err
	}
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *StreamWriter) WriteChunk(text string) error {
	if text == "" {
		return nil
	}
	if s.finished {
		return fmt.Errorf("chunk after terminator")
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	s.wrote = true
	return nil
}

// Finish writes the terminator. Later calls are no-ops.
func (s *StreamWriter) Finish(usage *Usage) error {
	if s.finished {
		return nil
	}
	s.finished = true

	payload := []byte("null")
	if usage != nil {
		b, err := json.Marshal(usage)
		if err == nil {
			payload = b
		}
	}

	if s.wrote {
		if err := s.write(" "); err != nil {
			return fmt.Errorf("write terminator: %w", err)
		}
	}
	if err := s.write(StopMarker + string(payload)); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}
	return nil
}

func (s *StreamWriter) Finished() bool {
	return s.finished
}
