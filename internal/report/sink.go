package report

import (
	"fmt"
	"os"
	"sync"

	"github.com/nao1215/pausescan/internal/model"
)

// resultFilePerm is the permission of a newly created result file.
const resultFilePerm = 0o644

// Sink records findings.
type Sink interface {
	Record(o model.Outcome) error
}

// FileSink appends findings to a result file.
//
// Each finding is written with a single Write call under a mutex, so lines
// from concurrent workers never interleave. Existing content is kept.
type FileSink struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	mode  model.Mode
	lines int
}

// OpenFileSink opens path for appending, creating it if needed.
func OpenFileSink(path string, mode model.Mode) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, resultFilePerm) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	return &FileSink{file: f, path: path, mode: mode}, nil
}

// Record writes o if it is a finding and ignores it otherwise.
func (s *FileSink) Record(o model.Outcome) error {
	if !o.ShouldRecord() {
		return nil
	}

	line := o.Line(s.mode) + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSinkClosed
	}
	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	s.lines++
	return nil
}

// Lines returns the number of lines written by this sink.
func (s *FileSink) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

// Path returns the result file path.
func (s *FileSink) Path() string {
	return s.path
}

// Close closes the result file. Calling Close twice is a no-op.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
