// v0
// internal/sink/file.go
package sink

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink writes one JSON-lines file per collection under a directory.
type FileSink struct {
	mu  sync.Mutex
	dir string
	log *slog.Logger
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string, log *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir, log: log}, nil
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file backing collection.
func (s *FileSink) Path(collection string) string {
	return filepath.Join(s.dir, safeName(collection)+".jsonl")
}

func (s *FileSink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if b.Update {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	path := s.Path(b.Collection)
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(e.raw); err != nil {
			f.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	s.log.Debug("file_written", slog.String("path", path), slog.Int("documents", len(entries)))
	return f.Close()
}

func (s *FileSink) Close() error { return nil }

// safeName keeps collection names usable as file names, table names and keys.
func safeName(collection string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(collection) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
