// Package output serializes annotation records.
//
// Writers stage their output in a temporary file next to the destination and only
// rename it into place on Close, so an aborted or empty run leaves no artifact.
package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dhcgn/inbox-triage/config"
	"github.com/dhcgn/inbox-triage/model"
)

var ErrClosed = errors.New("output writer already closed")

// Writer accepts records in order.
type Writer interface {
	Write(rec model.Record) error
	// Close flushes and publishes the output file.
	Close() error
	// Abort discards everything written so far.
	Abort() error
}

// New opens a writer for format at path.
func New(path, format string) (Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp output: %w", err)
	}

	f := &fileWriter{
		path:   path,
		file:   tmp,
		writer: bufio.NewWriterSize(tmp, 64*1024),
	}

	switch format {
	case config.FormatJSON:
		f.enc = &jsonArrayEncoder{}
	case config.FormatJSONL:
		f.enc = &jsonLinesEncoder{}
	case config.FormatYAML:
		f.enc = &yamlEncoder{}
	default:
		_ = f.Abort()
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return f, nil
}

type encoder interface {
	add(w io.Writer, rec model.Record) error
	finish(w io.Writer) error
}

type fileWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	enc    encoder
	closed bool
}

func (f *fileWriter) Write(rec model.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := f.enc.add(f.writer, rec); err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	return nil
}

func (f *fileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	var firstErr error
	if err := f.enc.finish(f.writer); err != nil {
		firstErr = fmt.Errorf("finish output: %w", err)
	}
	if err := f.writer.Flush(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("flush output: %w", err)
	}
	if err := f.file.Sync(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sync output: %w", err)
	}
	if err := f.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close output: %w", err)
	}
	if firstErr != nil {
		_ = os.Remove(f.file.Name())
		return firstErr
	}

	if err := os.Chmod(f.file.Name(), 0o644); err != nil {
		_ = os.Remove(f.file.Name())
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(f.file.Name(), f.path); err != nil {
		_ = os.Remove(f.file.Name())
		return fmt.Errorf("publish output: %w", err)
	}
	return nil
}

func (f *fileWriter) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	_ = f.file.Close()
	if err := os.Remove(f.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp output: %w", err)
	}
	return nil
}

// jsonArrayEncoder writes an indented JSON array, one element per record.
type jsonArrayEncoder struct {
	count int
}

func (e *jsonArrayEncoder) add(w io.Writer, rec model.Record) error {
	data, err := marshalJSON(rec, "  ", "  ")
	if err != nil {
		return err
	}
	sep := ",\n  "
	if e.count == 0 {
		sep = "[\n  "
	}
	e.count++
	if _, err := io.WriteString(w, sep); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (e *jsonArrayEncoder) finish(w io.Writer) error {
	if e.count == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}
	_, err := io.WriteString(w, "\n]\n")
	return err
}

type jsonLinesEncoder struct{}

func (jsonLinesEncoder) add(w io.Writer, rec model.Record) error {
	data, err := marshalJSON(rec, "", "")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (jsonLinesEncoder) finish(io.Writer) error { return nil }

// yamlEncoder buffers records and emits a single YAML sequence.
type yamlEncoder struct {
	records []model.Record
}

func (e *yamlEncoder) add(_ io.Writer, rec model.Record) error {
	e.records = append(e.records, rec)
	return nil
}

func (e *yamlEncoder) finish(w io.Writer) error {
	records := e.records
	if records == nil {
		records = []model.Record{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}

// marshalJSON encodes rec without escaping '<', '>' and '&', which appear in
// "Name <address>" senders.
func marshalJSON(rec model.Record, prefix, indent string) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}
