package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/parser"
)

const (
	extText = ".txt"
	extEML  = ".eml"
)

// Dir reads every .txt and .eml file directly inside a directory, in file name order.
// The file name is the message id.
type Dir struct {
	path   string
	logger *slog.Logger
}

func NewDir(path string, logger *slog.Logger) (*Dir, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("input directory is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return &Dir{path: path, logger: logger}, nil
}

func (d *Dir) Stream(ctx context.Context, out chan<- model.Envelope) error {
	names, err := d.list()
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		env := d.load(name)
		if env.Err != nil && d.logger != nil {
			d.logger.Debug("unreadable input", "id", name, "err", env.Err)
		}
		if err := Emit(ctx, out, env); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of candidate files.
func (d *Dir) Count() (int, error) {
	names, err := d.list()
	return len(names), err
}

func (d *Dir) list() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case extText, extEML:
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) load(name string) model.Envelope {
	path := filepath.Join(d.path, name)
	file, err := os.Open(path)
	if err != nil {
		return Unreadable(name, err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(name), extEML) {
		blob, err := DecodeMail(name, file)
		if err != nil {
			return Unreadable(name, err)
		}
		return model.Envelope{Blob: blob}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return Unreadable(name, err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return model.Envelope{Blob: model.Blob{ID: name, Lines: parser.SplitLines(text)}}
}
