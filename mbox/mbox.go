// Package mbox reads messages from an mbox archive as pipeline input.
package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/source"
)

// Ext is the file extension that selects the mbox source.
const Ext = ".mbox"

type Options struct {
	Path string
}

// Reader streams the messages of one archive. Each message id is
// "<archive file name>#<position>", counting from 1.
type Reader struct {
	path   string
	name   string
	logger *slog.Logger
}

func NewReader(opts Options, logger *slog.Logger) (*Reader, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	return &Reader{path: path, name: filepath.Base(path), logger: logger}, nil
}

func (r *Reader) Stream(ctx context.Context, out chan<- model.Envelope) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for idx := 1; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := fmt.Sprintf("%s#%d", r.name, idx)
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// The archive cannot be advanced past a framing error.
			return r.emitSkip(ctx, out, id, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			if err := r.emitSkip(ctx, out, id, err); err != nil {
				return err
			}
			continue
		}

		blob, err := source.DecodeMail(id, bytes.NewReader(raw))
		if err != nil {
			if err := r.emitSkip(ctx, out, id, err); err != nil {
				return err
			}
			continue
		}

		if err := source.Emit(ctx, out, model.Envelope{Blob: blob}); err != nil {
			return err
		}
	}
}

func (r *Reader) emitSkip(ctx context.Context, out chan<- model.Envelope, id string, err error) error {
	if r.logger != nil {
		r.logger.Debug("unreadable mbox message", "path", r.path, "id", id, "err", err)
	}
	return source.Emit(ctx, out, source.Unreadable(id, err))
}

// Count returns the number of messages in the archive.
func (r *Reader) Count() (int, error) {
	return CountMessages(r.path)
}

// IsArchive reports whether path names an mbox archive.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}

// CountMessages counts the total number of messages in an mbox file.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
		// A message that fails to drain is still counted.
		_, _ = io.Copy(io.Discard, msgReader)
		count++
	}
}
