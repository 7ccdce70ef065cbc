package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/inbox-triage/cmd"
	"github.com/dhcgn/inbox-triage/config"
	"github.com/dhcgn/inbox-triage/mbox"
	"github.com/dhcgn/inbox-triage/output"
	"github.com/dhcgn/inbox-triage/progress"
	"github.com/dhcgn/inbox-triage/runner"
	"github.com/dhcgn/inbox-triage/source"
	"github.com/dhcgn/inbox-triage/stats"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "inbox-triage",
		Short:         "Annotate a batch of messages with priority, summary, draft reply and category",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting inbox-triage", "input", cfg.InputPath, "output", cfg.OutputPath, "format", cfg.Format, "workers", cfg.Workers)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(cmd.NewReportCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	src, err := openSource(cfg, logger)
	if err != nil {
		return err
	}

	open := func() (output.Writer, error) {
		return output.New(cfg.OutputPath, cfg.Format)
	}
	r, err := runner.New(ctx, cfg, logger, open)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}
	stats.NewReporter(r, logger)

	if cfg.Progress {
		total, err := src.Count()
		if err != nil {
			logger.Warn("cannot size input for progress bar", "input", cfg.InputPath, "err", err)
		}
		progress.New(total, true).Attach(r)
	}

	r.AddSource("source", src)
	res, err := r.Start()
	if errors.Is(err, runner.ErrEmptyBatch) {
		fmt.Fprintf(out, "No messages found in '%s'.\n", cfg.InputPath)
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.Progress {
		progress.PrintSummary(res.Summary)
	}

	fmt.Fprintf(out, "Processed %d messages. Results saved to %s.\n", res.Written, cfg.OutputPath)
	return nil
}

type countingSource interface {
	source.Source
	source.Counter
}

func openSource(cfg config.Config, logger *slog.Logger) (countingSource, error) {
	if mbox.IsArchive(cfg.InputPath) {
		reader, err := mbox.NewReader(mbox.Options{Path: cfg.InputPath}, logger)
		if err != nil {
			return nil, fmt.Errorf("mbox.NewReader: %w", err)
		}
		return reader, nil
	}

	dir, err := source.NewDir(cfg.InputPath, logger)
	if err != nil {
		return nil, fmt.Errorf("source.NewDir: %w", err)
	}
	return dir, nil
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("inbox-triage-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler), cleanup, nil
}
