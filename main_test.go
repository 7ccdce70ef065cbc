package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhcgn/inbox-triage/config"
	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/output"
)

func testConfig(input, out string) config.Config {
	return config.Config{
		InputPath:    input,
		OutputPath:   out,
		Format:       config.FormatFromPath(out),
		MaxSentences: 2,
		Workers:      2,
		LogLevel:     "info",
	}
}

func TestRunDirectory(t *testing.T) {
	in := t.TempDir()
	files := map[string]string{
		"1.txt": "Subject: URGENT meeting\nFrom: boss@company.com\nWe need to meet. Please confirm.",
		"2.txt": "Thanks for your help yesterday!",
		"3.txt": "Subject: Sale\nFrom: deals@promo-offers.com\nBig discounts today.",
		"4.txt": "\xff\xfe\xfd",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(in, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	outPath := filepath.Join(t.TempDir(), "results.json")
	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), testConfig(in, outPath), logger, &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want := "Processed 3 messages. Results saved to " + outPath + ".\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}

	records, err := output.ReadRecords(outPath)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if strings.Join(ids, ",") != "1.txt,2.txt,3.txt" {
		t.Fatalf("ids = %v", ids)
	}
	if records[0].Priority != model.PriorityHigh || records[2].Category != model.CategoryPromotions {
		t.Errorf("unexpected annotations: %+v", records)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	in := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "results.json")
	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), testConfig(in, outPath), logger, &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "No messages found") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Errorf("output should not exist, stat err = %v", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "r.json"))
	if err := run(context.Background(), cfg, logger, io.Discard); err == nil {
		t.Error("run() expected error for missing input")
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := setupLogger(config.Config{LogLevel: "debug", LogDir: dir})
	if err != nil {
		t.Fatalf("setupLogger() error = %v", err)
	}
	logger.Debug("hello")
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "inbox-triage-*.log"))
	if len(matches) != 1 {
		t.Fatalf("log files = %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("log file = %q", data)
	}
}
