package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dhcgn/inbox-triage/config"
	"github.com/dhcgn/inbox-triage/model"
)

// ReadRecords loads a results file. The format is taken from the content, so a file
// written with --format jsonl under a .json name still loads.
func ReadRecords(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	var records []model.Record
	switch detectFormat(data) {
	case config.FormatJSONL:
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
		for line := 1; scanner.Scan(); line++ {
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			var rec model.Record
			if err := json.Unmarshal(text, &rec); err != nil {
				return nil, fmt.Errorf("parse results line %d: %w", line, err)
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan results: %w", err)
		}
	case config.FormatYAML:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse results: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse results: %w", err)
		}
	}
	return records, nil
}

// detectFormat looks at the first non-blank byte: '[' starts a JSON array, '{' a JSON
// line. Anything else is read as YAML.
func detectFormat(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return config.FormatYAML
	}
	switch trimmed[0] {
	case '[':
		return config.FormatJSON
	case '{':
		return config.FormatJSONL
	}
	return config.FormatYAML
}
