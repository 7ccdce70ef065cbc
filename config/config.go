package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override flags, e.g.
// INBOX_TRIAGE_MAX_SENTENCES.
const EnvPrefix = "INBOX_TRIAGE"

// Output formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatYAML  = "yaml"
)

// Config captures all options required to run the triage.
type Config struct {
	ConfigFile    string
	InputPath     string
	OutputPath    string
	Format        string
	MaxSentences  int
	Workers       int
	Progress      bool
	LogLevel      string
	LogDir        string
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("config", "", "Path to a YAML config file (default ~/.inbox-triage/config.yaml if present)")
	flags.String("input", "", "Directory of .txt/.eml messages or an .mbox archive")
	flags.String("output", "results.json", "File to write the annotated records to")
	flags.String("format", "", "Output format: json, jsonl, yaml (default: from --output extension)")
	flags.Int("max-sentences", 2, "Maximum number of sentences in each summary")
	flags.Int("workers", 1, "Number of messages annotated concurrently")
	flags.Bool("progress", false, "Show a progress bar while annotating")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (logs only to stderr when empty)")
	flags.StringArray("include-header", nil, "Regex allow-list applied to Subject/From (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to Subject/From (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")

	return cmd.MarkFlagFilename("config", "yaml", "yml")
}

// LoadConfig merges flags, environment and the optional config file into a validated
// Config. Flags win over environment, environment over the file.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile, err := readConfigFile(v, v.GetString("config"))
	if err != nil {
		return Config{}, err
	}

	includeHeader, err := stringArray(cmd, v, "include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := stringArray(cmd, v, "include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := stringArray(cmd, v, "exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := stringArray(cmd, v, "exclude-body")
	if err != nil {
		return Config{}, err
	}

	logLevel := strings.ToLower(strings.TrimSpace(v.GetString("log-level")))
	if logLevel == "warning" {
		logLevel = "warn"
	}

	outputPath := strings.TrimSpace(v.GetString("output"))
	format := strings.ToLower(strings.TrimSpace(v.GetString("format")))
	if format == "" {
		format = FormatFromPath(outputPath)
	}

	inputPath := strings.TrimSpace(v.GetString("input"))
	if inputPath != "" {
		inputPath = filepath.Clean(inputPath)
	}

	cfg := Config{
		ConfigFile:    configFile,
		InputPath:     inputPath,
		OutputPath:    outputPath,
		Format:        format,
		MaxSentences:  v.GetInt("max-sentences"),
		Workers:       v.GetInt("workers"),
		Progress:      v.GetBool("progress"),
		LogLevel:      logLevel,
		LogDir:        strings.TrimSpace(v.GetString("log-dir")),
		IncludeHeader: includeHeader,
		IncludeBody:   includeBody,
		ExcludeHeader: excludeHeader,
		ExcludeBody:   excludeBody,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FormatFromPath picks an output format from a file extension, defaulting to json.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func validateConfig(cfg Config) error {
	if cfg.InputPath == "" {
		return fmt.Errorf("--input is required")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("--output must not be empty")
	}
	switch cfg.Format {
	case FormatJSON, FormatJSONL, FormatYAML:
	default:
		return fmt.Errorf("invalid --format: %s", cfg.Format)
	}
	if cfg.MaxSentences < 1 {
		return fmt.Errorf("--max-sentences must be at least 1")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

// readConfigFile loads path into v. Without an explicit path the default file is used
// when it exists. It returns the file actually read, if any.
func readConfigFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return "", nil
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("reading config %s: %w", path, err)
	}
	return path, nil
}

// stringArray reads a repeatable flag. Values given on the command line are taken
// verbatim so regexes containing commas survive. An environment value is one pattern,
// spaces included. The config file may hold a single pattern or a list.
func stringArray(cmd *cobra.Command, v *viper.Viper, name string) ([]string, error) {
	if cmd.Flags().Changed(name) {
		return cmd.Flags().GetStringArray(name)
	}
	if env := os.Getenv(envName(name)); strings.TrimSpace(env) != "" {
		return []string{env}, nil
	}
	if !v.InConfig(name) {
		return nil, nil
	}

	switch value := v.Get(name).(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		return []string{value}, nil
	case []any:
		patterns := make([]string, 0, len(value))
		for _, item := range value {
			pattern, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("config %s: pattern %v is not a string", name, item)
			}
			patterns = append(patterns, pattern)
		}
		return patterns, nil
	default:
		return nil, fmt.Errorf("config %s: expected a pattern or a list of patterns", name)
	}
}

func envName(flag string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// DefaultConfigPath returns ~/.inbox-triage/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".inbox-triage", "config.yaml"), nil
}
