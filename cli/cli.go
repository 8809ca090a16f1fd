package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sokinpui/patchspace/internal/assistant"
)

// Config holds all the command-line flag values.
type Config struct {
	Nvim        bool
	NoAnimation bool
	Loose       bool
	Watch       bool
	Extensions  []string

	LogLevel    string
	Workers     int
	MaxFileSize int64

	APIKey    string
	BaseURL   string
	Model     string
	AITimeout time.Duration
}

// BindFlags defines the shared flags on fs.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&cfg.Extensions, "extension", "e", []string{}, "Only apply changes to files with these extensions (e.g., 'py', 'js').")
	fs.BoolVar(&cfg.Loose, "loose", false, "Also accept code blocks whose preceding line only names a file path.")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "Log level: debug, info, warn or error.")
	fs.IntVar(&cfg.Workers, "workers", 8, "Number of files read concurrently when loading a folder.")
	fs.Int64Var(&cfg.MaxFileSize, "max-file-size", 0, "Skip files larger than this many bytes (0 means no limit).")
}

// BindApplyFlags defines the flags of commands that change the project.
func (cfg *Config) BindApplyFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&cfg.Nvim, "nvim", "b", false, "Load changed files into Neovim buffers without saving them.")
	fs.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")
}

// BindAIFlags defines the flags of commands that talk to the AI backend.
func (cfg *Config) BindAIFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.Model, "model", "", "Model name (default $PATCHSPACE_MODEL or "+assistant.DefaultModel+").")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI-compatible endpoint (default $PATCHSPACE_BASE_URL).")
	fs.DurationVar(&cfg.AITimeout, "timeout", assistant.DefaultTimeout, "Timeout for one AI request.")
}

// Validate normalizes the parsed values and fills AI settings from the
// environment.
func (cfg *Config) Validate() error {
	if cfg.Workers < 0 {
		return fmt.Errorf("error: --workers must not be negative")
	}
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("error: --max-file-size must not be negative")
	}

	// Normalize extensions
	for i, ext := range cfg.Extensions {
		ext = strings.TrimSpace(ext)
		if len(ext) > 0 && ext[0] != '.' {
			ext = "." + ext
		}
		cfg.Extensions[i] = ext
	}

	if cfg.APIKey == "" {
		cfg.APIKey = firstEnv("PATCHSPACE_API_KEY", "OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = firstEnv("PATCHSPACE_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = firstEnv("PATCHSPACE_BASE_URL")
	}
	return nil
}

// Assistant returns the AI client settings.
func (cfg *Config) Assistant() assistant.Config {
	return assistant.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.AITimeout,
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
