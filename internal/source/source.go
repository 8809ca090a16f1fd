package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/patchspace/internal/ui"
)

// ErrEmpty is returned when there is no response text to process.
var ErrEmpty = errors.New("source is empty, nothing to process")

// SourceProvider determines and retrieves the response text.
type SourceProvider struct {
	stdin     io.Reader
	piped     func() bool
	clipboard func() (string, error)
}

// New creates a SourceProvider reading from os.Stdin or the system clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:     os.Stdin,
		piped:     stdinPiped,
		clipboard: clipboard.ReadAll,
	}
}

// FromReader creates a SourceProvider that always reads r.
func FromReader(r io.Reader) *SourceProvider {
	return &SourceProvider{
		stdin: r,
		piped: func() bool { return true },
	}
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.piped() {
		ui.Header("--- Reading from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return nonEmpty(string(content))
	}

	if sp.clipboard == nil {
		return "", ErrEmpty
	}
	ui.Header("--- Reading from clipboard ---")
	content, err := sp.clipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return nonEmpty(content)
}

func nonEmpty(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmpty
	}
	return content, nil
}
