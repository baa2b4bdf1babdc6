package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/directive/internal/ui"
)

// SourceProvider determines and retrieves the raw model response.
type SourceProvider struct {
	path  string
	stdin *os.File
	// readClipboard is swapped in tests.
	readClipboard func() (string, error)
	quiet         bool
}

// New creates a provider. A non-empty path ("-" means stdin) takes precedence
// over piped stdin and the clipboard.
func New(path string) *SourceProvider {
	return &SourceProvider{
		path:          path,
		stdin:         os.Stdin,
		readClipboard: clipboard.ReadAll,
	}
}

// Quiet suppresses the "reading from" headers, for use under the TUI.
func (sp *SourceProvider) Quiet() *SourceProvider {
	sp.quiet = true
	return sp
}

// GetContent retrieves content from the file, stdin (if piped) or the
// clipboard. Empty content is not an error.
func (sp *SourceProvider) GetContent() (string, error) {
	switch {
	case sp.path == "-":
		return sp.readStdin()
	case sp.path != "":
		sp.header("--- Reading from %s ---", sp.path)
		data, err := os.ReadFile(sp.path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", sp.path, err)
		}
		return string(data), nil
	case sp.isPiped():
		return sp.readStdin()
	}

	sp.header("--- Reading from clipboard ---")
	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	return content, nil
}

func (sp *SourceProvider) isPiped() bool {
	if sp.stdin == nil {
		return false
	}
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func (sp *SourceProvider) readStdin() (string, error) {
	sp.header("--- Reading from stdin ---")
	content, err := io.ReadAll(sp.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(content), nil
}

func (sp *SourceProvider) header(format string, a ...interface{}) {
	if !sp.quiet {
		ui.Header(format, a...)
	}
}
