package diff

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sokinpui/directive/internal/ui"
)

// Unified produces a unified diff between old and new content, followed by a
// count line. It returns "" when the contents are equal.
func Unified(filename, oldContent, newContent string, contextLines int) string {
	if contextLines <= 0 {
		contextLines = 3
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  contextLines,
	}
	result, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("(diff generation failed: %v)", err)
	}
	if result == "" {
		return ""
	}

	adds, dels := 0, 0
	for _, line := range strings.Split(result, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			adds++
		} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			dels++
		}
	}
	return fmt.Sprintf("%s\n%d insertion(s), %d deletion(s)", result, adds, dels)
}

// TerminalViewer prints a highlighted unified diff of the two files.
type TerminalViewer struct {
	Out         io.Writer
	Highlighter *ui.Highlighter
}

// NewTerminalViewer writes to out, or stderr when out is nil.
func NewTerminalViewer(out io.Writer, h *ui.Highlighter) *TerminalViewer {
	if out == nil {
		out = os.Stderr
	}
	return &TerminalViewer{Out: out, Highlighter: h}
}

// Show implements executor.DiffViewer.
func (v *TerminalViewer) Show(_ context.Context, originalPath, proposedPath string) error {
	oldContent, err := os.ReadFile(originalPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", originalPath, err)
	}
	newContent, err := os.ReadFile(proposedPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", proposedPath, err)
	}

	d := Unified(filepath.Base(originalPath), string(oldContent), string(newContent), 3)
	if d == "" {
		_, err = fmt.Fprintln(v.Out, "(no changes)")
		return err
	}
	_, err = fmt.Fprintln(v.Out, v.Highlighter.Highlight(d, "diff"))
	return err
}
