package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/directive/internal/diff"
	"github.com/sokinpui/directive/internal/executor"
	"github.com/sokinpui/directive/internal/ui"
	"github.com/sokinpui/directive/model"
)

// previewLines caps how much of a new file is shown before asking.
const previewLines = 40

// Prompter implements executor.Decider using a line-oriented reader.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	highlighter *ui.Highlighter
}

// New constructs a prompter. nil in/out fall back to stdin/stderr.
func New(in io.Reader, out io.Writer, h *ui.Highlighter) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		highlighter: h,
	}
}

// Decide shows what the operation would do and reads the answer.
// Create and Delete ask [y/N]; Modify asks [y/N/d].
func (p *Prompter) Decide(ctx context.Context, op model.Operation) (executor.Decision, error) {
	if err := ctx.Err(); err != nil {
		return executor.Cancel, err
	}

	fmt.Fprintf(p.out, "\n%s %s\n", ui.HeaderColor.Sprint(op.Kind.Label()+":"), ui.PathColor.Sprint(op.ResolvedPath))
	p.preview(op)

	choices := "[y/N]"
	if op.Kind == model.Modify {
		choices = "[y/N/d]"
	}
	fmt.Fprint(p.out, ui.Prompt("Apply? %s: ", choices))

	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return executor.Cancel, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return executor.Apply, nil
	case "d", "diff":
		if op.Kind == model.Modify {
			return executor.ViewDiff, nil
		}
	}
	return executor.Cancel, nil
}

func (p *Prompter) preview(op model.Operation) {
	switch op.Kind {
	case model.Create:
		body := op.Content
		lines := strings.Split(body, "\n")
		if len(lines) > previewLines {
			body = strings.Join(lines[:previewLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-previewLines)
		}
		fmt.Fprintln(p.out, p.highlighter.HighlightFile(body, filepath.Base(op.ResolvedPath)))
	case model.Modify:
		current, err := os.ReadFile(op.ResolvedPath)
		if err != nil {
			fmt.Fprintf(p.out, "(cannot read current content: %v)\n", err)
			return
		}
		d := diff.Unified(filepath.Base(op.ResolvedPath), string(current), op.Content, 3)
		if d == "" {
			fmt.Fprintln(p.out, "(no changes)")
			return
		}
		fmt.Fprintln(p.out, p.highlighter.Highlight(d, "diff"))
	}
}

var _ executor.Decider = (*Prompter)(nil)
