package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/directive/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
	FaintColor   = color.New(color.Faint)
)

// Output is where the helpers write. Tests swap it out.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// Step announces one dispatched command of a batch.
func Step(current, total int, command string) {
	InfoColor.Fprintf(Output, "[%d/%d] ", current, total)
	fmt.Fprintf(Output, "$ %s\n", command)
}

// Rel shortens path to be relative to root when possible.
func Rel(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// --- Results ---

func colorFor(kind model.ResultKind) *color.Color {
	switch kind {
	case model.ResultSuccess:
		return SuccessColor
	case model.ResultWarning:
		return WarningColor
	case model.ResultFailure:
		return ErrorColor
	default:
		return InfoColor
	}
}

// PrintResults writes the result log in order, one marked line per entry.
func PrintResults(results []model.Result) {
	for _, r := range results {
		colorFor(r.Kind).Fprintln(Output, r.String())
	}
}

// PrintResponse writes everything the presenter receives for a turn.
func PrintResponse(resp model.Response) {
	if narrative := strings.TrimSpace(resp.Narrative); narrative != "" {
		fmt.Fprintln(Output, narrative)
	}

	if len(resp.Results) > 0 {
		Header("\n--- Operations ---")
		PrintResults(resp.Results)
	}

	if len(resp.Dispatched) > 0 {
		PrintDispatched(resp.Dispatched)
	} else if len(resp.Commands) > 0 {
		Header("\n--- Commands (not run) ---")
		for _, c := range resp.Commands {
			FaintColor.Fprintf(Output, "  $ %s\n", c.Text)
		}
	}

	if resp.Summary != "" {
		Header("\n--- Work Summary ---")
		fmt.Fprintln(Output, resp.Summary)
	}
	if resp.Description != "" {
		Header("\n--- Work Description ---")
		fmt.Fprintln(Output, resp.Description)
	}
}

// PrintDispatched lists the commands that were sent to the shell.
func PrintDispatched(commands []string) {
	Header("\n--- Commands ---")
	for _, c := range commands {
		fmt.Fprintf(Output, "  $ %s\n", c)
	}
}

// --- Summaries ---

// PrintSummary writes a grouped file summary under the given title.
func PrintSummary(title string, s model.Summary) {
	Header("\n--- %s ---", title)
	if s.Message != "" {
		Info("%s", s.Message)
	}
	if len(s.Created) == 0 && len(s.Modified) == 0 && len(s.Deleted) == 0 && len(s.Failed) == 0 {
		Info("No files were updated.")
		return
	}
	printGroup(SuccessColor, "Created %d file(s):", s.Created)
	printGroup(SuccessColor, "Modified %d file(s):", s.Modified)
	printGroup(SuccessColor, "Deleted %d file(s):", s.Deleted)
	printGroup(ErrorColor, "Failed to process %d file(s):", s.Failed)
}

func printGroup(c *color.Color, format string, files []string) {
	if len(files) == 0 {
		return
	}
	c.Fprintf(Output, format+"\n", len(files))
	for _, f := range files {
		fmt.Fprintf(Output, "  - %s\n", f)
	}
}
