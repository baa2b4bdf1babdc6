package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/directive/model"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() { Output, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func TestRel(t *testing.T) {
	assert.Equal(t, "src/a.go", Rel("/proj", "/proj/src/a.go"))
	assert.Equal(t, "/elsewhere/b.go", Rel("/proj", "/elsewhere/b.go"))
	assert.Equal(t, "/proj/a.go", Rel("", "/proj/a.go"))
}

func TestPrintResponse(t *testing.T) {
	buf := capture(t)
	PrintResponse(model.Response{
		Narrative: "  Here you go.\n\n",
		Results: []model.Result{
			model.Successf("Created file: %s", "/p/a.go"),
			model.Failuref("Failed to delete %s", "/p/b.go"),
		},
		Commands: []model.CommandEntry{{Text: "make"}},
		Summary:  "Did things.",
	})

	out := buf.String()
	assert.Contains(t, out, "Here you go.\n")
	assert.Contains(t, out, "--- Operations ---")
	assert.Contains(t, out, "✅ Created file: /p/a.go")
	assert.Contains(t, out, "❌ Failed to delete /p/b.go")
	assert.Contains(t, out, "--- Commands (not run) ---")
	assert.Contains(t, out, "  $ make")
	assert.Contains(t, out, "Did things.")
	assert.NotContains(t, out, "Work Description")
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)
	PrintSummary("Undo", model.Summary{Message: "Undid last operation.", Deleted: []string{"/p/a.go"}})
	assert.Equal(t, "\n--- Undo ---\nUndid last operation.\nDeleted 1 file(s):\n  - /p/a.go\n", buf.String())

	buf.Reset()
	PrintSummary("Summary", model.Summary{})
	assert.Contains(t, buf.String(), "No files were updated.")
}

func TestStep(t *testing.T) {
	buf := capture(t)
	Step(2, 3, "go test ./...")
	assert.Equal(t, "[2/3] $ go test ./...\n", buf.String())
}

func TestHighlighterDisabled(t *testing.T) {
	h := NewHighlighter(false)
	assert.Equal(t, "package main", h.Highlight("package main", "go"))
	var nilH *Highlighter
	assert.Equal(t, "x", nilH.HighlightFile("x", "a.go"))
	assert.NotEmpty(t, NewHighlighter(true).HighlightFile("package main\n", "main.go"))
}

func TestPrintDispatched(t *testing.T) {
	buf := capture(t)
	PrintResponse(model.Response{
		Commands:   []model.CommandEntry{{Text: "make"}, {Text: "make test"}},
		Dispatched: []string{"make"},
	})
	assert.Equal(t, "\n--- Commands ---\n  $ make\n", buf.String())
}
