package diff

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/directive/internal/ui"
)

func TestUnified(t *testing.T) {
	d := Unified("a.txt", "one\ntwo\nthree\n", "one\n2\nthree\nfour\n", 0)

	assert.Contains(t, d, "--- a/a.txt")
	assert.Contains(t, d, "+++ b/a.txt")
	assert.Contains(t, d, "-two\n")
	assert.Contains(t, d, "+2\n")
	assert.Contains(t, d, "+four\n")
	assert.Contains(t, d, "2 insertion(s), 1 deletion(s)")
}

func TestUnifiedEqual(t *testing.T) {
	assert.Empty(t, Unified("a.txt", "same\n", "same\n", 3))
}

func TestTerminalViewer(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "main.go")
	proposed := filepath.Join(dir, "proposed-main.go")
	require.NoError(t, os.WriteFile(orig, []byte("package a\n"), 0644))
	require.NoError(t, os.WriteFile(proposed, []byte("package b\n"), 0644))

	var out bytes.Buffer
	v := NewTerminalViewer(&out, ui.NewHighlighter(false))
	require.NoError(t, v.Show(context.Background(), orig, proposed))
	assert.Contains(t, out.String(), "-package a")
	assert.Contains(t, out.String(), "+package b")

	out.Reset()
	require.NoError(t, v.Show(context.Background(), orig, orig))
	assert.Equal(t, "(no changes)\n", out.String())

	assert.Error(t, v.Show(context.Background(), filepath.Join(dir, "missing"), proposed))
}
