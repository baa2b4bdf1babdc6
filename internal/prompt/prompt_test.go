package prompt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/directive/internal/executor"
	"github.com/sokinpui/directive/model"
)

func TestDecide(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(existing, []byte("package main\n"), 0o644))

	tests := []struct {
		name  string
		input string
		op    model.Operation
		want  executor.Decision
	}{
		{"yes applies", "y\n", model.Operation{Kind: model.Create, ResolvedPath: filepath.Join(dir, "new.txt"), Content: "hi\n"}, executor.Apply},
		{"full word", "YES\n", model.Operation{Kind: model.Delete, ResolvedPath: existing}, executor.Apply},
		{"empty cancels", "\n", model.Operation{Kind: model.Create, ResolvedPath: filepath.Join(dir, "new.txt")}, executor.Cancel},
		{"diff on modify", "d\n", model.Operation{Kind: model.Modify, ResolvedPath: existing, Content: "package main\n\nfunc main() {}\n"}, executor.ViewDiff},
		{"diff on delete cancels", "d\n", model.Operation{Kind: model.Delete, ResolvedPath: existing}, executor.Cancel},
		{"answer without newline", "y", model.Operation{Kind: model.Create, ResolvedPath: filepath.Join(dir, "x")}, executor.Apply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out, nil)
			got, err := p.Decide(context.Background(), tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), tt.op.Kind.Label())
		})
	}
}

func TestDecideModifyShowsDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	var out bytes.Buffer
	p := New(strings.NewReader("n\n"), &out, nil)
	_, err := p.Decide(context.Background(), model.Operation{Kind: model.Modify, ResolvedPath: path, Content: "two\n"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "-one")
	assert.Contains(t, out.String(), "+two")
	assert.Contains(t, out.String(), "[y/N/d]")
}

func TestDecideClosedInput(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, nil)
	got, err := p.Decide(context.Background(), model.Operation{Kind: model.Create, ResolvedPath: "/tmp/x"})
	assert.Error(t, err)
	assert.Equal(t, executor.Cancel, got)
}
