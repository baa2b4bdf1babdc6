package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/directive/model"
)

func TestRegistryDeduplicatesByPath(t *testing.T) {
	r := NewRegistry(
		model.KnownFile{DisplayName: "a.ts", FullPath: "/proj/src/a.ts"},
		model.KnownFile{DisplayName: "src/a.ts", FullPath: "/proj/src/../src/a.ts"},
		model.KnownFile{FullPath: "/proj/b.go"},
	)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []model.KnownFile{
		{DisplayName: "a.ts", FullPath: "/proj/src/a.ts"},
		{DisplayName: "b.go", FullPath: "/proj/b.go"},
	}, r.Files())
	assert.False(t, r.Add("x", ""))
}

func TestRegistryLookupPrecedence(t *testing.T) {
	r := NewRegistry(
		model.KnownFile{DisplayName: "pkg/util.go", FullPath: "/proj/pkg/util.go"},
		model.KnownFile{DisplayName: "util.go", FullPath: "/proj/internal/util.go"},
		model.KnownFile{DisplayName: "handler", FullPath: "/proj/api/v1/handler.go"},
	)

	tests := []struct {
		stated string
		want   string
	}{
		// Last segment against display name wins over the exact display name.
		{"pkg/util.go", "/proj/internal/util.go"},
		{"util.go", "/proj/internal/util.go"},
		{"./util.go", "/proj/internal/util.go"},
		{"handler", "/proj/api/v1/handler.go"},
		{"v1/handler.go", "/proj/api/v1/handler.go"},
		{"api/v1/handler.go", "/proj/api/v1/handler.go"},
	}
	for _, tt := range tests {
		t.Run(tt.stated, func(t *testing.T) {
			got, ok := r.Lookup(tt.stated)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.FullPath)
		})
	}

	for _, miss := range []string{"", "1/handler.go", "other.go"} {
		_, ok := r.Lookup(miss)
		assert.False(t, ok, miss)
	}
}

func TestRegistryLookupDisplayNameEqualsStated(t *testing.T) {
	r := NewRegistry(model.KnownFile{DisplayName: "docs/guide", FullPath: "/proj/documentation/guide.md"})
	got, ok := r.Lookup("docs/guide")
	require.True(t, ok)
	assert.Equal(t, "/proj/documentation/guide.md", got.FullPath)
}

func TestCollectRegistry(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"main.go",
		"internal/app/app.go",
		".git/config",
		"node_modules/x/index.js",
		".directive/state",
	} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	}

	r, err := CollectRegistry([]string{root, filepath.Join(root, "main.go")}, 0)
	require.NoError(t, err)

	var names []string
	for _, f := range r.Files() {
		names = append(names, f.DisplayName)
	}
	assert.ElementsMatch(t, []string{"main.go", "internal/app/app.go"}, names)

	picked, err := CollectRegistry([]string{filepath.Join(root, "internal", "app", "app.go")}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, picked.Len())
	assert.Equal(t, "app.go", picked.Files()[0].DisplayName)

	limited, err := CollectRegistry([]string{root}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, limited.Len())

	_, err = CollectRegistry([]string{filepath.Join(root, "missing")}, 0)
	assert.Error(t, err)
}

func TestCollectedRegistryBindsTheStatedFile(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a/index.ts", "src/utils/index.ts"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	}
	r, err := CollectRegistry([]string{root}, 0)
	require.NoError(t, err)

	for stated, want := range map[string]string{
		"src/utils/index.ts": "src/utils/index.ts",
		"utils/index.ts":     "src/utils/index.ts",
		"a/index.ts":         "a/index.ts",
	} {
		got, ok := r.Lookup(stated)
		require.True(t, ok, stated)
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(want)), got.FullPath, stated)
	}
}
