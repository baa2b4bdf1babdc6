package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/directive/model"
)

func TestExtractPlainCommands(t *testing.T) {
	raw := "Run:\n\n```bash\necho a\necho b\n\necho c\n```\n"
	entries, err := NewExtractor(nil).Extract(raw)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	for i, want := range []string{"echo a", "echo b", "echo c"} {
		assert.Equal(t, want, entries[i].Text)
		assert.False(t, entries[i].IsInteractive)
		assert.Empty(t, entries[i].DefaultResponse)
		assert.Equal(t, want, raw[entries[i].Offset:entries[i].Offset+len(want)])
	}
}

func TestExtractGitClone(t *testing.T) {
	entries, err := NewExtractor(nil).Extract("```sh\ngit clone https://example/repo.git\n```\n")
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, model.CommandEntry{
		Text:            "git clone https://example/repo.git",
		IsInteractive:   true,
		DefaultResponse: "",
		Rule:            "git-clone",
		Offset:          6,
	}, entries[0])
}

func TestExtractFlattensShellFences(t *testing.T) {
	raw := "First:\n```shell\nmake build\n```\n" +
		"Some code:\n```go\nfmt.Println(\"not a command\")\n```\n" +
		"Then:\n```console\n  go test ./...  \n```\n" +
		"And an untagged fence:\n```\nls\n```\n"
	entries, err := NewExtractor(nil).Extract(raw)
	require.NoError(t, err)

	var texts []string
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"make build", "go test ./..."}, texts)
}

func TestExtractNoFences(t *testing.T) {
	entries, err := NewExtractor(nil).Extract("Nothing to run here.")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		command  string
		rule     string
		response string
	}{
		{"docker run -it postgres psql", "container-tty", "exit"},
		{"podman exec -ti web sh", "container-tty", "exit"},
		{"npx create-react-app my-app", "scaffold", "y"},
		{"npm init vite@latest", "scaffold", "y"},
		{"git clone git@github.com:a/b.git", "git-clone", ""},
		{"ssh deploy@example.com", "ssh", "yes"},
		{"psql -U postgres", "psql", `\q`},
		{"mysql -u root -p", "mysql", "exit"},
		{"mongosh", "mongo", "exit"},
		{"sqlite3 app.db", "sqlite", ".quit"},
		{"redis-cli -p 6380", "redis-cli", "quit"},
		{"ls -la", "", ""},
		{"go test ./...", "", ""},
		{"git status", "", ""},
	}

	c := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			entry := c.Classify(tt.command)
			assert.Equal(t, tt.command, entry.Text)
			assert.Equal(t, tt.rule != "", entry.IsInteractive)
			assert.Equal(t, tt.rule, entry.Rule)
			assert.Equal(t, tt.response, entry.DefaultResponse)
		})
	}
}

func TestLoadClassifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - name: deploy
    pattern: '^make deploy'
    response: "yes"
  - name: clone-override
    pattern: 'git clone'
    response: "n"
`), 0644))

	c, err := LoadClassifier(path, []Rule{{Name: "extra", Pattern: `^terraform apply`, Response: "yes"}})
	require.NoError(t, err)

	assert.Equal(t, "deploy", c.Classify("make deploy ENV=prod").Rule)
	assert.Equal(t, "extra", c.Classify("terraform apply").Rule)

	clone := c.Classify("git clone x")
	assert.Equal(t, "clone-override", clone.Rule)
	assert.Equal(t, "n", clone.DefaultResponse)

	assert.Equal(t, "ssh", c.Classify("ssh host").Rule)
}

func TestLoadRulesErrors(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, rules)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules: [:"), 0644))
	_, err = LoadRules(bad)
	assert.Error(t, err)

	_, err = NewClassifier([]Rule{{Name: "broken", Pattern: "("}})
	assert.ErrorContains(t, err, `"broken"`)
}

func TestExtractCRLF(t *testing.T) {
	raw := "Run:\r\n\r\n```bash\r\necho a\r\necho b\r\n```\r\n"
	entries, err := NewExtractor(nil).Extract(raw)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "echo a", entries[0].Text)
	assert.Equal(t, "echo b", entries[1].Text)
	lf := strings.ReplaceAll(raw, "\r\n", "\n")
	assert.Equal(t, "echo a", lf[entries[0].Offset:entries[0].Offset+len("echo a")])
}
