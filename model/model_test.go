package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]OperationKind{"Create": Create, " modify ": Modify, "DELETE": Delete} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseKind("Rename")
	assert.False(t, ok)

	assert.Equal(t, "Delete File", Delete.Label())
	assert.Equal(t, "unknown", OperationKind(0).String())
}

func TestSpanContains(t *testing.T) {
	s := Span{Start: 3, End: 6}
	assert.False(t, s.Contains(2))
	assert.True(t, s.Contains(3))
	assert.True(t, s.Contains(5))
	assert.False(t, s.Contains(6))
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Kind: ResultSuccess, Path: "/a", Op: Create},
		{Kind: ResultSuccess, Path: "/b", Op: Modify},
		{Kind: ResultFailure, Path: "/c", Op: Modify},
		{Kind: ResultSuccess, Path: "/d", Op: Delete},
		{Kind: ResultInfo, Path: "/e", Op: Create},
		{Kind: ResultWarning, Message: "Skipped modify x.go"},
	}
	assert.Equal(t, Summary{
		Created:  []string{"/a"},
		Modified: []string{"/b"},
		Deleted:  []string{"/d"},
		Failed:   []string{"/c"},
	}, Summarize(results))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "⚠️ Skipped", Warningf("Skipped").String())
	assert.Equal(t, "ℹ️ note 1", Infof("note %d", 1).String())
}
