package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/directive/model"
)

func TestSummaryRoundTrip(t *testing.T) {
	raw := "Done.\n\n--- Work Summary ---\nAdded a file.\n\nBye.\n"
	res := Parse(raw)

	assert.Equal(t, "Added a file.", res.Summary)
	assert.Equal(t, "Done.\n\nBye.\n", res.Narrative)
	assert.NotContains(t, res.Narrative, "Added a file.")
}

func TestExtractSections(t *testing.T) {
	raw := "Intro.\n\n" +
		"**--- Work Summary ---**\n\nFirst summary.\nSecond line.\n\n" +
		"## --- Work Description ---\nDescribes it.\n" +
		"--- Work Summary ---\nIgnored duplicate.\n"
	s := ExtractSections(raw)

	assert.Equal(t, "First summary.\nSecond line.", s.Summary)
	assert.Equal(t, "Describes it.", s.Description)
	assert.Len(t, s.Spans, 3)
	assert.Equal(t, "Intro.", Narrative(raw, s.Spans))
}

func TestNarrativeSeams(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []model.Span
		want  string
	}{
		{name: "no spans", text: "a\n\n\nb", want: "a\n\n\nb"},
		{name: "collapse blank lines", text: "a\n\n\nXX\n\n\nb", spans: []model.Span{{Start: 4, End: 6}}, want: "a\n\nb"},
		{name: "single newline", text: "aXXb\nc", spans: []model.Span{{Start: 1, End: 3}}, want: "ab\nc"},
		{name: "leading span", text: "XX\n\nrest", spans: []model.Span{{Start: 0, End: 2}}, want: "rest"},
		{name: "overlapping spans", text: "a\nXXXX\nb", spans: []model.Span{{Start: 2, End: 5}, {Start: 3, End: 6}}, want: "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Narrative(tt.text, tt.spans)); diff != "" {
				t.Errorf("Narrative() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
