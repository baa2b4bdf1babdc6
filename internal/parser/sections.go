package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sokinpui/directive/model"
)

// Section header markers the model is asked to emit at the end of a reply.
const (
	SummaryHeader     = "--- Work Summary ---"
	DescriptionHeader = "--- Work Description ---"
)

var (
	sectionHeaderRegex = regexp.MustCompile(
		`(?m)^[ \t]*(?:#{1,6}[ \t]+)?(?:\*\*)?--- Work (?P<name>Summary|Description) ---(?:\*\*)?[ \t]*(?:\n|$)`)
	blankLineRegex = regexp.MustCompile(`\n[ \t]*\n`)
)

// Sections holds the optional trailing summary and description blocks.
type Sections struct {
	Summary     string
	Description string
	// Spans cover every header and its text, for removal from the narrative.
	Spans []model.Span
}

// ExtractSections finds the summary and description blocks. Each block is its
// header followed by free text up to the next blank line. The first block of
// each kind supplies the value; every block is reported in Spans.
func ExtractSections(text string) Sections {
	var s Sections
	for _, loc := range sectionHeaderRegex.FindAllStringSubmatchIndex(text, -1) {
		g := named(sectionHeaderRegex, text, loc)

		bodyStart := loc[1]
		for bodyStart < len(text) {
			nl := strings.IndexByte(text[bodyStart:], '\n')
			if nl < 0 || strings.TrimSpace(text[bodyStart:bodyStart+nl]) != "" {
				break
			}
			bodyStart += nl + 1
		}

		bodyEnd := len(text)
		if b := blankLineRegex.FindStringIndex(text[bodyStart:]); b != nil {
			bodyEnd = bodyStart + b[0]
		}
		if h := sectionHeaderRegex.FindStringIndex(text[bodyStart:bodyEnd]); h != nil {
			bodyEnd = bodyStart + h[0]
		}

		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		switch g["name"].text {
		case "Summary":
			if s.Summary == "" {
				s.Summary = body
			}
		case "Description":
			if s.Description == "" {
				s.Description = body
			}
		}
		s.Spans = append(s.Spans, model.Span{Start: loc[0], End: bodyEnd})
	}
	return s
}

// Narrative removes the given spans from text. Where a span is cut out, the
// surrounding newlines collapse to at most one blank line.
func Narrative(text string, spans []model.Span) string {
	merged := mergeSpans(spans)
	for i := len(merged) - 1; i >= 0; i-- {
		sp := merged[i]
		text = joinSeam(text[:sp.Start], text[sp.End:])
	}
	return text
}

func mergeSpans(spans []model.Span) []model.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]model.Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []model.Span{sorted[0]}
	for _, sp := range sorted[1:] {
		last := &merged[len(merged)-1]
		if sp.Start <= last.End {
			if sp.End > last.End {
				last.End = sp.End
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func joinSeam(left, right string) string {
	l := strings.TrimRight(left, "\n")
	r := strings.TrimLeft(right, "\n")
	newlines := (len(left) - len(l)) + (len(right) - len(r))

	switch {
	case l == "":
		return r
	case r == "":
		if strings.HasSuffix(right, "\n") {
			return l + "\n"
		}
		return l
	case newlines >= 2:
		return l + "\n\n" + r
	case newlines == 1:
		return l + "\n" + r
	default:
		return l + r
	}
}
