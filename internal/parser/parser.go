package parser

import (
	"sort"
	"strings"

	"github.com/sokinpui/directive/model"
)

// Result is everything recovered from one raw response.
type Result struct {
	Operations  []model.Operation
	Summary     string
	Description string
	// Narrative is the response with directives and sections cut out.
	Narrative string
}

// Parser runs a fixed list of strategies over a response. It never fails:
// text that matches nothing yields an empty result.
type Parser struct {
	strategies []Strategy
}

// New returns a parser with the given strategies, or the default set when none are given.
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// DefaultStrategies is the fenced pattern, the Markdown cascade and the delete pattern.
func DefaultStrategies() []Strategy {
	return []Strategy{FencedStrategy{}, MarkdownCascade(), DeleteStrategy{}}
}

// Parse extracts operations in text order, plus the trailing sections and the
// cleaned narrative.
func (p *Parser) Parse(raw string) Result {
	raw = NormalizeNewlines(raw)

	var ops []model.Operation
	for _, s := range p.strategies {
		ops = append(ops, s.Extract(raw)...)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Span.Start < ops[j].Span.Start
	})
	ops = dropFencedContent(ops)

	sections := ExtractSections(raw)
	spans := make([]model.Span, 0, len(ops)+len(sections.Spans))
	for _, op := range ops {
		spans = append(spans, op.Span)
	}
	spans = append(spans, sections.Spans...)

	return Result{
		Operations:  ops,
		Summary:     sections.Summary,
		Description: sections.Description,
		Narrative:   Narrative(raw, spans),
	}
}

// dropFencedContent removes operations whose directive line sits inside the
// fenced content of an earlier operation. That text belongs to the file being
// written. ops must be sorted by span start.
func dropFencedContent(ops []model.Operation) []model.Operation {
	kept := ops[:0:0]
	var fences []model.Span
outer:
	for _, op := range ops {
		for _, f := range fences {
			if f.Contains(op.Span.Start) {
				continue outer
			}
		}
		kept = append(kept, op)
		if op.Strategy == StrategyFenced {
			fences = append(fences, op.Span)
		}
	}
	return kept
}

// NormalizeNewlines turns CRLF line endings into LF. Spans and offsets are
// reported against the normalized text.
func NormalizeNewlines(raw string) string {
	return strings.ReplaceAll(raw, "\r\n", "\n")
}

// Parse runs the default parser.
func Parse(raw string) Result {
	return New().Parse(raw)
}
