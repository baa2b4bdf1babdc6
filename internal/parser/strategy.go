package parser

import (
	"regexp"
	"strings"

	"github.com/sokinpui/directive/model"
)

// Strategy is one independent attempt at pulling operations out of a response.
type Strategy interface {
	Name() string
	Extract(text string) []model.Operation
}

// Strategy names, recorded on every operation they produce.
const (
	StrategyFenced           = "fenced"
	StrategyMarkdownStrict   = "markdown-strict"
	StrategyMarkdownRelaxed  = "markdown-relaxed"
	StrategyMarkdownFallback = "markdown-fallback"
	StrategyDelete           = "delete"
)

// directivePrefix tolerates heading hashes and an opening bold marker before the keyword.
const directivePrefix = `^[ \t]*(?:#{1,6}[ \t]+)?(?:\*\*|__)?`

var (
	// fencedRegex matches a directive line, an optional blank line and one fenced block.
	fencedRegex = regexp.MustCompile(
		`(?m)` + directivePrefix + `(?P<keyword>Create|Modify) File:[ \t]*(?P<path>[^\n]+?)[ \t]*\n` +
			`(?:[ \t]*\n)?` +
			`[ \t]*` + "```" + `(?P<lang>[\w.+#-]*)[^\n]*\n` +
			`(?P<content>[\s\S]*?)` +
			`^[ \t]*` + "```" + `[ \t]*$`)

	// markdownStrictRegex requires a blank line between the directive and its prose.
	markdownStrictRegex = regexp.MustCompile(
		`(?m)` + directivePrefix + `(?P<keyword>Create|Modify) File:[ \t]*(?P<path>[^\n]*?(?i:\.md))(?:\*\*|__|` + "`" + `)*[ \t]*\n[ \t]*\n`)

	// markdownRelaxedRegex lets the prose start on the very next line.
	markdownRelaxedRegex = regexp.MustCompile(
		`(?m)` + directivePrefix + `(?P<keyword>Create|Modify) File:[ \t]*(?P<path>[^\n]*?(?i:\.md))(?:\*\*|__|` + "`" + `)*[ \t]*\n`)

	// markdownFallbackRegex takes the first Markdown directive anywhere and everything after it.
	markdownFallbackRegex = regexp.MustCompile(
		`(?s)(?P<keyword>Create|Modify) File:[ \t]*(?P<path>[^\s*]+?(?i:\.md))\b(?:\*\*|__|` + "`" + `)*(?P<content>.*)`)

	deleteRegex = regexp.MustCompile(
		`(?m)` + directivePrefix + `Delete File:[ \t]*(?P<path>[^\n]+?)[ \t]*$`)

	// boundaryRegex marks where unfenced Markdown content stops.
	boundaryRegex = regexp.MustCompile(
		`(?m)` + directivePrefix + `(?:Create|Modify|Delete) File:|^[ \t]*(?:#{1,6}[ \t]+)?(?:\*\*)?--- Work (?:Summary|Description) ---`)

	wrappingFenceRegex = regexp.MustCompile("^```[^\\n]*\\n([\\s\\S]*?)\\n?```[ \\t]*\\n?$")
)

type group struct {
	text       string
	start, end int
}

// named maps the named capture groups of one match to their text and offsets.
func named(re *regexp.Regexp, text string, loc []int) map[string]group {
	result := make(map[string]group)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}
		result[name] = group{
			text:  text[loc[2*i]:loc[2*i+1]],
			start: loc[2*i],
			end:   loc[2*i+1],
		}
	}
	return result
}

// cleanPath strips markup the model tends to leave around a path, as in
// "**Modify File:** `a.ts`" or "**Create File: a.ts**".
func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "**")
	path = strings.TrimSuffix(path, "**")
	path = strings.Trim(strings.TrimSpace(path), "`")
	return strings.TrimSpace(path)
}

func isMarkdown(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".md")
}

func newOperation(keyword, path, content, strategy string, span model.Span) (model.Operation, bool) {
	kind, ok := model.ParseKind(keyword)
	if !ok {
		return model.Operation{}, false
	}
	path = cleanPath(path)
	if path == "" {
		return model.Operation{}, false
	}
	return model.Operation{
		Kind:           kind,
		StatedPath:     path,
		Content:        content,
		DirectiveLabel: kind.Label(),
		Strategy:       strategy,
		Span:           span,
	}, true
}

// FencedStrategy extracts non-Markdown create and modify directives followed by a code fence.
type FencedStrategy struct{}

func (FencedStrategy) Name() string { return StrategyFenced }

func (FencedStrategy) Extract(text string) []model.Operation {
	var ops []model.Operation
	for _, loc := range fencedRegex.FindAllStringSubmatchIndex(text, -1) {
		g := named(fencedRegex, text, loc)
		if isMarkdown(cleanPath(g["path"].text)) {
			continue // Markdown targets go through the cascade.
		}
		op, ok := newOperation(g["keyword"].text, g["path"].text, g["content"].text,
			StrategyFenced, model.Span{Start: loc[0], End: loc[1]})
		if ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// MarkdownStrategy extracts unfenced Markdown content after a directive header,
// stopping at the next directive keyword or section header.
type MarkdownStrategy struct {
	name   string
	header *regexp.Regexp
}

// Strict requires a blank line after the directive.
func Strict() MarkdownStrategy {
	return MarkdownStrategy{name: StrategyMarkdownStrict, header: markdownStrictRegex}
}

// Relaxed accepts content on the line right after the directive.
func Relaxed() MarkdownStrategy {
	return MarkdownStrategy{name: StrategyMarkdownRelaxed, header: markdownRelaxedRegex}
}

func (s MarkdownStrategy) Name() string { return s.name }

func (s MarkdownStrategy) Extract(text string) []model.Operation {
	var ops []model.Operation
	for _, loc := range s.header.FindAllStringSubmatchIndex(text, -1) {
		g := named(s.header, text, loc)
		contentStart := loc[1]
		contentEnd := len(text)
		if b := boundaryRegex.FindStringIndex(text[contentStart:]); b != nil {
			contentEnd = contentStart + b[0]
		}
		op, ok := newOperation(g["keyword"].text, g["path"].text,
			markdownContent(text[contentStart:contentEnd]),
			s.name, model.Span{Start: loc[0], End: contentEnd})
		if ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// FallbackStrategy treats everything after the first Markdown directive as its body.
// It is greedy by construction and yields at most one operation.
type FallbackStrategy struct{}

func (FallbackStrategy) Name() string { return StrategyMarkdownFallback }

func (FallbackStrategy) Extract(text string) []model.Operation {
	loc := markdownFallbackRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	g := named(markdownFallbackRegex, text, loc)
	op, ok := newOperation(g["keyword"].text, g["path"].text, markdownContent(g["content"].text),
		StrategyMarkdownFallback, model.Span{Start: loc[0], End: loc[1]})
	if !ok {
		return nil
	}
	return []model.Operation{op}
}

// markdownContent normalizes unfenced Markdown content. A body that is one
// fenced block is unwrapped to the fence body.
func markdownContent(body string) string {
	body = strings.TrimLeft(body, "\r\n")
	body = strings.TrimRight(body, " \t\r\n")
	if m := wrappingFenceRegex.FindStringSubmatch(body); m != nil {
		body = strings.TrimRight(m[1], "\n")
	}
	if body == "" {
		return ""
	}
	return body + "\n"
}

// DeleteStrategy extracts delete directives, one per line, with no content.
type DeleteStrategy struct{}

func (DeleteStrategy) Name() string { return StrategyDelete }

func (DeleteStrategy) Extract(text string) []model.Operation {
	var ops []model.Operation
	for _, loc := range deleteRegex.FindAllStringSubmatchIndex(text, -1) {
		g := named(deleteRegex, text, loc)
		op, ok := newOperation("Delete", g["path"].text, "", StrategyDelete,
			model.Span{Start: loc[0], End: loc[1]})
		if ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Cascade tries its strategies in order and returns the first non-empty result.
// Later strategies never run once an earlier one matched.
type Cascade struct {
	Strategies []Strategy
}

// MarkdownCascade is strict, then relaxed, then the greedy fallback.
func MarkdownCascade() Cascade {
	return Cascade{Strategies: []Strategy{Strict(), Relaxed(), FallbackStrategy{}}}
}

func (c Cascade) Name() string {
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.Name()
	}
	return "cascade(" + strings.Join(names, ",") + ")"
}

func (c Cascade) Extract(text string) []model.Operation {
	for _, s := range c.Strategies {
		if ops := s.Extract(text); len(ops) > 0 {
			return ops
		}
	}
	return nil
}
