package ui

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter provides terminal syntax highlighting for previews and diffs.
type Highlighter struct {
	enabled   bool
	formatter chroma.Formatter
	style     *chroma.Style
}

// NewHighlighter creates a Highlighter. A disabled one returns input unchanged.
func NewHighlighter(enabled bool) *Highlighter {
	return &Highlighter{
		enabled:   enabled,
		formatter: formatters.Get("terminal256"),
		style:     styles.Get("monokai"),
	}
}

// Highlight colors code using the lexer for language.
func (h *Highlighter) Highlight(code, language string) string {
	if h == nil || !h.enabled {
		return code
	}
	return h.format(code, lexers.Get(language))
}

// HighlightFile picks the lexer from the file name.
func (h *Highlighter) HighlightFile(code, filename string) string {
	if h == nil || !h.enabled {
		return code
	}
	return h.format(code, lexers.Match(filename))
}

func (h *Highlighter) format(code string, lexer chroma.Lexer) string {
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return buf.String()
}
