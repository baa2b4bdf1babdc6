package command

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a fenced code block found in markdown content.
type CodeBlock struct {
	// Lang is the language identifier of the code block (e.g., "bash").
	Lang string
	// Content is the raw text inside the code block.
	Content string
	// Offset is the byte offset of the first content line in the source.
	Offset int
}

// ExtractCodeBlocks walks the markdown AST and returns every fenced code block
// in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		offset := -1
		if lines.Len() > 0 {
			offset = lines.At(0).Start
		}
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Lang:    strings.ToLower(string(fenced.Language(source))),
			Content: content.String(),
			Offset:  offset,
		})
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}
