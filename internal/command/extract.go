package command

import (
	"fmt"
	"strings"

	"github.com/sokinpui/directive/model"
)

// shellLangs are the fence info strings treated as command batches.
var shellLangs = map[string]struct{}{
	"bash":        {},
	"sh":          {},
	"shell":       {},
	"zsh":         {},
	"fish":        {},
	"console":     {},
	"terminal":    {},
	"cmd":         {},
	"powershell":  {},
	"ps1":         {},
	"shellscript": {},
}

// IsShellLang reports whether a fence language tags a command block.
func IsShellLang(lang string) bool {
	_, ok := shellLangs[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// Extractor pulls shell commands out of a response and classifies them.
type Extractor struct {
	classifier *Classifier
}

// NewExtractor creates an extractor. A nil classifier uses the built-in rules.
func NewExtractor(classifier *Classifier) *Extractor {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Extractor{classifier: classifier}
}

// Extract returns one entry per non-blank line of every shell-tagged fence,
// flattened across fences in text order. CRLF line endings are read as LF and
// offsets refer to the text with LF endings.
func (e *Extractor) Extract(raw string) ([]model.CommandEntry, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	blocks, err := ExtractCodeBlocks([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to walk response markdown: %w", err)
	}

	var entries []model.CommandEntry
	for _, block := range blocks {
		if !IsShellLang(block.Lang) {
			continue
		}
		offset := block.Offset
		for _, line := range strings.Split(block.Content, "\n") {
			lineOffset := offset
			offset += len(line) + 1
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			entry := e.classifier.Classify(line)
			entry.Offset = lineOffset
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
