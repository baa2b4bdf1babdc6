package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/directive/model"
)

// Rule is one interactive-program signature and the response injected for it.
type Rule struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Response string `yaml:"response"`
}

// RulesFile is the YAML schema root of a rules file.
type RulesFile struct {
	Rules []Rule `yaml:"rules"`
}

type compiledRule struct {
	re   *regexp.Regexp
	rule Rule
}

// Classifier labels commands as interactive. Rules are tried in order and the
// first match wins.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles the given rules.
func NewClassifier(rules []Rule) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{re: re, rule: r})
	}
	return &Classifier{rules: compiled}, nil
}

// DefaultClassifier uses only the built-in rules.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(err) // built-in patterns are constant
	}
	return c
}

// LoadClassifier puts the rules from path (if it exists) and the extra rules
// ahead of the built-in ones.
func LoadClassifier(path string, extra []Rule) (*Classifier, error) {
	var rules []Rule
	if path != "" {
		fileRules, err := LoadRules(path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	rules = append(rules, extra...)
	rules = append(rules, DefaultRules()...)
	return NewClassifier(rules)
}

// LoadRules reads a YAML rules file. A missing file yields no rules.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return file.Rules, nil
}

// Classify builds the entry for one command line.
func (c *Classifier) Classify(command string) model.CommandEntry {
	entry := model.CommandEntry{Text: command}
	for _, r := range c.rules {
		if r.re.MatchString(command) {
			entry.IsInteractive = true
			entry.DefaultResponse = r.rule.Response
			entry.Rule = r.rule.Name
			break
		}
	}
	return entry
}

// DefaultRules lists the known interactive signatures. Container sessions come
// before the generic tools so "docker run -it postgres psql" exits the container.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "container-tty", Pattern: `\b(?:docker|podman)\s+(?:run|exec)\b.*\s-(?:it|ti)\b`, Response: "exit"},
		{Name: "scaffold", Pattern: `\b(?:npx\s+create-[\w.-]+|npm\s+(?:create|init)\b|yarn\s+create\b|pnpm\s+create\b|ng\s+new\b|vue\s+create\b|npx\s+degit\b|cargo\s+generate\b|rails\s+new\b|composer\s+create-project\b)`, Response: "y"},
		{Name: "git-clone", Pattern: `\bgit\s+clone\b`, Response: ""},
		{Name: "ssh", Pattern: `(?:^|[;&|]\s*|\bsudo\s+)ssh\s`, Response: "yes"},
		{Name: "psql", Pattern: `(?:^|\s)psql(?:\s|$)`, Response: `\q`},
		{Name: "mysql", Pattern: `(?:^|\s)mysql(?:\s|$)`, Response: "exit"},
		{Name: "mongo", Pattern: `(?:^|\s)mongo(?:sh)?(?:\s|$)`, Response: "exit"},
		{Name: "sqlite", Pattern: `(?:^|\s)sqlite3(?:\s|$)`, Response: ".quit"},
		{Name: "redis-cli", Pattern: `(?:^|\s)redis-cli(?:\s|$)`, Response: "quit"},
	}
}
