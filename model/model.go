package model

import (
	"fmt"
	"strings"
)

// OperationKind is the closed set of file operations a directive can name.
type OperationKind int

const (
	Create OperationKind = iota + 1
	Modify
	Delete
)

func (k OperationKind) String() string {
	switch k {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Label returns the directive keyword as written in model output, e.g. "Modify File".
func (k OperationKind) Label() string {
	switch k {
	case Create:
		return "Create File"
	case Modify:
		return "Modify File"
	case Delete:
		return "Delete File"
	default:
		return ""
	}
}

// ParseKind maps a directive keyword ("Create", "Modify", "Delete") to its kind.
func ParseKind(keyword string) (OperationKind, bool) {
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "create":
		return Create, true
	case "modify":
		return Modify, true
	case "delete":
		return Delete, true
	default:
		return 0, false
	}
}

// Span is a half-open byte range [Start, End) into the raw response.
type Span struct {
	Start int
	End   int
}

// Operation is one file directive recovered from a model response.
type Operation struct {
	Kind OperationKind
	// StatedPath is the path exactly as the model wrote it, minus markup artifacts.
	StatedPath string
	// ResolvedPath is empty until the operation is bound by the path resolver.
	ResolvedPath string
	// Content is the full replacement text. Always empty for Delete.
	Content string
	// DirectiveLabel is the directive keyword, e.g. "Create File".
	DirectiveLabel string
	// Strategy names the extraction pattern that produced the operation.
	Strategy string
	// Span covers the directive line and its content in the raw response.
	Span Span
}

// Resolved reports whether the operation has been bound to a filesystem target.
func (o Operation) Resolved() bool {
	return o.ResolvedPath != ""
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// KnownFile is one entry of the context registry: a file the model was shown.
type KnownFile struct {
	DisplayName string
	FullPath    string
}

// CommandEntry is one shell command extracted from a response.
type CommandEntry struct {
	Text          string
	IsInteractive bool
	// DefaultResponse is injected after dispatch when IsInteractive is set.
	// An empty string means a bare Enter.
	DefaultResponse string
	// Rule names the classifier rule that matched, if any.
	Rule string
	// Offset is where the command line starts in the raw response.
	Offset int
}

// ResultKind tags a result log entry.
type ResultKind int

const (
	ResultInfo ResultKind = iota
	ResultSuccess
	ResultWarning
	ResultFailure
)

// Marker returns the icon the presenter renders in front of the message.
func (k ResultKind) Marker() string {
	switch k {
	case ResultSuccess:
		return "✅"
	case ResultWarning:
		return "⚠️"
	case ResultFailure:
		return "❌"
	default:
		return "ℹ️"
	}
}

// Result is one human-readable line of the execution log.
type Result struct {
	Kind    ResultKind
	Message string
	// Path is the resolved target, if the entry is about a file.
	Path string
	// Op is the operation kind, if the entry is about a file.
	Op OperationKind
}

func (r Result) String() string {
	return fmt.Sprintf("%s %s", r.Kind.Marker(), r.Message)
}

// Successf builds a success entry.
func Successf(format string, a ...any) Result {
	return Result{Kind: ResultSuccess, Message: fmt.Sprintf(format, a...)}
}

// Warningf builds a warning entry.
func Warningf(format string, a ...any) Result {
	return Result{Kind: ResultWarning, Message: fmt.Sprintf(format, a...)}
}

// Failuref builds a failure entry.
func Failuref(format string, a ...any) Result {
	return Result{Kind: ResultFailure, Message: fmt.Sprintf(format, a...)}
}

// Infof builds an info entry.
func Infof(format string, a ...any) Result {
	return Result{Kind: ResultInfo, Message: fmt.Sprintf(format, a...)}
}

// Response is everything the presenter receives for one processed turn.
type Response struct {
	Narrative   string
	Results     []Result
	Commands    []CommandEntry
	// Dispatched is filled once the command batch has been sent to the shell.
	Dispatched  []string
	Summary     string
	Description string
	// TurnID identifies the history entry of this turn, if one was saved.
	TurnID      string
}

// Summary holds the results of an operation grouped for display.
type Summary struct {
	Created  []string
	Modified []string
	Deleted  []string
	Failed   []string
	Message  string
}

// Summarize groups the file entries of a result log by outcome.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Path == "" {
			continue
		}
		switch {
		case r.Kind == ResultFailure:
			s.Failed = append(s.Failed, r.Path)
		case r.Kind != ResultSuccess:
			continue
		case r.Op == Create:
			s.Created = append(s.Created, r.Path)
		case r.Op == Modify:
			s.Modified = append(s.Modified, r.Path)
		case r.Op == Delete:
			s.Deleted = append(s.Deleted, r.Path)
		}
	}
	return s
}
