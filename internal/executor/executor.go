package executor

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/directive/internal/fs"
	"github.com/sokinpui/directive/model"
)

// Mode selects whether operations are applied immediately or one by one after a decision.
type Mode string

const (
	Auto    Mode = "auto"
	Confirm Mode = "confirm"
)

// ParseMode accepts "auto" or "confirm".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Auto, "":
		return Auto, nil
	case Confirm:
		return Confirm, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto or confirm)", s)
	}
}

// Decision is the user's answer for one operation in confirm mode.
type Decision int

const (
	Apply Decision = iota
	Cancel
	ViewDiff
)

// Decider asks whether an operation should be applied. ViewDiff is only
// offered for Modify.
type Decider interface {
	Decide(ctx context.Context, op model.Operation) (Decision, error)
}

// DiffViewer shows the difference between the current file and the proposed content.
type DiffViewer interface {
	Show(ctx context.Context, originalPath, proposedPath string) error
}

// Applied records one change that reached the filesystem.
type Applied struct {
	Kind    model.OperationKind
	Path    string
	Existed bool
	Before  []byte
	After   []byte
}

// Outcome is the result log of a batch plus the changes that were made.
type Outcome struct {
	Results []model.Result
	Applied []Applied
}

// Executor applies bound operations strictly in the order given.
type Executor struct {
	ws         fs.Workspace
	decider    Decider
	viewer     DiffViewer
	scratchDir string
	log        *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithDecider sets the confirm-mode decider.
func WithDecider(d Decider) Option { return func(e *Executor) { e.decider = d } }

// WithDiffViewer sets the viewer used for ViewDiff.
func WithDiffViewer(v DiffViewer) Option { return func(e *Executor) { e.viewer = v } }

// WithScratchDir sets where proposed contents are materialized for diffing.
func WithScratchDir(dir string) Option { return func(e *Executor) { e.scratchDir = dir } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option { return func(e *Executor) { e.log = l } }

// New creates an Executor over ws.
func New(ws fs.Workspace, opts ...Option) *Executor {
	e := &Executor{ws: ws, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.scratchDir == "" {
		e.scratchDir = filepath.Join(os.TempDir(), "directive-scratch")
	}
	return e
}

// Execute runs every operation and returns exactly one result entry per
// operation. A failure is logged and the batch continues; nothing already
// applied is rolled back.
func (e *Executor) Execute(ctx context.Context, ops []model.Operation, mode Mode) Outcome {
	var out Outcome
	for i, op := range ops {
		log := e.log.With(zap.Int("index", i), zap.String("op", op.Kind.String()), zap.String("path", op.ResolvedPath))

		if !op.Resolved() {
			out.Results = append(out.Results, model.Result{
				Kind:    model.ResultWarning,
				Message: fmt.Sprintf("Skipped %s %s: target not resolved", op.Kind, op.StatedPath),
				Op:      op.Kind,
			})
			continue
		}

		if mode == Confirm {
			proceed, result := e.confirm(ctx, op, log)
			if !proceed {
				out.Results = append(out.Results, result)
				continue
			}
		}

		applied, err := e.apply(op)
		if err != nil {
			log.Warn("operation failed", zap.Error(err))
			out.Results = append(out.Results, model.Result{
				Kind:    model.ResultFailure,
				Message: fmt.Sprintf("Failed to %s %s: %v", op.Kind, op.ResolvedPath, err),
				Path:    op.ResolvedPath,
				Op:      op.Kind,
			})
			continue
		}
		log.Debug("operation applied")
		out.Applied = append(out.Applied, applied)
		out.Results = append(out.Results, model.Result{
			Kind:    model.ResultSuccess,
			Message: successMessage(op),
			Path:    op.ResolvedPath,
			Op:      op.Kind,
		})
	}
	return out
}

// confirm loops until the decider answers apply or cancel. Diff views do not
// touch the real file.
func (e *Executor) confirm(ctx context.Context, op model.Operation, log *zap.Logger) (bool, model.Result) {
	if e.decider == nil {
		return false, model.Result{
			Kind:    model.ResultWarning,
			Message: fmt.Sprintf("Skipped %s %s: no way to ask for confirmation", op.Kind, op.ResolvedPath),
			Path:    op.ResolvedPath,
			Op:      op.Kind,
		}
	}
	for {
		decision, err := e.decider.Decide(ctx, op)
		if err != nil {
			return false, model.Result{
				Kind:    model.ResultFailure,
				Message: fmt.Sprintf("Failed to confirm %s %s: %v", op.Kind, op.ResolvedPath, err),
				Path:    op.ResolvedPath,
				Op:      op.Kind,
			}
		}
		switch decision {
		case Apply:
			return true, model.Result{}
		case ViewDiff:
			if op.Kind != model.Modify {
				continue
			}
			if err := e.showDiff(ctx, op); err != nil {
				log.Warn("diff view failed", zap.Error(err))
			}
		default:
			return false, model.Result{
				Kind:    model.ResultInfo,
				Message: fmt.Sprintf("Operation cancelled: %s %s", op.Kind, op.ResolvedPath),
				Path:    op.ResolvedPath,
				Op:      op.Kind,
			}
		}
	}
}

func (e *Executor) showDiff(ctx context.Context, op model.Operation) error {
	if e.viewer == nil {
		return errors.New("no diff viewer configured")
	}
	if err := e.ws.MkdirAll(e.scratchDir); err != nil {
		return err
	}
	scratch := filepath.Join(e.scratchDir, "proposed-"+filepath.Base(op.ResolvedPath))
	if err := e.ws.WriteFile(scratch, []byte(op.Content)); err != nil {
		return fmt.Errorf("failed to write scratch copy: %w", err)
	}
	return e.viewer.Show(ctx, op.ResolvedPath, scratch)
}

func (e *Executor) apply(op model.Operation) (Applied, error) {
	applied := Applied{Kind: op.Kind, Path: op.ResolvedPath}

	before, err := e.ws.ReadFile(op.ResolvedPath)
	switch {
	case err == nil:
		applied.Existed = true
		applied.Before = before
	case errors.Is(err, iofs.ErrNotExist):
		if op.Kind != model.Create {
			return applied, fmt.Errorf("file does not exist")
		}
	default:
		return applied, err
	}

	switch op.Kind {
	case model.Create:
		if err := e.ws.MkdirAll(filepath.Dir(op.ResolvedPath)); err != nil {
			return applied, err
		}
		fallthrough
	case model.Modify:
		if err := e.ws.WriteFile(op.ResolvedPath, []byte(op.Content)); err != nil {
			return applied, err
		}
		applied.After = []byte(op.Content)
	case model.Delete:
		if err := e.ws.Remove(op.ResolvedPath); err != nil {
			return applied, err
		}
	default:
		return applied, fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	return applied, nil
}

func successMessage(op model.Operation) string {
	switch op.Kind {
	case model.Create:
		return "Created file: " + op.ResolvedPath
	case model.Modify:
		return "Modified file: " + op.ResolvedPath
	default:
		return "Deleted file: " + op.ResolvedPath
	}
}
