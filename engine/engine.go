package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/directive/internal/command"
	"github.com/sokinpui/directive/internal/config"
	"github.com/sokinpui/directive/internal/diff"
	"github.com/sokinpui/directive/internal/executor"
	"github.com/sokinpui/directive/internal/fs"
	"github.com/sokinpui/directive/internal/history"
	"github.com/sokinpui/directive/internal/nvim"
	"github.com/sokinpui/directive/internal/parser"
	"github.com/sokinpui/directive/internal/prompt"
	"github.com/sokinpui/directive/internal/sequencer"
	"github.com/sokinpui/directive/internal/shell"
	"github.com/sokinpui/directive/internal/state"
	"github.com/sokinpui/directive/internal/ui"
	"github.com/sokinpui/directive/model"
)

// ErrJournalDisabled is returned by Undo and Redo when there is no journal.
var ErrJournalDisabled = errors.New("undo journal is disabled")

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Options carries collaborators. Zero values get working defaults.
type Options struct {
	Logger     *zap.Logger
	Workspace  fs.Workspace
	Decider    executor.Decider
	DiffViewer executor.DiffViewer
	// Terminal receives dispatched commands. When nil a pty shell is started
	// on the first RunCommands call.
	Terminal shell.Terminal
	// TerminalOutput receives what the started shell prints.
	TerminalOutput io.Writer
	OnStep         func(index, total int, entry model.CommandEntry)
}

// Engine turns one model response into file changes and a command batch.
type Engine struct {
	cfg  *config.Config
	log  *zap.Logger
	root string
	mode executor.Mode

	parser    *parser.Parser
	extractor *command.Extractor
	executor  *executor.Executor
	journal   *state.Manager
	history   *history.Store

	mu        sync.Mutex
	term      shell.Terminal
	session   *shell.Session
	termOut   io.Writer
	sequencer *sequencer.Sequencer
	onStep    func(index, total int, entry model.CommandEntry)
}

// New wires an Engine from configuration.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mode, err := executor.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	root := ""
	if cfg.ProjectRoot != "" {
		if root, err = filepath.Abs(cfg.ProjectRoot); err != nil {
			return nil, fmt.Errorf("invalid project root: %w", err)
		}
	}

	classifier, err := command.LoadClassifier(cfg.Interactive.RulesFile, cfg.Interactive.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactive rules: %w", err)
	}

	highlighter := ui.NewHighlighter(cfg.Highlight)
	ws := opts.Workspace
	if ws == nil {
		ws = fs.OSWorkspace{}
	}
	decider := opts.Decider
	if decider == nil && mode == executor.Confirm {
		decider = prompt.New(nil, nil, highlighter)
	}
	viewer := opts.DiffViewer
	if viewer == nil {
		viewer = nvim.NewChain(log, nvim.NewViewer("", log), diff.NewTerminalViewer(nil, highlighter))
	}

	e := &Engine{
		cfg:       cfg,
		log:       log,
		root:      root,
		mode:      mode,
		parser:    parser.New(),
		extractor: command.NewExtractor(classifier),
		executor: executor.New(ws,
			executor.WithDecider(decider),
			executor.WithDiffViewer(viewer),
			executor.WithLogger(log.Named("executor"))),
		term:    opts.Terminal,
		termOut: opts.TerminalOutput,
		onStep:  opts.OnStep,
	}

	if root != "" && cfg.State.Enabled {
		if e.journal, err = state.New(root, log.Named("state")); err != nil {
			return nil, fmt.Errorf("failed to initialize state manager: %w", err)
		}
	}
	if cfg.History.Enabled && (root != "" || cfg.History.Path != "") {
		path := cfg.History.Path
		if path == "" {
			path = history.DefaultPath(root)
		}
		if e.history, err = history.Open(path); err != nil {
			log.Warn("history disabled", zap.String("path", path), zap.Error(err))
			e.history = nil
		}
	}
	return e, nil
}

// Root returns the absolute project root, or "".
func (e *Engine) Root() string {
	return e.root
}

// Mode returns the execution mode in effect.
func (e *Engine) Mode() executor.Mode {
	return e.mode
}

// Process parses raw, binds and applies its operations, and extracts its
// command batch without running it. Failures inside the batch become result
// entries; the returned error is only for cancellation and internal panics.
func (e *Engine) Process(ctx context.Context, raw string, registry *fs.Registry) (resp model.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	// Last point where the caller can still back out.
	if err := ctx.Err(); err != nil {
		return model.Response{}, err
	}

	var (
		parsed   parser.Result
		commands []model.CommandEntry
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		parsed = e.parser.Parse(raw)
		return nil
	})
	g.Go(func() (err error) {
		commands, err = e.extractor.Extract(raw)
		return err
	})
	extractErr := g.Wait()

	e.log.Debug("response parsed",
		zap.Int("operations", len(parsed.Operations)),
		zap.Int("commands", len(commands)))

	resolver := fs.NewPathResolver(registry, e.root)
	bound, rejected := resolver.ResolveAll(parsed.Operations)
	for _, rej := range rejected {
		e.log.Info("operation rejected", zap.String("path", rej.Op.StatedPath), zap.Error(rej.Err))
		resp.Results = append(resp.Results, model.Result{
			Kind:    model.ResultWarning,
			Message: fmt.Sprintf("Skipped %s %s: %v", rej.Op.DirectiveLabel, rej.Op.StatedPath, rej.Err),
			Op:      rej.Op.Kind,
		})
	}

	outcome := e.executor.Execute(context.WithoutCancel(ctx), bound, e.mode)
	resp.Results = append(resp.Results, outcome.Results...)

	if e.journal != nil {
		if err := e.journal.Write(outcome.Applied); err != nil {
			e.log.Warn("failed to journal changes", zap.Error(err))
			resp.Results = append(resp.Results, model.Warningf("Changes applied but not recorded for undo: %v", err))
		}
	}

	if extractErr != nil {
		resp.Results = append(resp.Results, model.Failuref("Command extraction failed: %v", extractErr))
		commands = nil
	}
	resp.Commands = withoutFileContent(commands, parsed.Operations)
	resp.Narrative = parsed.Narrative
	resp.Summary = parsed.Summary
	resp.Description = parsed.Description

	resp.TurnID = e.record(resp, len(parsed.Operations))
	return resp, nil
}

// withoutFileContent drops command lines that are the fenced body of a file
// directive, such as the bash fence under "Create File: setup.sh". Unfenced
// Markdown bodies do not hide the shell fences that follow them.
func withoutFileContent(commands []model.CommandEntry, ops []model.Operation) []model.CommandEntry {
	out := commands[:0:0]
outer:
	for _, c := range commands {
		for _, op := range ops {
			if op.Strategy == parser.StrategyFenced && op.Span.Contains(c.Offset) {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

// record saves the turn and returns its id, or "" when history is off.
// Commands are filled in by Dispatch once they have been sent.
func (e *Engine) record(resp model.Response, operations int) string {
	if e.history == nil {
		return ""
	}
	rec := history.Record{Operations: operations, Summary: resp.Summary}
	for _, r := range resp.Results {
		switch r.Kind {
		case model.ResultSuccess:
			rec.Succeeded++
		case model.ResultFailure:
			rec.Failed++
		}
	}
	saved, err := e.history.Save(rec)
	if err != nil {
		e.log.Warn("failed to save history", zap.Error(err))
		return ""
	}
	return saved.ID
}

// Dispatch runs the extracted commands of resp, stores what was sent in
// resp.Dispatched and records it on the turn's history entry.
func (e *Engine) Dispatch(ctx context.Context, resp *model.Response) error {
	dispatched, err := e.RunCommands(ctx, resp.Commands)
	if err != nil {
		return err
	}
	resp.Dispatched = dispatched
	if e.history != nil && resp.TurnID != "" && len(dispatched) > 0 {
		if err := e.history.SetCommands(resp.TurnID, dispatched); err != nil {
			e.log.Warn("failed to record dispatched commands", zap.String("turn", resp.TurnID), zap.Error(err))
		}
	}
	return nil
}

// RunCommands dispatches a batch to the terminal and blocks until it is done.
// It returns sequencer.ErrBusy if another batch is still running.
func (e *Engine) RunCommands(ctx context.Context, entries []model.CommandEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	seq, err := e.ensureSequencer()
	if err != nil {
		return nil, err
	}
	return seq.Run(ctx, entries)
}

func (e *Engine) ensureSequencer() (*sequencer.Sequencer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sequencer != nil {
		return e.sequencer, nil
	}
	if e.term == nil {
		dir := e.root
		if dir == "" {
			dir, _ = os.Getwd()
		}
		out := e.termOut
		if out == nil {
			out = os.Stdout
		}
		session, err := shell.Start(e.cfg.Shell, dir, out, e.log.Named("shell"))
		if err != nil {
			return nil, err
		}
		e.session = session
		e.term = session
	}
	e.sequencer = sequencer.New(e.term, sequencer.Options{
		SettleDelay:            e.cfg.Sequencer.SettleDelay,
		InteractiveSettleDelay: e.cfg.Sequencer.InteractiveSettleDelay,
		InjectDelay:            e.cfg.Sequencer.InjectDelay,
		Logger:                 e.log.Named("sequencer"),
		OnStep:                 e.onStep,
	})
	return e.sequencer, nil
}

// Undo reverts the last journaled batch.
func (e *Engine) Undo() (model.Summary, error) {
	if e.journal == nil {
		return model.Summary{}, ErrJournalDisabled
	}
	s, err := e.journal.Undo()
	if errors.Is(err, state.ErrNothingToUndo) {
		return s, nil
	}
	return s, err
}

// Redo re-applies the last undone batch.
func (e *Engine) Redo() (model.Summary, error) {
	if e.journal == nil {
		return model.Summary{}, ErrJournalDisabled
	}
	s, err := e.journal.Redo()
	if errors.Is(err, state.ErrNothingToRedo) {
		return s, nil
	}
	return s, err
}

// History returns the newest turn records.
func (e *Engine) History(limit int) ([]history.Record, error) {
	if e.history == nil {
		return nil, errors.New("history is disabled")
	}
	return e.history.Records(limit)
}

// Close stops the shell the engine started and closes the history store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Close())
		e.session = nil
	}
	if e.history != nil {
		errs = append(errs, e.history.Close())
		e.history = nil
	}
	return errors.Join(errs...)
}
