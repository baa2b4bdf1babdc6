package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sokinpui/directive/cli"
	"github.com/sokinpui/directive/engine"
	"github.com/sokinpui/directive/internal/config"
	"github.com/sokinpui/directive/internal/executor"
	"github.com/sokinpui/directive/internal/fs"
	"github.com/sokinpui/directive/internal/logging"
	"github.com/sokinpui/directive/internal/sequencer"
	"github.com/sokinpui/directive/internal/source"
	"github.com/sokinpui/directive/internal/tui"
	"github.com/sokinpui/directive/internal/ui"
	"github.com/sokinpui/directive/model"
)

// maxContextFiles bounds the registry built when no --context is given.
const maxContextFiles = 5000

func main() {
	flags, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		var detailed *engine.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		ui.Error("Error: %v", err)
		os.Exit(1)
	}
}

func run(flags *cli.Config) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Mode != "" {
		cfg.Mode = flags.Mode
	}
	if flags.Root != "" {
		cfg.ProjectRoot = flags.Root
	}
	if cfg.ProjectRoot == "" {
		if cfg.ProjectRoot, err = fs.FindProjectRoot(""); err != nil {
			return err
		}
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Verbose: flags.Verbose})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := engine.New(cfg, engine.Options{
		Logger:         logger,
		TerminalOutput: os.Stdout,
		OnStep: func(index, total int, entry model.CommandEntry) {
			ui.Step(index+1, total, entry.Text)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	switch {
	case flags.History > 0:
		return printHistory(app, flags.History)
	case flags.Undo:
		return runSummary(ctx, app, flags, "Undo", app.Undo)
	case flags.Redo:
		return runSummary(ctx, app, flags, "Redo", app.Redo)
	}

	src := source.New(flags.File)
	useTUI := !flags.NoTUI && app.Mode() != executor.Confirm
	if useTUI {
		src.Quiet()
	}
	content, err := src.GetContent()
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Source is empty. Nothing to process.")
		return nil
	}

	contextPaths := flags.Context
	if len(contextPaths) == 0 {
		contextPaths = []string{app.Root()}
	}
	registry, err := fs.CollectRegistry(contextPaths, maxContextFiles)
	if err != nil {
		return fmt.Errorf("failed to collect context files: %w", err)
	}
	logger.Debug("context collected", zap.Int("files", registry.Len()), zap.String("root", app.Root()))

	var resp model.Response
	if useTUI {
		outcome, err := runTUI(ctx, app.Root(), tui.ProcessTask(app, content, registry))
		if err != nil {
			return err
		}
		resp = *outcome.Response
	} else {
		if resp, err = app.Process(ctx, content, registry); err != nil {
			return err
		}
		ui.PrintResponse(resp)
		ui.PrintSummary("Summary", model.Summarize(resp.Results))
	}

	if flags.NoCommands || len(resp.Commands) == 0 {
		return nil
	}
	ui.Header("\n--- Running %d command(s) ---", len(resp.Commands))
	err = app.Dispatch(ctx, &resp)
	if errors.Is(err, sequencer.ErrBusy) {
		ui.Warning("Another command batch is still running.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(resp.Dispatched) > 0 {
		ui.PrintDispatched(resp.Dispatched)
	}
	if len(resp.Dispatched) < len(resp.Commands) {
		ui.Warning("Stopped after %d of %d command(s).", len(resp.Dispatched), len(resp.Commands))
	}
	return nil
}

func runSummary(ctx context.Context, app *engine.Engine, flags *cli.Config, title string, fn func() (model.Summary, error)) error {
	if flags.NoTUI {
		s, err := fn()
		if err != nil {
			return err
		}
		ui.PrintSummary(title, s)
		return nil
	}
	_, err := runTUI(ctx, app.Root(), tui.SummaryTask(fn))
	return err
}

func runTUI(ctx context.Context, root string, task tui.Task) (tui.Outcome, error) {
	p := tea.NewProgram(tui.New(ctx, root, task), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return tui.Outcome{}, fmt.Errorf("error running program: %w", err)
	}
	return final.(tui.Model).Outcome()
}

func printHistory(app *engine.Engine, limit int) error {
	records, err := app.History(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("No history yet.")
		return nil
	}
	for _, r := range records {
		ui.Header("%s  %s", r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.ID)
		ui.Info("  %d operation(s), %d succeeded, %d failed, %d command(s)", r.Operations, r.Succeeded, r.Failed, len(r.Commands))
		if r.Summary != "" {
			ui.Path("%s", r.Summary)
		}
	}
	return nil
}
