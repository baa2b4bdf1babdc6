package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Mode       string
	Root       string
	Context    []string
	File       string
	ConfigPath string
	NoCommands bool
	Undo       bool
	Redo       bool
	History    int
	Verbose    bool
	NoTUI      bool
}

// ParseFlags parses os.Args.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs defines and parses command-line flags using pflag.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("directive", pflag.ContinueOnError)

	flags.StringVarP(&cfg.Mode, "mode", "m", "", "Execution mode: 'auto' applies every operation, 'confirm' asks first.")
	flags.StringVarP(&cfg.Root, "root", "p", "", "Project root for created and deleted files (default: git root or current directory).")
	flags.StringSliceVarP(&cfg.Context, "context", "c", []string{}, "Files or directories the model was shown. Modify is only allowed on these.")
	flags.StringVarP(&cfg.File, "file", "f", "", "Read the response from a file ('-' for stdin) instead of stdin or the clipboard.")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to a YAML config file.")
	flags.BoolVarP(&cfg.NoCommands, "no-commands", "n", false, "List shell commands but do not run them.")
	flags.IntVar(&cfg.History, "history", 0, "Print the last N processed turns and exit.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Write debug logs to stderr.")
	flags.BoolVar(&cfg.NoTUI, "no-tui", false, "Print plain output instead of the interactive summary.")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last applied batch.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone batch.")

	flags.Usage = func() {
		fmt.Println("Usage: directive [flags]")
		fmt.Println("\nApply the file directives and shell commands in a model response.")
		fmt.Println("The response is read from --file, piped stdin, or the clipboard.")
		fmt.Println("\nExample: pbpaste | directive -c src -m confirm")
		fmt.Println("\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if cfg.History < 0 {
		return nil, fmt.Errorf("error: --history must not be negative")
	}
	switch cfg.Mode {
	case "", "auto", "confirm":
	default:
		return nil, fmt.Errorf("error: --mode must be 'auto' or 'confirm', got %q", cfg.Mode)
	}

	return cfg, nil
}
