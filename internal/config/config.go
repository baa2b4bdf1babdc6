package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/directive/internal/command"
)

// EnvConfig names the variable that points at a config file.
const EnvConfig = "DIRECTIVE_CONFIG"

// SequencerConfig tunes the command sequencer timings.
type SequencerConfig struct {
	SettleDelay            time.Duration `yaml:"settle_delay"`
	InteractiveSettleDelay time.Duration `yaml:"interactive_settle_delay"`
	InjectDelay            time.Duration `yaml:"inject_delay"`
}

// InteractiveConfig adds classifier rules on top of the built-in table.
type InteractiveConfig struct {
	RulesFile string         `yaml:"rules_file"`
	Rules     []command.Rule `yaml:"rules"`
}

type StateConfig struct {
	Enabled bool `yaml:"enabled"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the full configuration of the tool.
type Config struct {
	Mode        string            `yaml:"mode"`
	ProjectRoot string            `yaml:"project_root"`
	Shell       string            `yaml:"shell"`
	Highlight   bool              `yaml:"highlight"`
	Sequencer   SequencerConfig   `yaml:"sequencer"`
	Interactive InteractiveConfig `yaml:"interactive"`
	State       StateConfig       `yaml:"state"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`

	configPath string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:      "auto",
		Highlight: true,
		Sequencer: SequencerConfig{
			SettleDelay:            1500 * time.Millisecond,
			InteractiveSettleDelay: 4000 * time.Millisecond,
			InjectDelay:            1000 * time.Millisecond,
		},
		State:   StateConfig{Enabled: true},
		History: HistoryConfig{Enabled: true},
	}
}

// Load reads the first config file found. explicit (the --config flag) wins
// and must exist; otherwise $DIRECTIVE_CONFIG and the search paths are tried.
// No file at all yields the defaults.
func Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	if explicit != "" {
		if err := cfg.loadFromFile(explicit); err != nil {
			return nil, fmt.Errorf("error loading config from %s: %w", explicit, err)
		}
		cfg.configPath = explicit
		return cfg, cfg.Validate()
	}

	for _, path := range searchPaths() {
		err := cfg.loadFromFile(path)
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		cfg.configPath = path
		break
	}
	return cfg, cfg.Validate()
}

// searchPaths returns config file paths in priority order.
func searchPaths() []string {
	var paths []string
	if env := os.Getenv(EnvConfig); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, "directive.yaml", filepath.Join(".directive", "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "directive", "config.yaml"))
	}
	return paths
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	switch c.Mode {
	case "auto", "confirm":
	default:
		return fmt.Errorf("invalid mode %q (want auto or confirm)", c.Mode)
	}
	if c.Sequencer.SettleDelay < 0 || c.Sequencer.InteractiveSettleDelay < 0 || c.Sequencer.InjectDelay < 0 {
		return errors.New("sequencer delays must not be negative")
	}
	return nil
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}
