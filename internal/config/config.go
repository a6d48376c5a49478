// Package config loads and validates the switcher configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-switch/internal/activation"
	"github.com/mj1618/desktop-switch/internal/logging"
	"github.com/mj1618/desktop-switch/internal/matcher"
)

// ErrInvalidChord is wrapped by errors about unparseable key chords.
var ErrInvalidChord = errors.New("invalid chord")

// Config holds the complete switcher configuration.
type Config struct {
	Bindings   BindingsConfig   `toml:"bindings" json:"bindings" yaml:"bindings"`
	Matcher    MatcherConfig    `toml:"matcher" json:"matcher" yaml:"matcher"`
	Activation ActivationConfig `toml:"activation" json:"activation" yaml:"activation"`
	Logging    LoggingConfig    `toml:"logging" json:"logging" yaml:"logging"`
	Permission PermissionConfig `toml:"permission" json:"permission" yaml:"permission"`
}

// BindingsConfig holds key chords as strings such as "alt+shift+tab".
type BindingsConfig struct {
	// Open starts a session and advances it while held. Its modifiers are
	// the hold modifiers: releasing them commits.
	Open     string `toml:"open" json:"open" yaml:"open"`
	Previous string `toml:"previous" json:"previous" yaml:"previous"`
	Cancel   string `toml:"cancel" json:"cancel" yaml:"cancel"`

	NextAlt     []string `toml:"next_alt" json:"next_alt" yaml:"next_alt"`
	PreviousAlt []string `toml:"previous_alt" json:"previous_alt" yaml:"previous_alt"`
	CommitAlt   []string `toml:"commit_alt" json:"commit_alt" yaml:"commit_alt"`
}

// MatcherConfig tunes window reconciliation.
type MatcherConfig struct {
	// Tolerance is the maximum width/height difference, in points, for a
	// title entry to match a z-ordered window. Compared with strict less-than.
	Tolerance float64 `toml:"tolerance" json:"tolerance" yaml:"tolerance"`
	// MinSize drops windows narrower or shorter than this many points.
	MinSize     float64  `toml:"min_size" json:"min_size" yaml:"min_size"`
	ExcludeApps []string `toml:"exclude_apps" json:"exclude_apps" yaml:"exclude_apps"`
}

// ActivationConfig tunes the activation chain.
type ActivationConfig struct {
	BudgetMs       int  `toml:"budget_ms" json:"budget_ms" yaml:"budget_ms"`
	SettleMs       int  `toml:"settle_ms" json:"settle_ms" yaml:"settle_ms"`
	SyntheticClick bool `toml:"synthetic_click" json:"synthetic_click" yaml:"synthetic_click"`
	ForceFront     bool `toml:"force_front" json:"force_front" yaml:"force_front"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
	// Output is "stderr", "stdout", "file" or "both".
	Output   string `toml:"output" json:"output" yaml:"output"`
	FilePath string `toml:"file" json:"file" yaml:"file"`
}

// PermissionConfig controls how the accessibility grant is awaited.
type PermissionConfig struct {
	PollMs int `toml:"poll_ms" json:"poll_ms" yaml:"poll_ms"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	act := activation.DefaultConfig()
	return &Config{
		Bindings: BindingsConfig{
			Open:        "alt+tab",
			Previous:    "alt+shift+tab",
			Cancel:      "escape",
			NextAlt:     []string{"right"},
			PreviousAlt: []string{"left"},
			CommitAlt:   []string{"return"},
		},
		Matcher: MatcherConfig{
			Tolerance: matcher.DefaultTolerance,
			MinSize:   matcher.DefaultMinSize,
		},
		Activation: ActivationConfig{
			BudgetMs:       int(act.Budget / time.Millisecond),
			SettleMs:       int(act.SettleDelay / time.Millisecond),
			SyntheticClick: act.SyntheticClick,
			ForceFront:     act.ForceFront,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Permission: PermissionConfig{
			PollMs: 1000,
		},
	}
}

// Dir returns ~/.config/desktop-switch.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "desktop-switch")
	}
	return filepath.Join(home, ".config", "desktop-switch")
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the configuration at path, or Path() when path is empty.
// A missing file yields the defaults. The format follows the extension:
// .toml, .json, .yaml or .yml; anything else is read as TOML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return nil
}

// MatcherOptions converts the matcher section. selfPID and exclude are
// removed from enumeration.
func (c *Config) MatcherOptions(selfPID int, exclude ...int) matcher.Options {
	opts := matcher.DefaultOptions()
	opts.Tolerance = c.Matcher.Tolerance
	opts.MinSize = c.Matcher.MinSize
	opts.SelfPID = selfPID
	opts.ExcludePIDs = append([]int(nil), exclude...)
	opts.ExcludeApps = append([]string(nil), c.Matcher.ExcludeApps...)
	return opts
}

// ActivationOptions converts the activation section.
func (c *Config) ActivationOptions() activation.Config {
	return activation.Config{
		Budget:         time.Duration(c.Activation.BudgetMs) * time.Millisecond,
		SettleDelay:    time.Duration(c.Activation.SettleMs) * time.Millisecond,
		ForceFront:     c.Activation.ForceFront,
		SyntheticClick: c.Activation.SyntheticClick,
	}
}

// LoggerConfig converts the logging section. Validate must have passed.
func (c *Config) LoggerConfig() *logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	if format, err := logging.ParseFormat(c.Logging.Format); err == nil {
		cfg.Format = format
	}
	if c.Logging.Output != "" {
		cfg.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		cfg.FilePath = c.Logging.FilePath
	}
	return cfg
}

// PollInterval returns how often to re-check the accessibility grant.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Permission.PollMs) * time.Millisecond
}
