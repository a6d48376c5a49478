package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-switch/internal/logging"
	"github.com/mj1618/desktop-switch/internal/matcher"
	"github.com/mj1618/desktop-switch/internal/session"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "alt+tab", cfg.Bindings.Open)
	assert.Equal(t, matcher.DefaultTolerance, cfg.Matcher.Tolerance)
	assert.Equal(t, 50, cfg.Activation.BudgetMs)
	assert.Equal(t, 20, cfg.Activation.SettleMs)
	assert.False(t, cfg.Activation.SyntheticClick)
}

func TestPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(Path(), filepath.Join("desktop-switch", "config.toml")))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[bindings]
open = "cmd+grave"
previous = "cmd+shift+grave"

[matcher]
tolerance = 4.5
exclude_apps = ["Finder"]

[activation]
synthetic_click = true
budget_ms = 80
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cmd+grave", cfg.Bindings.Open)
	assert.Equal(t, "escape", cfg.Bindings.Cancel, "unset keys keep defaults")
	assert.Equal(t, 4.5, cfg.Matcher.Tolerance)
	assert.Equal(t, []string{"Finder"}, cfg.Matcher.ExcludeApps)
	assert.True(t, cfg.Activation.SyntheticClick)

	act := cfg.ActivationOptions()
	assert.Equal(t, 80*time.Millisecond, act.Budget)
	assert.Equal(t, 20*time.Millisecond, act.SettleDelay)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
bindings:
  open: ctrl+tab
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ctrl+tab", cfg.Bindings.Open)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
}

func TestLoadMalformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[bindings\nopen = ")
	_, err := Load(path)
	assert.ErrorContains(t, err, "decode TOML")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bindings.Open = "tab"
	cfg.Matcher.Tolerance = 0
	cfg.Activation.BudgetMs = 10
	cfg.Activation.SettleMs = 30
	cfg.Logging.Output = "syslog"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"bindings", "matcher.tolerance", "activation.settle_ms", "logging.output",
	}, fields)
}

func TestResolveBindings(t *testing.T) {
	b, err := DefaultConfig().ResolveBindings()
	require.NoError(t, err)
	assert.Equal(t, "alt+tab", b.Open.String())

	held := map[string]session.Command{}
	for _, e := range b.List()[1:] {
		held[e.Chord.String()] = e.Command
	}
	assert.Equal(t, map[string]session.Command{
		"alt+tab":       session.CmdNext,
		"alt+escape":    session.CmdCancel,
		"alt+shift+tab": session.CmdPrevious,
		"alt+right":     session.CmdNext,
		"alt+left":      session.CmdPrevious,
		"alt+return":    session.CmdCommit,
	}, held)
}

func TestResolveBindingsInvalidChord(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bindings.NextAlt = []string{"right", "hyper+x"}
	_, err := cfg.ResolveBindings()
	require.ErrorIs(t, err, ErrInvalidChord)
	assert.ErrorContains(t, err, "next_alt[1]")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Matcher.ExcludeApps = []string{"Dock"}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMatcherOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher.ExcludeApps = []string{"Dock"}
	opts := cfg.MatcherOptions(4242)
	assert.Equal(t, 4242, opts.SelfPID)
	assert.Equal(t, []string{"Dock"}, opts.ExcludeApps)
	assert.Equal(t, cfg.Matcher.MinSize, opts.MinSize)
	assert.Empty(t, opts.ExcludePIDs)

	opts = cfg.MatcherOptions(4242, 7, 9)
	assert.Equal(t, []int{7, 9}, opts.ExcludePIDs)
}

func TestLoaderReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "[bindings]\nopen = \"alt+tab\"\n")

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	l.OnChange(func(c *Config) { changed <- c })
	require.NoError(t, l.Watch())
	defer l.Close()

	writeFile(t, dir, "config.toml", "[bindings]\nopen = \"cmd+grave\"\n")

	select {
	case c := <-changed:
		assert.Equal(t, "cmd+grave", c.Bindings.Open)
		assert.Equal(t, "cmd+grave", l.Config().Bindings.Open)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file change")
	}
}

func TestLoaderReportsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "")

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	writeFile(t, dir, "config.toml", "[bindings]\nopen = \"tab\"\n")

	select {
	case err := <-l.Errors():
		assert.ErrorContains(t, err, "reload config")
		assert.Equal(t, "alt+tab", l.Config().Bindings.Open, "invalid reload keeps the old config")
	case <-time.After(3 * time.Second):
		t.Fatal("no error after invalid change")
	}
}
