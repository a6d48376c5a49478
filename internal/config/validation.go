package config

import (
	"fmt"
	"strings"

	"github.com/mj1618/desktop-switch/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidationErrors listing all
// problems, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := c.ResolveBindings(); err != nil {
		add("bindings", "%v", err)
	}

	if c.Matcher.Tolerance <= 0 {
		add("matcher.tolerance", "must be positive, got %v", c.Matcher.Tolerance)
	}
	if c.Matcher.MinSize < 0 {
		add("matcher.min_size", "must not be negative, got %v", c.Matcher.MinSize)
	}

	if c.Activation.BudgetMs <= 0 {
		add("activation.budget_ms", "must be positive, got %d", c.Activation.BudgetMs)
	}
	if c.Activation.SettleMs < 0 {
		add("activation.settle_ms", "must not be negative, got %d", c.Activation.SettleMs)
	}
	if c.Activation.SettleMs > c.Activation.BudgetMs {
		add("activation.settle_ms", "%d exceeds budget_ms %d", c.Activation.SettleMs, c.Activation.BudgetMs)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		add("logging.format", "%v", err)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "", "stderr", "stdout", "file", "both":
	default:
		add("logging.output", "must be stderr, stdout, file or both, got %q", c.Logging.Output)
	}

	if c.Permission.PollMs < 50 {
		add("permission.poll_ms", "must be at least 50, got %d", c.Permission.PollMs)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
