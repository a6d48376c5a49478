package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-switch/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// ListResult is the top-level output of the `list` command.
type ListResult struct {
	TS      int64                `yaml:"ts"      json:"ts"`
	Count   int                  `yaml:"count"   json:"count"`
	Windows []model.WindowRecord `yaml:"windows" json:"windows"`
}

// NewListResult wraps an enumeration for printing. It never holds a nil
// slice so JSON prints [] for an empty desktop.
func NewListResult(ts int64, windows []model.WindowRecord) ListResult {
	if windows == nil {
		windows = []model.WindowRecord{}
	}
	return ListResult{TS: ts, Count: len(windows), Windows: windows}
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return writeJSON(w, v, PrettyOutput)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v to stdout as compact single-line JSON.
func PrintJSON(v interface{}) error {
	return writeJSON(os.Stdout, v, false)
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v interface{}) error {
	return writeYAML(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
