package output

import (
	"bytes"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-switch/internal/model"
)

func sampleWindows() []model.WindowRecord {
	return []model.WindowRecord{
		{
			Identity: model.Identity{WindowID: 42, PID: 100, Title: "Inbox"},
			PID:      100, AppName: "Mail", Title: "Inbox", Subrole: "AXStandardWindow",
			Geometry: model.Geometry{X: 0, Y: 25, Width: 1200, Height: 800},
			ZRank:    0,
		},
		{
			Identity: model.Identity{PID: 200, Title: "main.go"},
			PID:      200, AppName: "Editor", Title: "main.go", Subrole: "AXStandardWindow",
			Geometry: model.Geometry{X: 300, Y: 100, Width: 1000, Height: 700},
			ZRank:    3,
		},
	}
}

func withFormat(t *testing.T, f Format, pretty bool) {
	t.Helper()
	oldFormat, oldPretty := OutputFormat, PrettyOutput
	OutputFormat, PrettyOutput = f, pretty
	t.Cleanup(func() { OutputFormat, PrettyOutput = oldFormat, oldPretty })
}

func TestFprintYAML(t *testing.T) {
	withFormat(t, FormatYAML, false)
	var buf bytes.Buffer
	if err := Fprint(&buf, NewListResult(1707500000, sampleWindows())); err != nil {
		t.Fatal(err)
	}
	output := buf.String()

	if bytes.Count(buf.Bytes(), []byte("\n")) <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", output)
	}
	var decoded ListResult
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Count != 2 || len(decoded.Windows) != 2 {
		t.Errorf("count: got %d/%d, want 2", decoded.Count, len(decoded.Windows))
	}
	if decoded.Windows[1].Title != "main.go" {
		t.Errorf("title: got %q, want %q", decoded.Windows[1].Title, "main.go")
	}
}

func TestFprintJSON(t *testing.T) {
	withFormat(t, FormatJSON, false)
	var buf bytes.Buffer
	if err := Fprint(&buf, NewListResult(1, sampleWindows())); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(strings.TrimSpace(buf.String()), "\n"); n != 0 {
		t.Errorf("compact JSON should be one line, got %d newlines", n)
	}
	var decoded ListResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Windows[0].Identity.WindowID != 42 {
		t.Errorf("window id: got %d, want 42", decoded.Windows[0].Identity.WindowID)
	}
}

func TestFprintPrettyJSON(t *testing.T) {
	withFormat(t, FormatJSON, true)
	var buf bytes.Buffer
	if err := Fprint(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"a\": 1") {
		t.Errorf("expected indented JSON, got %q", buf.String())
	}
}

func TestEmptyListPrintsEmptyArray(t *testing.T) {
	withFormat(t, FormatJSON, false)
	var buf bytes.Buffer
	if err := Fprint(&buf, NewListResult(1, nil)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"windows":[]`) {
		t.Errorf("expected empty windows array, got %s", buf.String())
	}
}

func TestFprintUnsupportedFormat(t *testing.T) {
	withFormat(t, Format("xml"), false)
	if err := Fprint(&bytes.Buffer{}, 1); err == nil {
		t.Error("expected error for xml format")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Error("expected error for toml")
	}
}

func TestRenderLayout(t *testing.T) {
	img := RenderLayout(sampleWindows(), 800)
	b := img.Bounds()
	if b.Dx() != 800 {
		t.Errorf("width = %d, want 800", b.Dx())
	}
	// 1300x800 points scaled into 768 pixels keeps the aspect ratio.
	wantH := 2*layoutMargin + 473
	if b.Dy() < wantH-1 || b.Dy() > wantH+1 {
		t.Errorf("height = %d, want about %d", b.Dy(), wantH)
	}
	// The frontmost window's top-left corner is drawn in the front color.
	if got := img.RGBAAt(layoutMargin, layoutMargin); got != frontColor {
		t.Errorf("corner pixel = %v, want %v", got, frontColor)
	}
}

func TestRenderLayoutEmpty(t *testing.T) {
	img := RenderLayout(nil, 0)
	if img.Bounds().Dx() != DefaultLayoutWidth {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), DefaultLayoutWidth)
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, sampleWindows(), 400); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"a long window title", 10, "a long ..."},
		{"abc", 0, ""},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLayoutLabel(t *testing.T) {
	tests := []struct {
		subrole string
		want    string
	}{
		{"AXStandardWindow", "#2 Mail: Inbox"},
		{"", "#2 Mail: Inbox"},
		{"AXDialog", "#2 Mail: Inbox (dialog)"},
		{"AXWeird", "#2 Mail: Inbox (other)"},
	}
	for _, tt := range tests {
		w := model.WindowRecord{ZRank: 2, AppName: "Mail", Title: "Inbox", Subrole: tt.subrole}
		if got := layoutLabel(w); got != tt.want {
			t.Errorf("layoutLabel(%q) = %q, want %q", tt.subrole, got, tt.want)
		}
	}
}
