package server

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-switch/internal/activation"
	"github.com/mj1618/desktop-switch/internal/matcher"
	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/platform/fake"
	"github.com/mj1618/desktop-switch/internal/session"
)

type harness struct {
	windows *fake.Windows
	focuser *fake.Focuser
	gate    *fake.Gate
	owner   *session.Owner
	server  *Server
}

func newHarness(t *testing.T, withOwner bool) *harness {
	t.Helper()
	w := fake.NewWindows()
	w.AddApp(100, "Mail")
	w.AddApp(200, "Editor")
	w.AddWindow(100, "Inbox", model.Geometry{X: 0, Y: 25, Width: 1200, Height: 800})
	w.AddWindow(200, "main.go", model.Geometry{X: 300, Y: 100, Width: 1000, Height: 700})

	h := &harness{windows: w, focuser: fake.NewFocuser(w), gate: fake.NewGate(true)}
	p := fake.Provider(w, h.gate, h.focuser, nil)
	enum := matcher.NewEnumerator(p, matcher.DefaultOptions(), nil)
	engine := activation.NewEngine(p, activation.DefaultConfig(), nil)

	if withOwner {
		h.owner = session.NewOwner(enum, engine)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			h.owner.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	h.server = New(Config{}, h.owner, enum, engine, h.gate, nil)
	return h
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// invoke calls h with args and returns the result and its text content.
func invoke(t *testing.T, h handler, args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := h(context.Background(), call(args))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return res, tc.Text
}

func TestListWindows(t *testing.T) {
	h := newHarness(t, false)
	_, text := invoke(t, h.server.handleListWindows, nil)

	var got output.ListResult
	if err := yaml.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("result is not YAML: %v\n%s", err, text)
	}
	if got.Count != 2 {
		t.Fatalf("count = %d, want 2", got.Count)
	}
	if got.Windows[0].Title != "Inbox" || got.Windows[1].Title != "main.go" {
		t.Errorf("order = %q, %q; want Inbox, main.go", got.Windows[0].Title, got.Windows[1].Title)
	}
}

func TestListWindowsFilter(t *testing.T) {
	h := newHarness(t, false)

	_, text := invoke(t, h.server.handleListWindows, map[string]interface{}{"app": "edit"})
	if !strings.Contains(text, "main.go") || strings.Contains(text, "Inbox") {
		t.Errorf("filter by app failed:\n%s", text)
	}
}

func TestListWindowsEnumeratesEveryCall(t *testing.T) {
	h := newHarness(t, true)

	_, text := invoke(t, h.server.handleListWindows, nil)
	if !strings.Contains(text, "main.go") {
		t.Fatalf("first list missing main.go:\n%s", text)
	}
	calls := h.windows.TitleCalls(200)

	h.windows.RemoveProcess(200)
	_, text = invoke(t, h.server.handleListWindows, nil)
	if strings.Contains(text, "main.go") {
		t.Errorf("second list still shows a closed window:\n%s", text)
	}
	h.windows.AddApp(200, "Editor")
	h.windows.AddWindow(200, "notes.md", model.Geometry{X: 0, Y: 0, Width: 500, Height: 500})
	_, text = invoke(t, h.server.handleListWindows, nil)
	if !strings.Contains(text, "notes.md") {
		t.Errorf("third list missing new window:\n%s", text)
	}
	if got := h.windows.TitleCalls(200); got != calls+1 {
		t.Errorf("title queries for pid 200 = %d, want %d", got, calls+1)
	}
}

type recordingActivator struct {
	got []model.WindowRecord
}

func (a *recordingActivator) Activate(_ context.Context, rec model.WindowRecord) error {
	a.got = append(a.got, rec)
	return nil
}

func TestActivateWindowUsesFreshEnumeration(t *testing.T) {
	h := newHarness(t, false)
	act := &recordingActivator{}
	p := fake.Provider(h.windows, h.gate, h.focuser, nil)
	srv := New(Config{}, nil, matcher.NewEnumerator(p, matcher.DefaultOptions(), nil), act, h.gate, nil)

	invoke(t, srv.handleListWindows, nil)
	moved := model.Geometry{X: 900, Y: 500, Width: 1000, Height: 700}
	h.windows.MoveWindow(200, "main.go", moved)

	res, text := invoke(t, srv.handleActivateWindow, map[string]interface{}{"pid": float64(200), "title": "main.go"})
	if res.IsError {
		t.Fatalf("activation failed:\n%s", text)
	}
	if len(act.got) != 1 {
		t.Fatalf("activated %d records, want 1", len(act.got))
	}
	if act.got[0].Geometry != moved {
		t.Errorf("activated geometry = %+v, want %+v", act.got[0].Geometry, moved)
	}
}

func TestLookup(t *testing.T) {
	windows := []model.WindowRecord{{PID: 1, Title: "a", Identity: model.Identity{WindowID: 7, PID: 1, Title: "a"}}}
	if got := lookup(windows, 1, "a"); got.Identity.WindowID != 7 {
		t.Errorf("lookup(1, a) = %+v", got)
	}
	if got := lookup(windows, 2, "b"); got.Identity.Key() != "pid:2/b" || got.Geometry != (model.Geometry{}) {
		t.Errorf("lookup(2, b) = %+v", got)
	}
}

func TestActivateWindow(t *testing.T) {
	h := newHarness(t, true)
	res, text := invoke(t, h.server.handleActivateWindow, map[string]interface{}{"pid": float64(200), "title": "main.go"})
	if res.IsError {
		t.Fatalf("activation failed:\n%s", text)
	}
	var got ActivateResult
	if err := yaml.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if !got.OK || got.Outcome != "activated" {
		t.Errorf("result = %+v, want ok/activated", got)
	}
}

func TestActivateWindowProcessGone(t *testing.T) {
	h := newHarness(t, false)
	h.windows.RemoveProcess(200)
	res, text := invoke(t, h.server.handleActivateWindow, map[string]interface{}{"pid": float64(200), "title": "main.go"})
	if !res.IsError {
		t.Fatalf("expected an error result:\n%s", text)
	}
	if !strings.Contains(text, "outcome: uncertain") || !strings.Contains(text, "reason: process gone") {
		t.Errorf("unexpected result:\n%s", text)
	}
}

func TestActivateWindowRequiresArguments(t *testing.T) {
	h := newHarness(t, false)
	if res, _ := invoke(t, h.server.handleActivateWindow, map[string]interface{}{"title": "x"}); !res.IsError {
		t.Error("expected an error result without pid")
	}
}

func TestPermissionStatus(t *testing.T) {
	h := newHarness(t, false)
	h.gate.Set(false)

	_, text := invoke(t, h.server.handlePermissionStatus, nil)
	if !strings.Contains(text, "granted: false") || h.gate.Requests() != 0 {
		t.Errorf("status without prompt:\n%s (requests %d)", text, h.gate.Requests())
	}
	_, text = invoke(t, h.server.handlePermissionStatus, map[string]interface{}{"prompt": true})
	if !strings.Contains(text, "prompted: true") || h.gate.Requests() != 1 {
		t.Errorf("status with prompt:\n%s (requests %d)", text, h.gate.Requests())
	}
}

func TestSessionCommands(t *testing.T) {
	h := newHarness(t, true)

	send := func(name string) session.State {
		t.Helper()
		res, text := invoke(t, h.server.handleSessionCommand, map[string]interface{}{"command": name})
		if res.IsError {
			t.Fatalf("%s failed: %s", name, text)
		}
		var s session.State
		if err := yaml.Unmarshal([]byte(text), &s); err != nil {
			t.Fatal(err)
		}
		return s
	}

	s := send("open")
	if !s.Visible || s.Selected != 1 {
		t.Fatalf("after open: visible=%v selected=%d, want true/1", s.Visible, s.Selected)
	}
	if s = send("next"); s.Selected != 0 {
		t.Errorf("after next: selected=%d, want 0 (wrapped)", s.Selected)
	}
	if s = send("commit"); s.Visible {
		t.Error("session still visible after commit")
	}
	if got := h.focuser.Calls(); len(got) == 0 || got[0] != "resolve_process" {
		t.Errorf("commit did not activate: calls %v", got)
	}

	_, text := invoke(t, h.server.handleSessionState, nil)
	if !strings.Contains(text, "visible: false") {
		t.Errorf("session_state:\n%s", text)
	}
}

func TestSessionCommandUnknown(t *testing.T) {
	h := newHarness(t, true)
	if res, _ := invoke(t, h.server.handleSessionCommand, map[string]interface{}{"command": "jump"}); !res.IsError {
		t.Error("expected an error for an unknown command")
	}
}

func TestParams(t *testing.T) {
	params := map[string]interface{}{"s": "x", "f": float64(3), "i": 4, "b": true}
	if got := StringParam(params, "s", ""); got != "x" {
		t.Errorf("StringParam = %q", got)
	}
	if got := IntParam(params, "f", 0); got != 3 {
		t.Errorf("IntParam(float) = %d", got)
	}
	if got := IntParam(params, "i", 0); got != 4 {
		t.Errorf("IntParam(int) = %d", got)
	}
	if got := IntParam(params, "missing", 7); got != 7 {
		t.Errorf("IntParam default = %d", got)
	}
	if !BoolParam(params, "b", false) || BoolParam(nil, "b", false) {
		t.Error("BoolParam mismatch")
	}
}
