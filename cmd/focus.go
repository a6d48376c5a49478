package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/activation"
	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/session"
)

// FocusResult is the output of the focus command.
type FocusResult struct {
	OK      bool   `yaml:"ok"               json:"ok"`
	Outcome string `yaml:"outcome"          json:"outcome"`
	Reason  string `yaml:"reason,omitempty" json:"reason,omitempty"`
	App     string `yaml:"app,omitempty"    json:"app,omitempty"`
	Window  string `yaml:"window"           json:"window"`
	PID     int    `yaml:"pid"              json:"pid"`
	Error   string `yaml:"error,omitempty"  json:"error,omitempty"`
}

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Bring a window to the foreground",
	Long: `Run the switcher's activation chain against one window, identified by
its process ID and exact title, as if it had been committed from the switcher.`,
	RunE: runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
	focusCmd.Flags().Int("pid", 0, "Process ID owning the window")
	focusCmd.Flags().String("title", "", "Exact window title")
	focusCmd.Flags().Bool("click", false, "Also click the title bar after raising")
}

func runFocus(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	title, _ := cmd.Flags().GetString("title")
	if pid <= 0 || title == "" {
		return fmt.Errorf("specify --pid and --title")
	}

	c, err := newCore(currentConfig())
	if err != nil {
		return err
	}
	if click, _ := cmd.Flags().GetBool("click"); click {
		cfg := c.engine.Config()
		cfg.SyntheticClick = true
		c.engine.SetConfig(cfg)
	}

	rec := findRecord(c.enumerator.Snapshot(), pid, title)
	result := FocusResult{
		OK:      true,
		Outcome: session.Activated.String(),
		App:     rec.AppName,
		Window:  title,
		PID:     pid,
	}
	if err := c.engine.Activate(cmd.Context(), rec); err != nil {
		result.OK = false
		result.Outcome = session.Uncertain.String()
		result.Error = err.Error()
		if reason, ok := activation.ReasonOf(err); ok {
			result.Reason = reason.String()
		}
	}
	return output.Print(result)
}

// findRecord returns the enumerated window matching pid and title, or a bare
// record when the window is not switchable (activation still gets a chance).
func findRecord(windows []model.WindowRecord, pid int, title string) model.WindowRecord {
	for _, w := range windows {
		if w.PID == pid && w.Title == title {
			return w
		}
	}
	return model.WindowRecord{
		Identity: model.Identity{PID: pid, Title: title},
		PID:      pid,
		Title:    title,
	}
}
