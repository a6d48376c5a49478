package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/hotkey"
	"github.com/mj1618/desktop-switch/internal/output"
)

// BindingEntry is one row of the bindings command output.
type BindingEntry struct {
	Chord   string `yaml:"chord"   json:"chord"`
	Command string `yaml:"command" json:"command"`
	Scope   string `yaml:"scope"   json:"scope"`
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Print the resolved hotkey bindings",
	Long: `Resolve the [bindings] section of the config file and print every chord.
The open chord is global; the rest only apply while its modifiers are held.`,
	RunE: runBindings,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
}

func runBindings(cmd *cobra.Command, args []string) error {
	b, err := currentConfig().ResolveBindings()
	if err != nil {
		return err
	}
	return output.Print(bindingEntries(b))
}

func bindingEntries(b *hotkey.Bindings) []BindingEntry {
	list := b.List()
	entries := make([]BindingEntry, 0, len(list))
	for i, binding := range list {
		scope := "held"
		if i == 0 {
			scope = "global"
		}
		entries = append(entries, BindingEntry{
			Chord:   binding.Chord.String(),
			Command: binding.Command.String(),
			Scope:   scope,
		})
	}
	return entries
}
