package model

// SubroleMap maps macOS AXSubrole values of top-level windows to compact
// codes used in output.
var SubroleMap = map[string]string{
	"AXStandardWindow":       "standard",
	"AXFloatingWindow":       "floating",
	"AXDialog":               "dialog",
	"AXSystemDialog":         "system-dialog",
	"AXSystemFloatingWindow": "system-floating",
	"AXSheet":                "sheet",
	"AXDrawer":               "drawer",
	"AXUnknown":              "unknown",
}

// switchableSubroles is the allow-list of window kinds the switcher offers.
var switchableSubroles = map[string]bool{
	"AXStandardWindow": true,
	"AXFloatingWindow": true,
	"AXDialog":         true,
}

// WindowRole is the AXRole every top-level window reports.
const WindowRole = "AXWindow"

// IsSwitchable reports whether a window with the given subrole may appear in
// the switcher.
func IsSwitchable(subrole string) bool {
	return switchableSubroles[subrole]
}

// MapSubrole converts a raw accessibility subrole to a compact code.
func MapSubrole(axSubrole string) string {
	if short, ok := SubroleMap[axSubrole]; ok {
		return short
	}
	return "other"
}
