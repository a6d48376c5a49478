package model

import (
	"fmt"
	"strconv"
)

// WindowRecord is a canonical, switcher-visible window produced by one
// enumeration pass. Records are never reused across passes.
type WindowRecord struct {
	Identity    Identity `yaml:"identity"            json:"identity"`
	PID         int      `yaml:"pid"                 json:"pid"`
	AppName     string   `yaml:"app,omitempty"       json:"app,omitempty"`
	AppIconPath string   `yaml:"icon,omitempty"      json:"icon,omitempty"`
	Title       string   `yaml:"title"               json:"title"`
	Subrole     string   `yaml:"subrole,omitempty"   json:"subrole,omitempty"`
	Geometry    Geometry `yaml:"geometry"            json:"geometry"`
	ZRank       int      `yaml:"z_rank"              json:"z_rank"`
}

// Identity is the deduplication key of a WindowRecord. WindowID is the OS
// window number when the title source could resolve it, 0 otherwise.
type Identity struct {
	WindowID uint32 `yaml:"window_id,omitempty" json:"window_id,omitempty"`
	PID      int    `yaml:"pid"                 json:"pid"`
	Title    string `yaml:"title"               json:"title"`
}

// Key returns the string form used for deduplication.
func (id Identity) Key() string {
	if id.WindowID != 0 {
		return "wid:" + strconv.FormatUint(uint64(id.WindowID), 10)
	}
	return fmt.Sprintf("pid:%d/%s", id.PID, id.Title)
}

func (id Identity) String() string {
	return id.Key()
}

// ZEntry is one row of the z-ordered window list. Its position in the
// returned slice is the z-order signal; Title is unreliable and unused for
// matching.
type ZEntry struct {
	PID      int
	Layer    int
	Geometry Geometry
	WindowID uint32
	AppName  string
}

// TitleEntry is one window reported by the per-process accessibility query.
// Entries carry no ordering guarantee.
type TitleEntry struct {
	Geometry Geometry
	Title    string
	Role     string
	Subrole  string
	WindowID uint32 // 0 when the OS id could not be resolved
}

// AppInfo describes the application owning a process.
type AppInfo struct {
	PID      int
	Name     string
	IconPath string
	// Regular is true for apps with the regular activation policy (they own a
	// Dock icon and can become frontmost).
	Regular bool
}
