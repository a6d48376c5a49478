package matcher

import (
	"strings"

	"github.com/mj1618/desktop-switch/internal/model"
)

// NormalLayer is the window layer of ordinary application windows.
const NormalLayer = 0

// Options tunes one reconciliation pass.
type Options struct {
	// Tolerance is the strict upper bound on width and height differences.
	Tolerance float64
	// MinSize is the minimum width and height of an eligible window.
	MinSize float64
	// SelfPID is excluded from the result (the switcher's own process).
	SelfPID int
	// ExcludePIDs and ExcludeApps remove further processes. App names are
	// compared case-insensitively.
	ExcludePIDs []int
	ExcludeApps []string

	// ZConvention and TitleConvention describe the vertical origin each
	// source reports in. PrimaryHeight is the primary display height used to
	// convert BottomLeft geometry.
	ZConvention     model.Convention
	TitleConvention model.Convention
	PrimaryHeight   float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		MinSize:   DefaultMinSize,
	}
}

// TitleFunc returns the accessibility windows of one process.
type TitleFunc func(pid int) []model.TitleEntry

// AppFunc returns metadata for the app owning pid.
type AppFunc func(pid int) (model.AppInfo, bool)

// processWindows is the per-pid title cache entry for a single pass.
type processWindows struct {
	entries []model.TitleEntry
	used    []bool
}

// Reconcile matches z-ordered entries to titled windows and returns the
// canonical records sorted by ZRank. titles is called at most once per pid
// and apps at most once per pid; neither result outlives the call.
func Reconcile(z []model.ZEntry, titles TitleFunc, apps AppFunc, opts Options) []model.WindowRecord {
	records := []model.WindowRecord{}
	if len(z) == 0 || titles == nil {
		return records
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	excludedPIDs := make(map[int]bool, len(opts.ExcludePIDs)+1)
	for _, pid := range opts.ExcludePIDs {
		excludedPIDs[pid] = true
	}
	if opts.SelfPID > 0 {
		excludedPIDs[opts.SelfPID] = true
	}
	excludedApps := make(map[string]bool, len(opts.ExcludeApps))
	for _, name := range opts.ExcludeApps {
		excludedApps[strings.ToLower(name)] = true
	}

	appCache := make(map[int]model.AppInfo)
	appKnown := make(map[int]bool)
	lookupApp := func(pid int) (model.AppInfo, bool) {
		if info, ok := appCache[pid]; ok {
			return info, appKnown[pid]
		}
		var info model.AppInfo
		ok := false
		if apps != nil {
			info, ok = apps(pid)
		}
		appCache[pid] = info
		appKnown[pid] = ok
		return info, ok
	}

	windowCache := make(map[int]*processWindows)
	lookupWindows := func(pid int) *processWindows {
		if pw, ok := windowCache[pid]; ok {
			return pw
		}
		entries := append([]model.TitleEntry(nil), titles(pid)...)
		for i := range entries {
			entries[i].Geometry = model.Normalize(entries[i].Geometry, opts.TitleConvention, opts.PrimaryHeight)
		}
		pw := &processWindows{entries: entries, used: make([]bool, len(entries))}
		windowCache[pid] = pw
		return pw
	}

	seen := make(map[string]bool)
	for zIndex, entry := range z {
		if entry.Layer != NormalLayer || excludedPIDs[entry.PID] {
			continue
		}
		geom := model.Normalize(entry.Geometry, opts.ZConvention, opts.PrimaryHeight)
		if geom.Width < opts.MinSize || geom.Height < opts.MinSize {
			continue
		}

		appName := entry.AppName
		var iconPath string
		if apps != nil {
			info, ok := lookupApp(entry.PID)
			if !ok || !info.Regular {
				continue
			}
			if info.Name != "" {
				appName = info.Name
			}
			iconPath = info.IconPath
		}
		if excludedApps[strings.ToLower(appName)] {
			continue
		}

		pw := lookupWindows(entry.PID)
		idx, ok := MatchGeometry(geom, pw.entries, pw.used, opts.Tolerance)
		if !ok {
			continue
		}
		pw.used[idx] = true
		candidate := pw.entries[idx]
		if !eligible(candidate) {
			continue
		}

		id := model.Identity{WindowID: candidate.WindowID, PID: entry.PID, Title: candidate.Title}
		key := id.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		records = append(records, model.WindowRecord{
			Identity:    id,
			PID:         entry.PID,
			AppName:     appName,
			AppIconPath: iconPath,
			Title:       candidate.Title,
			Subrole:     candidate.Subrole,
			Geometry:    geom,
			ZRank:       zIndex,
		})
	}
	// Records are appended in z order, so they are already sorted by ZRank.
	return records
}

func eligible(t model.TitleEntry) bool {
	if t.Title == "" {
		return false
	}
	if t.Role != "" && t.Role != model.WindowRole {
		return false
	}
	return model.IsSwitchable(t.Subrole)
}
