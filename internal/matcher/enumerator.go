package matcher

import (
	"log/slog"
	"time"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// Enumerator produces a fresh WindowRecord set from the platform sources.
// It keeps no state between calls.
type Enumerator struct {
	z      platform.ZSource
	titles platform.TitleSource
	apps   platform.AppDirectory
	gate   platform.PermissionGate
	opts   Options
	log    *slog.Logger
}

// NewEnumerator creates an enumerator over the provider's sources.
// A nil logger uses slog.Default().
func NewEnumerator(p *platform.Provider, opts Options, logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enumerator{opts: opts, log: logger}
	if p != nil {
		e.z = p.ZSource
		e.titles = p.TitleSource
		e.apps = p.AppDirectory
		e.gate = p.Permission
	}
	return e
}

// Options returns the reconciliation options in use.
func (e *Enumerator) Options() Options {
	return e.opts
}

// SetOptions replaces the reconciliation options for subsequent snapshots.
// It must be called from the goroutine that calls Snapshot.
func (e *Enumerator) SetOptions(opts Options) {
	e.opts = opts
}

// Snapshot enumerates windows. It returns an empty slice, never nil, when
// permission is missing or nothing is switchable.
func (e *Enumerator) Snapshot() []model.WindowRecord {
	if e.z == nil || e.titles == nil {
		return []model.WindowRecord{}
	}
	if e.gate != nil && !e.gate.HasPermission() {
		e.log.Debug("enumeration skipped: accessibility permission missing")
		return []model.WindowRecord{}
	}

	start := time.Now()
	z := e.queryZ()
	titleQueries := 0
	titles := func(pid int) []model.TitleEntry {
		titleQueries++
		return e.queryTitles(pid)
	}
	var apps AppFunc
	if e.apps != nil {
		apps = e.lookupApp
	}

	records := Reconcile(z, titles, apps, e.opts)
	e.log.Debug("enumerated windows",
		"z_entries", len(z),
		"title_queries", titleQueries,
		"records", len(records),
		"elapsed", time.Since(start))
	return records
}

func (e *Enumerator) queryZ() (entries []model.ZEntry) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("z-source query panicked", "panic", r)
			entries = nil
		}
	}()
	return e.z.QueryZ()
}

func (e *Enumerator) queryTitles(pid int) (entries []model.TitleEntry) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("title-source query panicked", "pid", pid, "panic", r)
			entries = nil
		}
	}()
	return e.titles.QueryTitles(pid)
}

func (e *Enumerator) lookupApp(pid int) (info model.AppInfo, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("app lookup panicked", "pid", pid, "panic", r)
			info, ok = model.AppInfo{}, false
		}
	}()
	return e.apps.Lookup(pid)
}
