// Package matcher reconciles the z-ordered window list with the per-process
// accessibility window lists into canonical, deduplicated WindowRecords.
package matcher

import "github.com/mj1618/desktop-switch/internal/model"

// DefaultTolerance is the maximum size difference, in points, for two
// geometries to be considered the same window. The comparison is strict.
const DefaultTolerance = 2.0

// DefaultMinSize is the smallest width and height of a switchable window.
// Smaller surfaces are tooltips, menus and status items.
const DefaultMinSize = 50.0

// SizeMatches reports whether a and b differ by strictly less than tol in
// both width and height.
func SizeMatches(a, b model.Geometry, tol float64) bool {
	dw, dh := a.SizeDelta(b)
	return dw < tol && dh < tol
}

// MatchGeometry finds the candidate that best matches target. used marks
// candidates consumed earlier in the pass; it may be nil. Among candidates
// within tolerance the one with the smallest total absolute difference wins,
// and the lowest index breaks remaining ties.
func MatchGeometry(target model.Geometry, candidates []model.TitleEntry, used []bool, tol float64) (int, bool) {
	best := -1
	bestDist := 0.0
	for i, c := range candidates {
		if i < len(used) && used[i] {
			continue
		}
		if !SizeMatches(target, c.Geometry, tol) {
			continue
		}
		d := target.Distance(c.Geometry)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}
