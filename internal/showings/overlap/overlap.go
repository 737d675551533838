// Package overlap decides whether two time windows conflict.
//
// Windows are half-open [start, end). Windows that only touch at a boundary, such as
// 09:30-10:00 and 10:00-10:30, never conflict.
package overlap

import (
	"showings/pkg/model"
	"time"
)

// Conflicts reports whether an existing window [s, e) conflicts with a proposed window
// [S, E). It does when s lies strictly inside (S, E), when e lies strictly inside (S, E),
// or when the existing window covers the proposed one.
func Conflicts(s, e, S, E time.Time) bool {
	if S.Before(s) && s.Before(E) {
		return true
	}
	if S.Before(e) && e.Before(E) {
		return true
	}
	return !s.After(S) && !e.Before(E)
}

// ValidRange reports whether start is strictly before end.
func ValidRange(start, end time.Time) bool {
	return start.Before(end)
}

// FindConflict returns the first SCHEDULED showing in candidates that conflicts with
// [start, end), ignoring excludeID. Candidates in other states never conflict.
func FindConflict(candidates []*model.Showing, start, end time.Time, excludeID string) *model.Showing {
	for _, c := range candidates {
		if c == nil || c.Status != model.StatusScheduled {
			continue
		}
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if Conflicts(c.StartTime, c.EndTime, start, end) {
			return c
		}
	}
	return nil
}
