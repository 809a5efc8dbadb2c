// Package quiet decides whether the session falls inside the configured
// quiet window, during which every quantity request is served from cache
// and no upstream call is made. Most of the free data providers carry
// strict call quotas; overnight staleness is an acceptable price for not
// burning them.
package quiet

import "time"

// State is evaluated once at session start and threaded through calls
// explicitly. It is deliberately NOT re-evaluated mid-session: a long
// session spanning the boundary keeps its original mode.
type State struct {
	Active      bool      `json:"active"`
	StartHour   int       `json:"start_hour"`
	EndHour     int       `json:"end_hour"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Evaluate computes the state for the given local wall-clock time. For an
// overnight window (start > end) the active range is [start,24) and
// [0,end); for a same-day window (start < end) it is [start,end). Equal
// boundaries disable the window.
func Evaluate(now time.Time, startHour, endHour int) State {
	h := now.Hour()
	var active bool
	switch {
	case startHour == endHour:
		active = false
	case startHour > endHour:
		active = h >= startHour || h < endHour
	default:
		active = h >= startHour && h < endHour
	}
	return State{Active: active, StartHour: startHour, EndHour: endHour, EvaluatedAt: now}
}
