package series

import (
	"math"
	"sort"
	"time"
)

// Point is one observation of a closing value.
type Point struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// Series is an ordered sequence of closing values, strictly increasing by
// timestamp with no duplicates. An empty Series is a meaningful value
// ("no data available"), distinct from never having attempted a fetch.
type Series []Point

// New builds a Series from raw points: non-finite values are dropped,
// points are sorted by timestamp, and duplicate timestamps collapse to the
// last value seen for that timestamp.
func New(points []Point) Series {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })

	out := kept[:0]
	for _, p := range kept {
		if n := len(out); n > 0 && out[n-1].Time.Equal(p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return Series(out)
}

func (s Series) Empty() bool { return len(s) == 0 }

// Last returns the most recent point, if any.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// RescaleTo multiplies every value so the last point equals target. Used to
// pin a proxy instrument to the primary instrument's last known level. If
// the series is empty or its last value is zero the series is returned
// unchanged rather than dividing by zero.
func (s Series) RescaleTo(target float64) Series {
	last, ok := s.Last()
	if !ok || last.Close == 0 {
		return s
	}
	factor := target / last.Close
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Time: p.Time, Close: p.Close * factor}
	}
	return out
}
