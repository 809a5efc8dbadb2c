package observ

import (
	"sort"
	"strings"
	"sync"
)

// Small in-process counter registry. Enough for operational visibility and
// for tests that assert "no upstream call happened".
type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64 // name -> labelsKey -> count
}

var reg = &registry{counters: map[string]map[string]int64{}}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	m[canonLabels(labels)]++
}

// CounterValue returns the current count for a name+labels pair.
func CounterValue(name string, labels map[string]string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		return 0
	}
	return m[canonLabels(labels)]
}

// CounterTotal sums a counter across all label combinations.
func CounterTotal(name string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var total int64
	for _, v := range reg.counters[name] {
		total += v
	}
	return total
}

// ResetMetrics clears all counters. Test helper.
func ResetMetrics() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.counters = map[string]map[string]int64{}
}
