// Package resolve walks an ordered chain of provider adapters for one
// logical quantity and returns the first usable series. Failure is data
// here: an adapter error and an empty series are the same thing, "try the
// next one", and running out of adapters is a legitimate terminal outcome,
// not an error.
package resolve

import (
	"context"

	"miniterminal/internal/adapters"
	"miniterminal/internal/diag"
	"miniterminal/internal/observ"
	"miniterminal/internal/series"
)

// Step is one entry of an adapter chain. A Proxy step's series tracks a
// substitute instrument and is rescaled to the primary's last known level
// before being returned, so its label must never be confused with a
// genuine primary reading.
type Step struct {
	Provider adapters.Provider
	Proxy    bool
}

// Result is the outcome of one resolve pass. Immutable once produced.
// Source is empty when every adapter was exhausted.
type Result struct {
	Series   series.Series  `json:"series"`
	Source   string         `json:"source,omitempty"`
	Proxy    bool           `json:"proxy,omitempty"`
	Attempts []diag.Attempt `json:"attempts"`
}

// LastKnownFunc supplies the primary instrument's last known value for
// proxy rescaling. ok=false means no prior value exists and proxy series
// pass through unscaled.
type LastKnownFunc func() (float64, bool)

// Resolve tries the chain strictly in order, stopping at the first adapter
// that yields a non-empty series. Every attempt record from every adapter
// tried is aggregated in invocation order, including those made before the
// success.
func Resolve(ctx context.Context, quantity string, chain []Step, lastKnown LastKnownFunc) Result {
	var rec diag.Recorder
	for _, step := range chain {
		s, label, err := step.Provider.Fetch(ctx, &rec)
		if err != nil || s.Empty() {
			continue
		}
		if step.Proxy {
			suffix := " (proxy)"
			if lastKnown != nil {
				if target, ok := lastKnown(); ok {
					if last, _ := s.Last(); last.Close != 0 {
						s = s.RescaleTo(target)
						suffix = " (proxy, normalized)"
					}
				}
			}
			label += suffix
		}
		observ.IncCounter("resolve_success_total", map[string]string{"quantity": quantity, "source": label})
		observ.Log("resolve_complete", map[string]any{
			"quantity": quantity,
			"source":   label,
			"proxy":    step.Proxy,
			"rows":     len(s),
			"attempts": len(rec.Attempts()),
		})
		return Result{Series: s, Source: label, Proxy: step.Proxy, Attempts: rec.Attempts()}
	}

	observ.IncCounter("resolve_exhausted_total", map[string]string{"quantity": quantity})
	observ.Log("resolve_exhausted", map[string]any{
		"quantity": quantity,
		"attempts": len(rec.Attempts()),
	})
	return Result{Attempts: rec.Attempts()}
}
