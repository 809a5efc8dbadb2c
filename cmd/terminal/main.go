package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"miniterminal/internal/adapters"
	"miniterminal/internal/config"
	"miniterminal/internal/observ"
	"miniterminal/internal/quiet"
	"miniterminal/internal/resolve"
	"miniterminal/internal/terminal"
)

const preflightURL = "https://www.google.com/generate_204"

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults apply when empty)")
		refresh    = flag.String("refresh", "", "comma-separated quantities to force-refresh, or 'all'")
		asJSON     = flag.Bool("json", false, "emit the snapshot as JSON instead of text")
		verbose    = flag.Bool("v", false, "print the per-provider attempt trail")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}
	state := quiet.Evaluate(time.Now().In(loc), cfg.QuietHours.StartHour, cfg.QuietHours.EndHour)
	observ.Log("session_start", map[string]any{
		"timezone":     cfg.Timezone,
		"quiet_active": state.Active,
	})

	ctx := context.Background()
	client := adapters.NewHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)
	if !state.Active {
		checkConnectivity(ctx, client)
	}

	svc := terminal.New(cfg, config.EnvSecrets{}, state)

	for _, q := range refreshTargets(*refresh, svc.Quantities()) {
		if _, err := svc.ForceRefresh(ctx, q); err != nil {
			log.Fatalf("refresh: %v", err)
		}
	}

	snap := svc.Snapshot(ctx)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			log.Fatalf("encode snapshot: %v", err)
		}
		return
	}
	render(os.Stdout, snap, state, *verbose)
}

// checkConnectivity is a presentation-level hint only: a failed probe is
// reported and the snapshot proceeds anyway, since individual providers may
// still be reachable.
func checkConnectivity(ctx context.Context, client *http.Client) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, preflightURL, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: connectivity probe failed: %v\n", err)
		observ.Log("preflight_failed", map[string]any{"error": err.Error()})
		return
	}
	resp.Body.Close()
}

func refreshTargets(arg string, known []string) []string {
	if arg == "" {
		return nil
	}
	if arg == "all" {
		return known
	}
	var out []string
	for _, q := range strings.Split(arg, ",") {
		out = append(out, strings.TrimSpace(q))
	}
	return out
}

func render(w *os.File, snap map[string]resolve.Result, state quiet.State, verbose bool) {
	if state.Active {
		fmt.Fprintf(w, "quiet hours active (%02d:00-%02d:00): serving cached data only\n\n",
			state.StartHour, state.EndHour)
	}

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := snap[name]
		last, ok := res.Series.Last()
		switch {
		case !ok && res.Source == "":
			fmt.Fprintf(w, "%-8s unavailable (%d attempts)\n", name, len(res.Attempts))
		case !ok:
			fmt.Fprintf(w, "%-8s unavailable  source=%s\n", name, res.Source)
		default:
			fmt.Fprintf(w, "%-8s %12.4f  at %s  source=%s\n",
				name, last.Close, last.Time.Format("2006-01-02 15:04"), res.Source)
		}
		if verbose {
			for _, a := range res.Attempts {
				status := "-"
				if a.HTTPStatus != 0 {
					status = fmt.Sprintf("%d", a.HTTPStatus)
				}
				fmt.Fprintf(w, "         %s/%s http=%s rows=%d ok=%v %s\n",
					a.Provider, a.Step, status, a.Rows, a.Success, a.Note)
			}
		}
	}
}
