package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

const brapiBaseURL = "https://brapi.dev"

// brapiRange is one range/interval combination to try.
type brapiRange struct {
	Range    string
	Interval string
}

// Brapi fetches historical daily candles for a B3 ticker. It widens the
// lookback window within a single Fetch (1mo then 3mo), one attempt record
// per call. The token is optional; when unset the parameter is omitted
// entirely and the free tier answers what it can.
type Brapi struct {
	Client  *http.Client
	BaseURL string
	Symbol  string // e.g. "^BVSP", "BOVA11"
	Token   string
	Ranges  []brapiRange
}

func (b *Brapi) Name() string {
	return fmt.Sprintf("brapi (%s)", b.Symbol)
}

func (b *Brapi) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	base := b.BaseURL
	if base == "" {
		base = brapiBaseURL
	}
	ranges := b.Ranges
	if len(ranges) == 0 {
		ranges = []brapiRange{{"1mo", "1d"}, {"3mo", "1d"}}
	}

	var lastErr error
	for _, rng := range ranges {
		step := rng.Range + "/" + rng.Interval
		params := url.Values{"range": {rng.Range}, "interval": {rng.Interval}}
		if b.Token != "" {
			params.Set("token", b.Token)
		}
		endpoint := fmt.Sprintf("%s/api/quote/%s", base, url.PathEscape(b.Symbol))
		resp, err := get(ctx, b.Client, endpoint, params)
		if err != nil {
			rec.Record(diag.Attempt{Provider: "brapi", Step: step, URL: resp.URL, Note: err.Error()})
			lastErr = errNetwork("brapi", "request failed", err)
			continue
		}
		attempt := diag.Attempt{Provider: "brapi", Step: step, HTTPStatus: resp.Status, URL: resp.URL}
		if resp.Status != http.StatusOK {
			attempt.Note = excerpt(resp.Body)
			rec.Record(attempt)
			lastErr = errProvider("brapi", fmt.Sprintf("HTTP %d", resp.Status))
			continue
		}

		var payload struct {
			Results []struct {
				HistoricalDataPrice []struct {
					Date  int64   `json:"date"`
					Close float64 `json:"close"`
				} `json:"historicalDataPrice"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			attempt.Note = excerpt(resp.Body)
			rec.Record(attempt)
			lastErr = errParse("brapi", "malformed response", err)
			continue
		}
		if len(payload.Results) == 0 {
			attempt.Note = "empty results"
			rec.Record(attempt)
			lastErr = errParse("brapi", "empty results", nil)
			continue
		}

		candles := payload.Results[0].HistoricalDataPrice
		points := make([]series.Point, 0, len(candles))
		for _, c := range candles {
			points = append(points, series.Point{Time: time.Unix(c.Date, 0).UTC(), Close: c.Close})
		}
		s := series.New(points)
		attempt.Success = !s.Empty()
		attempt.Rows = len(s)
		rec.Record(attempt)
		if !s.Empty() {
			return s, fmt.Sprintf("brapi %s", step), nil
		}
		lastErr = errParse("brapi", "no usable candles", nil)
	}
	if lastErr == nil {
		lastErr = errProvider("brapi", "no ranges configured")
	}
	return nil, "", lastErr
}
