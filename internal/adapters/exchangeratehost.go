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

const exchangerateHostBaseURL = "https://api.exchangerate.host"

// ExchangerateHost fetches the latest spot rate for a currency pair. The
// endpoint returns a single value, so the result is synthesized as a flat
// two-point series one minute apart to still render as a line.
type ExchangerateHost struct {
	Client  *http.Client
	BaseURL string
	Base    string
	Quote   string

	now func() time.Time // test hook
}

func (e *ExchangerateHost) Name() string { return "exchangerate.host" }

func (e *ExchangerateHost) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	base := e.BaseURL
	if base == "" {
		base = exchangerateHostBaseURL
	}
	params := url.Values{"base": {e.Base}, "symbols": {e.Quote}}
	resp, err := get(ctx, e.Client, base+"/latest", params)
	if err != nil {
		rec.Record(diag.Attempt{Provider: "exchangerate.host", Step: "latest", URL: resp.URL, Note: err.Error()})
		return nil, "", errNetwork("exchangerate.host", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "exchangerate.host", Step: "latest", HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errProvider("exchangerate.host", fmt.Sprintf("HTTP %d", resp.Status))
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errParse("exchangerate.host", "malformed response", err)
	}
	rate, ok := payload.Rates[e.Quote]
	if !ok || rate <= 0 {
		attempt.Note = fmt.Sprintf("no rate for %s", e.Quote)
		rec.Record(attempt)
		return nil, "", errParse("exchangerate.host", attempt.Note, nil)
	}

	now := time.Now()
	if e.now != nil {
		now = e.now()
	}
	s := series.New([]series.Point{
		{Time: now.Add(-time.Minute), Close: rate},
		{Time: now, Close: rate},
	})
	attempt.Success = true
	attempt.Rows = len(s)
	rec.Record(attempt)
	return s, e.Name(), nil
}
