package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageFX fetches a currency pair from Alpha Vantage. It tries
// intraday granularity first and falls back to the daily endpoint within a
// single Fetch, emitting one attempt record per call.
type AlphaVantageFX struct {
	Client     *http.Client
	Limiter    *rate.Limiter // shared across all Alpha Vantage adapters
	BaseURL    string
	APIKey     string
	FromSymbol string
	ToSymbol   string
	Interval   string // e.g. "5min"
}

func (a *AlphaVantageFX) Name() string {
	return fmt.Sprintf("Alpha Vantage (%s/%s)", a.FromSymbol, a.ToSymbol)
}

func (a *AlphaVantageFX) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	if a.APIKey == "" {
		rec.Record(diag.Attempt{Provider: "alphavantage", Step: "fx_intraday", Note: "api key not configured, skipped"})
		return nil, "", errConfig("alphavantage", "api key not configured")
	}
	if err := a.wait(ctx); err != nil {
		return nil, "", errNetwork("alphavantage", "rate limit wait cancelled", err)
	}

	intraday := url.Values{
		"function":    {"FX_INTRADAY"},
		"from_symbol": {a.FromSymbol},
		"to_symbol":   {a.ToSymbol},
		"interval":    {a.Interval},
		"apikey":      {a.APIKey},
		"outputsize":  {"compact"},
	}
	key := fmt.Sprintf("Time Series FX (%s)", a.Interval)
	s, err := a.query(ctx, rec, "fx_intraday", intraday, key)
	if err == nil && !s.Empty() {
		return s, "Alpha Vantage (intraday)", nil
	}

	daily := url.Values{
		"function":    {"FX_DAILY"},
		"from_symbol": {a.FromSymbol},
		"to_symbol":   {a.ToSymbol},
		"apikey":      {a.APIKey},
		"outputsize":  {"compact"},
	}
	s, err = a.query(ctx, rec, "fx_daily", daily, "Time Series FX (Daily)")
	if err != nil {
		return nil, "", err
	}
	return s, "Alpha Vantage (daily)", nil
}

func (a *AlphaVantageFX) wait(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}
	return a.Limiter.Wait(ctx)
}

func (a *AlphaVantageFX) query(ctx context.Context, rec *diag.Recorder, step string, params url.Values, seriesKey string) (series.Series, error) {
	base := a.BaseURL
	if base == "" {
		base = alphaVantageBaseURL
	}
	return alphaVantageQuery(ctx, a.Client, rec, base, step, params, seriesKey, []string{"4. close"})
}

// AlphaVantageCrypto fetches daily closes for a crypto asset.
type AlphaVantageCrypto struct {
	Client  *http.Client
	Limiter *rate.Limiter
	BaseURL string
	APIKey  string
	Symbol  string
	Market  string
}

func (a *AlphaVantageCrypto) Name() string {
	return fmt.Sprintf("Alpha Vantage (%s/%s)", a.Symbol, a.Market)
}

func (a *AlphaVantageCrypto) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	if a.APIKey == "" {
		rec.Record(diag.Attempt{Provider: "alphavantage", Step: "crypto_daily", Note: "api key not configured, skipped"})
		return nil, "", errConfig("alphavantage", "api key not configured")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, "", errNetwork("alphavantage", "rate limit wait cancelled", err)
		}
	}
	base := a.BaseURL
	if base == "" {
		base = alphaVantageBaseURL
	}
	params := url.Values{
		"function": {"DIGITAL_CURRENCY_DAILY"},
		"symbol":   {a.Symbol},
		"market":   {a.Market},
		"apikey":   {a.APIKey},
	}
	// The close column name drifted between "4a." and "4b." variants.
	closeFields := []string{
		fmt.Sprintf("4b. close (%s)", a.Market),
		fmt.Sprintf("4a. close (%s)", a.Market),
		"4. close",
	}
	s, err := alphaVantageQuery(ctx, a.Client, rec, base, "crypto_daily", params, "Time Series (Digital Currency Daily)", closeFields)
	if err != nil {
		return nil, "", err
	}
	return s, "Alpha Vantage (daily)", nil
}

// alphaVantageQuery performs one call and parses the keyed time-series map
// shared by all Alpha Vantage endpoints.
func alphaVantageQuery(ctx context.Context, client *http.Client, rec *diag.Recorder, base, step string, params url.Values, seriesKey string, closeFields []string) (series.Series, error) {
	resp, err := get(ctx, client, base, params)
	if err != nil {
		rec.Record(diag.Attempt{Provider: "alphavantage", Step: step, URL: resp.URL, Note: err.Error()})
		return nil, errNetwork("alphavantage", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "alphavantage", Step: step, HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, errProvider("alphavantage", fmt.Sprintf("HTTP %d", resp.Status))
	}

	var payload struct {
		ErrorMessage string `json:"Error Message"`
		Information  string `json:"Information"`
		Note         string `json:"Note"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, errParse("alphavantage", "malformed response", err)
	}
	if msg := firstNonEmpty(payload.ErrorMessage, payload.Information, payload.Note); msg != "" {
		attempt.Note = msg
		rec.Record(attempt)
		return nil, errProvider("alphavantage", msg)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, errParse("alphavantage", "malformed response", err)
	}
	rows, ok := raw[seriesKey]
	if !ok {
		attempt.Note = fmt.Sprintf("missing %q", seriesKey)
		rec.Record(attempt)
		return nil, errParse("alphavantage", attempt.Note, nil)
	}
	var byTime map[string]map[string]string
	if err := json.Unmarshal(rows, &byTime); err != nil {
		attempt.Note = excerpt(rows)
		rec.Record(attempt)
		return nil, errParse("alphavantage", "unexpected series shape", err)
	}

	points := make([]series.Point, 0, len(byTime))
	for ts, fields := range byTime {
		t, err := parseAlphaVantageTime(ts)
		if err != nil {
			continue
		}
		var closeStr string
		for _, f := range closeFields {
			if v, ok := fields[f]; ok {
				closeStr = v
				break
			}
		}
		v, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, series.Point{Time: t, Close: v})
	}
	s := series.New(points)
	attempt.Success = !s.Empty()
	attempt.Rows = len(s)
	rec.Record(attempt)
	return s, nil
}

func parseAlphaVantageTime(ts string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", ts)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
