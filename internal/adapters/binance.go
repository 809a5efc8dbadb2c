package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

const binanceBaseURL = "https://api.binance.com"

// Binance fetches klines for a symbol. Close time and close price are taken
// from each kline row; USDT quotes are treated as USD by callers.
type Binance struct {
	Client   *http.Client
	BaseURL  string
	Symbol   string // e.g. "BTCUSDT"
	Interval string // e.g. "5m"
	Limit    int
}

func (b *Binance) Name() string {
	return fmt.Sprintf("Binance (%s, %s)", b.Symbol, b.Interval)
}

func (b *Binance) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	base := b.BaseURL
	if base == "" {
		base = binanceBaseURL
	}
	limit := b.Limit
	if limit <= 0 {
		limit = 300
	}
	params := url.Values{
		"symbol":   {b.Symbol},
		"interval": {b.Interval},
		"limit":    {strconv.Itoa(limit)},
	}
	resp, err := get(ctx, b.Client, base+"/api/v3/klines", params)
	if err != nil {
		rec.Record(diag.Attempt{Provider: "binance", Step: "klines", URL: resp.URL, Note: err.Error()})
		return nil, "", errNetwork("binance", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "binance", Step: "klines", HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errProvider("binance", fmt.Sprintf("HTTP %d", resp.Status))
	}

	// Kline rows are heterogeneous arrays: numbers and price strings mixed.
	var rows [][]any
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errParse("binance", "malformed response", err)
	}

	points := make([]series.Point, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		closeMs, ok := row[6].(float64)
		if !ok {
			continue
		}
		closeStr, ok := row[4].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, series.Point{Time: time.UnixMilli(int64(closeMs)).UTC(), Close: v})
	}
	s := series.New(points)
	attempt.Success = !s.Empty()
	attempt.Rows = len(s)
	rec.Record(attempt)
	if s.Empty() {
		return nil, "", errParse("binance", "no usable klines", nil)
	}
	return s, b.Name(), nil
}
