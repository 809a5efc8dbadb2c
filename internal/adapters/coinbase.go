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

const coinbaseBaseURL = "https://api.exchange.coinbase.com"

// Coinbase fetches exchange candles for a product. Candle rows arrive as
// [time, low, high, open, close, volume] numeric arrays, newest first.
type Coinbase struct {
	Client      *http.Client
	BaseURL     string
	Product     string // e.g. "BTC-USD"
	Granularity int    // seconds, e.g. 300
}

func (c *Coinbase) Name() string {
	return fmt.Sprintf("Coinbase (%s)", c.Product)
}

func (c *Coinbase) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	base := c.BaseURL
	if base == "" {
		base = coinbaseBaseURL
	}
	params := url.Values{"granularity": {strconv.Itoa(c.Granularity)}}
	endpoint := fmt.Sprintf("%s/products/%s/candles", base, url.PathEscape(c.Product))
	resp, err := get(ctx, c.Client, endpoint, params)
	if err != nil {
		rec.Record(diag.Attempt{Provider: "coinbase", Step: "candles", URL: resp.URL, Note: err.Error()})
		return nil, "", errNetwork("coinbase", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "coinbase", Step: "candles", HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errProvider("coinbase", fmt.Sprintf("HTTP %d", resp.Status))
	}

	var rows [][]float64
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errParse("coinbase", "malformed response", err)
	}

	points := make([]series.Point, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		points = append(points, series.Point{
			Time:  time.Unix(int64(row[0]), 0).UTC(),
			Close: row[4],
		})
	}
	s := series.New(points)
	attempt.Success = !s.Empty()
	attempt.Rows = len(s)
	rec.Record(attempt)
	if s.Empty() {
		return nil, "", errParse("coinbase", "no usable candles", nil)
	}
	return s, c.Name(), nil
}
