package adapters

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

// Stooq fetches daily closes as CSV from a stooq mirror (stooq.com or
// stooq.pl). Stooq answers HTTP 200 with an HTML error page when throttled,
// so the body is sniffed for the CSV header before parsing.
type Stooq struct {
	Client  *http.Client
	BaseURL string // e.g. "https://stooq.com"
	Symbol  string // e.g. "^bvsp"
	Host    string // label only, e.g. "stooq.com"
}

func (s *Stooq) Name() string {
	return fmt.Sprintf("Stooq (%s)", s.Host)
}

func (s *Stooq) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	params := url.Values{"s": {s.Symbol}, "i": {"d"}}
	resp, err := get(ctx, s.Client, s.BaseURL+"/q/d/l/", params)
	if err != nil {
		rec.Record(diag.Attempt{Provider: "stooq", Step: s.Host, URL: resp.URL, Note: err.Error()})
		return nil, "", errNetwork("stooq", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "stooq", Step: s.Host, HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errProvider("stooq", fmt.Sprintf("HTTP %d", resp.Status))
	}
	head := resp.Body
	if len(head) > 80 {
		head = head[:80]
	}
	if !bytes.Contains(head, []byte("Date,Open,High,Low,Close")) {
		attempt.Note = "not a CSV payload: " + excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errParse("stooq", "unexpected payload", nil)
	}

	points, err := parseStooqCSV(resp.Body)
	if err != nil {
		attempt.Note = err.Error()
		rec.Record(attempt)
		return nil, "", errParse("stooq", "csv parse failed", err)
	}
	out := series.New(points)
	attempt.Success = !out.Empty()
	attempt.Rows = len(out)
	rec.Record(attempt)
	if out.Empty() {
		return nil, "", errParse("stooq", "no usable rows", nil)
	}
	return out, s.Name(), nil
}

func parseStooqCSV(body []byte) ([]series.Point, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	dateIdx, closeIdx := -1, -1
	for i, col := range records[0] {
		switch strings.TrimSpace(col) {
		case "Date":
			dateIdx = i
		case "Close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("csv missing Date/Close columns")
	}

	points := make([]series.Point, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) <= dateIdx || len(row) <= closeIdx {
			continue
		}
		t, err := time.Parse("2006-01-02", row[dateIdx])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(row[closeIdx], 64)
		if err != nil {
			continue
		}
		points = append(points, series.Point{Time: t, Close: v})
	}
	return points, nil
}
