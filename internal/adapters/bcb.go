package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

const bcbBaseURL = "https://api.bcb.gov.br"

// BCBSGS fetches a Banco Central do Brasil SGS time series (e.g. series 432,
// the Selic target rate). Dates arrive day-first, values as decimal strings.
type BCBSGS struct {
	Client  *http.Client
	BaseURL string
	Code    int
}

func (b *BCBSGS) Name() string {
	return fmt.Sprintf("BCB/SGS %d", b.Code)
}

func (b *BCBSGS) Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error) {
	base := b.BaseURL
	if base == "" {
		base = bcbBaseURL
	}
	endpoint := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados", base, b.Code)
	resp, err := get(ctx, b.Client, endpoint, url.Values{"formato": {"json"}})
	if err != nil {
		rec.Record(diag.Attempt{Provider: "bcb", Step: "sgs", URL: resp.URL, Note: err.Error()})
		return nil, "", errNetwork("bcb", "request failed", err)
	}
	attempt := diag.Attempt{Provider: "bcb", Step: "sgs", HTTPStatus: resp.Status, URL: resp.URL}
	if resp.Status != http.StatusOK {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errProvider("bcb", fmt.Sprintf("HTTP %d", resp.Status))
	}

	var rows []struct {
		Data  string `json:"data"`
		Valor string `json:"valor"`
	}
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		attempt.Note = excerpt(resp.Body)
		rec.Record(attempt)
		return nil, "", errParse("bcb", "malformed response", err)
	}

	points := make([]series.Point, 0, len(rows))
	for _, row := range rows {
		t, err := time.Parse("02/01/2006", row.Data)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(row.Valor, ",", "."), 64)
		if err != nil {
			continue
		}
		points = append(points, series.Point{Time: t, Close: v})
	}
	s := series.New(points)
	attempt.Success = !s.Empty()
	attempt.Rows = len(s)
	rec.Record(attempt)
	if s.Empty() {
		return nil, "", errParse("bcb", "no usable rows", nil)
	}
	return s, b.Name(), nil
}
