package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniterminal/internal/diag"
)

func TestBinance_ParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		// [openTime, open, high, low, close, volume, closeTime, ...]
		fmt.Fprint(w, `[
			[1709280000000,"61000","62100","60900","62000.5","12.3",1709280299999,"0",1,"0","0","0"],
			[1709280300000,"62000.5","62400","61800","62250","9.1",1709280599999,"0",1,"0","0","0"]
		]`)
	}))
	defer srv.Close()

	b := &Binance{Client: srv.Client(), BaseURL: srv.URL, Symbol: "BTCUSDT", Interval: "5m"}
	var rec diag.Recorder
	s, label, err := b.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "Binance (BTCUSDT, 5m)", label)
	require.Len(t, s, 2)
	last, _ := s.Last()
	assert.Equal(t, 62250.0, last.Close)
}

func TestBinance_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	b := &Binance{Client: srv.Client(), BaseURL: srv.URL, Symbol: "NOPE", Interval: "5m"}
	var rec diag.Recorder
	_, _, err := b.Fetch(context.Background(), &rec)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "provider", fe.Kind)
	require.Len(t, rec.Attempts(), 1)
	assert.Equal(t, http.StatusBadRequest, rec.Attempts()[0].HTTPStatus)
}

func TestCoinbase_ParsesCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/BTC-USD/candles", r.URL.Path)
		require.Equal(t, "300", r.URL.Query().Get("granularity"))
		// [time, low, high, open, close, volume], newest first
		fmt.Fprint(w, `[
			[1709280300,61800,62400,62000.5,62250,9.1],
			[1709280000,60900,62100,61000,62000.5,12.3]
		]`)
	}))
	defer srv.Close()

	c := &Coinbase{Client: srv.Client(), BaseURL: srv.URL, Product: "BTC-USD", Granularity: 300}
	var rec diag.Recorder
	s, label, err := c.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "Coinbase (BTC-USD)", label)
	require.Len(t, s, 2)
	// Rows arrive newest-first; the series must still be ascending.
	assert.True(t, s[0].Time.Before(s[1].Time))
	last, _ := s.Last()
	assert.Equal(t, 62250.0, last.Close)
}

func TestExchangerateHost_SynthesizesFlatSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/latest", r.URL.Path)
		fmt.Fprint(w, `{"base":"USD","rates":{"BRL":4.97}}`)
	}))
	defer srv.Close()

	e := &ExchangerateHost{Client: srv.Client(), BaseURL: srv.URL, Base: "USD", Quote: "BRL"}
	var rec diag.Recorder
	s, label, err := e.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "exchangerate.host", label)
	require.Len(t, s, 2)
	assert.Equal(t, 4.97, s[0].Close)
	assert.Equal(t, 4.97, s[1].Close)
	assert.True(t, s[0].Time.Before(s[1].Time))
}

func TestExchangerateHost_MissingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{}}`)
	}))
	defer srv.Close()

	e := &ExchangerateHost{Client: srv.Client(), BaseURL: srv.URL, Base: "USD", Quote: "BRL"}
	var rec diag.Recorder
	_, _, err := e.Fetch(context.Background(), &rec)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "parse", fe.Kind)
}

func TestBCBSGS_ParsesDayFirstDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dados/serie/bcdata.sgs.432/dados", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("formato"))
		fmt.Fprint(w, `[
			{"data":"28/02/2024","valor":"11.25"},
			{"data":"29/02/2024","valor":"11.25"},
			{"data":"bogus","valor":"11.25"},
			{"data":"01/03/2024","valor":"n/a"}
		]`)
	}))
	defer srv.Close()

	b := &BCBSGS{Client: srv.Client(), BaseURL: srv.URL, Code: 432}
	var rec diag.Recorder
	s, label, err := b.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "BCB/SGS 432", label)
	require.Len(t, s, 2)
	last, _ := s.Last()
	assert.Equal(t, 11.25, last.Close)
	// 29 Feb parsed day-first, not month-first.
	assert.Equal(t, "2024-02-29", last.Time.Format("2006-01-02"))
}

func TestNetworkFailureIsRecoverable(t *testing.T) {
	// Point at a closed port; the adapter must return a typed network error.
	b := &Binance{Client: NewHTTPClient(0), BaseURL: "http://127.0.0.1:1", Symbol: "BTCUSDT", Interval: "5m"}
	var rec diag.Recorder
	_, _, err := b.Fetch(context.Background(), &rec)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "network", fe.Kind)
	require.Len(t, rec.Attempts(), 1)
	assert.NotEmpty(t, rec.Attempts()[0].Note)
}
