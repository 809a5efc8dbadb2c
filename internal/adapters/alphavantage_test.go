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

func TestAlphaVantageFX_Intraday(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "FX_INTRADAY", r.URL.Query().Get("function"))
		fmt.Fprint(w, `{
			"Time Series FX (5min)": {
				"2024-03-01 10:05:00": {"1. open": "4.95", "4. close": "4.96"},
				"2024-03-01 10:00:00": {"1. open": "4.94", "4. close": "4.95"}
			}
		}`)
	}))
	defer srv.Close()

	a := &AlphaVantageFX{
		Client:     srv.Client(),
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		FromSymbol: "USD",
		ToSymbol:   "BRL",
		Interval:   "5min",
	}
	var rec diag.Recorder
	s, label, err := a.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Vantage (intraday)", label)
	require.Len(t, s, 2)
	last, _ := s.Last()
	assert.Equal(t, 4.96, last.Close)

	attempts := rec.Attempts()
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, 2, attempts[0].Rows)
	assert.NotContains(t, attempts[0].URL, "test-key")
}

func TestAlphaVantageFX_FallsBackToDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("function") {
		case "FX_INTRADAY":
			fmt.Fprint(w, `{}`)
		case "FX_DAILY":
			fmt.Fprint(w, `{
				"Time Series FX (Daily)": {
					"2024-03-01": {"4. close": "4.97"}
				}
			}`)
		}
	}))
	defer srv.Close()

	a := &AlphaVantageFX{
		Client:     srv.Client(),
		BaseURL:    srv.URL,
		APIKey:     "k",
		FromSymbol: "USD",
		ToSymbol:   "BRL",
		Interval:   "5min",
	}
	var rec diag.Recorder
	s, label, err := a.Fetch(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Vantage (daily)", label)
	require.Len(t, s, 1)

	// One record per physical call: failed intraday, then daily.
	attempts := rec.Attempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, "fx_intraday", attempts[0].Step)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, "fx_daily", attempts[1].Step)
	assert.True(t, attempts[1].Success)
}

func TestAlphaVantageFX_MissingKeySkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	a := &AlphaVantageFX{Client: srv.Client(), BaseURL: srv.URL, FromSymbol: "USD", ToSymbol: "BRL", Interval: "5min"}
	var rec diag.Recorder
	_, _, err := a.Fetch(context.Background(), &rec)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "config", fe.Kind)
	assert.Zero(t, calls, "missing credential must not hit the network")

	attempts := rec.Attempts()
	require.Len(t, attempts, 1)
	assert.Zero(t, attempts[0].HTTPStatus)
	assert.Contains(t, attempts[0].Note, "not configured")
}

func TestAlphaVantageFX_RateLimitNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)
	}))
	defer srv.Close()

	a := &AlphaVantageFX{Client: srv.Client(), BaseURL: srv.URL, APIKey: "k", FromSymbol: "USD", ToSymbol: "BRL", Interval: "5min"}
	var rec diag.Recorder
	_, _, err := a.Fetch(context.Background(), &rec)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "provider", fe.Kind)
	// Intraday and daily both answered with the throttle note.
	assert.Len(t, rec.Attempts(), 2)
}

func TestAlphaVantageCrypto_CloseColumnVariants(t *testing.T) {
	for _, col := range []string{"4a. close (USD)", "4b. close (USD)"} {
		t.Run(col, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "DIGITAL_CURRENCY_DAILY", r.URL.Query().Get("function"))
				fmt.Fprintf(w, `{
					"Time Series (Digital Currency Daily)": {
						"2024-03-01": {%q: "62000.5"}
					}
				}`, col)
			}))
			defer srv.Close()

			a := &AlphaVantageCrypto{Client: srv.Client(), BaseURL: srv.URL, APIKey: "k", Symbol: "BTC", Market: "USD"}
			var rec diag.Recorder
			s, label, err := a.Fetch(context.Background(), &rec)
			require.NoError(t, err)
			assert.Equal(t, "Alpha Vantage (daily)", label)
			require.Len(t, s, 1)
			assert.Equal(t, 62000.5, s[0].Close)
		})
	}
}
