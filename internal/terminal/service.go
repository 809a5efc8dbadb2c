// Package terminal exposes the quantity-level API consumed by the
// presentation layer: one call per logical quantity returning the best
// available series, its source label, and the attempt trail.
package terminal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"miniterminal/internal/adapters"
	"miniterminal/internal/cache"
	"miniterminal/internal/config"
	"miniterminal/internal/observ"
	"miniterminal/internal/quiet"
	"miniterminal/internal/resolve"
)

// Quantity names exposed to callers.
const (
	QuantityUSDBRL = "usdbrl"
	QuantityIbov   = "ibov"
	QuantityBTC    = "btc"
	QuantitySelic  = "selic"
)

// chain binds a quantity to its adapter priority order, cache identity and
// TTL. Chains are fixed at startup and never mutated.
type chain struct {
	key       string
	ttl       time.Duration
	steps     []resolve.Step
	lastKnown resolve.LastKnownFunc
}

// Service is the resilient acquisition facade. The quiet-hours state is
// captured once at construction and held for the service's lifetime.
type Service struct {
	cache  *cache.Cache
	quiet  quiet.State
	chains map[string]chain
}

// New wires the full quantity registry from configuration. Credentials are
// resolved through the secrets provider once, here; a missing credential
// leaves its adapter configured to fail fast without network calls.
func New(cfg config.Root, secrets config.Secrets, state quiet.State) *Service {
	s := &Service{cache: cache.New(), quiet: state, chains: map[string]chain{}}

	client := adapters.NewHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)
	avKey, _ := secrets.Get(cfg.AlphaVantage.APIKeyEnv)
	brapiToken, _ := secrets.Get(cfg.Brapi.TokenEnv)
	avLimiter := rate.NewLimiter(rate.Limit(float64(cfg.AlphaVantage.RateLimitPerMinute))/60, 1)

	s.chains[QuantityUSDBRL] = chain{
		key: "usdbrl|USD/BRL|5min",
		ttl: time.Duration(cfg.TTL.USDBRLSeconds) * time.Second,
		steps: []resolve.Step{
			{Provider: &adapters.AlphaVantageFX{Client: client, Limiter: avLimiter, APIKey: avKey, FromSymbol: "USD", ToSymbol: "BRL", Interval: "5min"}},
			{Provider: &adapters.ExchangerateHost{Client: client, Base: "USD", Quote: "BRL"}},
		},
	}

	s.chains[QuantityBTC] = chain{
		key: "btc|BTC/USD",
		ttl: time.Duration(cfg.TTL.BTCSeconds) * time.Second,
		steps: []resolve.Step{
			{Provider: &adapters.AlphaVantageCrypto{Client: client, Limiter: avLimiter, APIKey: avKey, Symbol: "BTC", Market: "USD"}},
			{Provider: &adapters.Binance{Client: client, Symbol: "BTCUSDT", Interval: "5m", Limit: 300}},
			{Provider: &adapters.Coinbase{Client: client, Product: "BTC-USD", Granularity: 300}},
		},
	}

	ibovKey := "ibov|^bvsp|d"
	s.chains[QuantityIbov] = chain{
		key: ibovKey,
		ttl: time.Duration(cfg.TTL.IbovSeconds) * time.Second,
		steps: []resolve.Step{
			{Provider: &adapters.Stooq{Client: client, BaseURL: "https://stooq.com", Symbol: "^bvsp", Host: "stooq.com"}},
			{Provider: &adapters.Stooq{Client: client, BaseURL: "https://stooq.pl", Symbol: "^bvsp", Host: "stooq.pl"}},
			{Provider: &adapters.Brapi{Client: client, Symbol: "^BVSP", Token: brapiToken}},
			{Provider: &adapters.Brapi{Client: client, Symbol: "BOVA11", Token: brapiToken}, Proxy: true},
			{Provider: &adapters.Stooq{Client: client, BaseURL: "https://stooq.com", Symbol: "bova11", Host: "stooq.com"}, Proxy: true},
		},
		lastKnown: s.lastKnownFor(ibovKey),
	}

	s.chains[QuantitySelic] = chain{
		key: "selic|sgs.432",
		ttl: time.Duration(cfg.TTL.SelicSeconds) * time.Second,
		steps: []resolve.Step{
			{Provider: &adapters.BCBSGS{Client: client, Code: 432}},
		},
	}

	observ.Log("terminal_service_created", map[string]any{
		"quantities":   s.Quantities(),
		"quiet_active": state.Active,
	})
	return s
}

// lastKnownFor reads the previous cached level of a quantity so proxy
// series can be pinned to it. During a refetch the cache still holds the
// prior entry, which is exactly the continuity anchor wanted here.
func (s *Service) lastKnownFor(key string) resolve.LastKnownFunc {
	return func() (float64, bool) {
		res, ok := s.cache.Peek(key)
		if !ok {
			return 0, false
		}
		last, ok := res.Series.Last()
		if !ok {
			return 0, false
		}
		return last.Close, true
	}
}

// Quantities lists the configured quantity names, sorted.
func (s *Service) Quantities() []string {
	names := make([]string, 0, len(s.chains))
	for name := range s.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QuietState returns the state captured at construction.
func (s *Service) QuietState() quiet.State { return s.quiet }

// Get returns the best available result for a quantity. While quiet hours
// are active it serves whatever the cache holds, possibly nothing, and
// never touches the network.
func (s *Service) Get(ctx context.Context, quantity string) (resolve.Result, error) {
	ch, ok := s.chains[quantity]
	if !ok {
		return resolve.Result{}, fmt.Errorf("unknown quantity %q", quantity)
	}
	if s.quiet.Active {
		res, found := s.cache.Peek(ch.key)
		observ.IncCounter("quiet_cache_serve_total", map[string]string{"quantity": quantity})
		if !found {
			return resolve.Result{}, nil
		}
		return res, nil
	}
	return s.cache.GetOrFetch(ctx, ch.key, ch.ttl, func(ctx context.Context) resolve.Result {
		return resolve.Resolve(ctx, quantity, ch.steps, ch.lastKnown)
	}), nil
}

// ForceRefresh bypasses cache freshness for one quantity. It is allowed
// even during quiet hours: an explicit operator reload outweighs the quota
// protection the gate exists for.
func (s *Service) ForceRefresh(ctx context.Context, quantity string) (resolve.Result, error) {
	ch, ok := s.chains[quantity]
	if !ok {
		return resolve.Result{}, fmt.Errorf("unknown quantity %q", quantity)
	}
	observ.Log("force_refresh", map[string]any{"quantity": quantity, "quiet_active": s.quiet.Active})
	return s.cache.Refresh(ctx, ch.key, ch.ttl, func(ctx context.Context) resolve.Result {
		return resolve.Resolve(ctx, quantity, ch.steps, ch.lastKnown)
	}), nil
}

// Snapshot fetches every quantity for one rendering pass. Quantities share
// no mutable state except the cache, so they proceed in parallel; a
// quantity whose chain is exhausted contributes an empty result rather
// than failing the pass.
func (s *Service) Snapshot(ctx context.Context) map[string]resolve.Result {
	var mu sync.Mutex
	out := make(map[string]resolve.Result, len(s.chains))

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range s.Quantities() {
		name := name
		g.Go(func() error {
			res, err := s.Get(ctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
			return nil
		})
	}
	// The only possible error is an unknown quantity, which the registry
	// rules out.
	_ = g.Wait()
	return out
}
