package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type QuietHours struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

type HTTP struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type AlphaVantage struct {
	APIKeyEnv          string `yaml:"api_key_env"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type Brapi struct {
	TokenEnv string `yaml:"token_env"`
}

// TTL per quantity, seconds. Intraday prices move fast and get short TTLs;
// the policy rate changes a handful of times a year and gets hours.
type TTL struct {
	USDBRLSeconds int `yaml:"usdbrl_seconds"`
	IbovSeconds   int `yaml:"ibov_seconds"`
	BTCSeconds    int `yaml:"btc_seconds"`
	SelicSeconds  int `yaml:"selic_seconds"`
}

type Root struct {
	Timezone     string       `yaml:"timezone"`
	QuietHours   QuietHours   `yaml:"quiet_hours"`
	HTTP         HTTP         `yaml:"http"`
	AlphaVantage AlphaVantage `yaml:"alphavantage"`
	Brapi        Brapi        `yaml:"brapi"`
	TTL          TTL          `yaml:"ttl"`
}

// Default returns the configuration matching the original terminal's
// behavior: Sao Paulo wall clock, 19:00-07:00 quiet window, 12s timeout.
func Default() Root {
	return Root{
		Timezone:   "America/Sao_Paulo",
		QuietHours: QuietHours{StartHour: 19, EndHour: 7},
		HTTP:       HTTP{TimeoutSeconds: 12},
		AlphaVantage: AlphaVantage{
			APIKeyEnv:          "ALPHAVANTAGE_KEY",
			RateLimitPerMinute: 5,
		},
		Brapi: Brapi{TokenEnv: "BRAPI_TOKEN"},
		TTL: TTL{
			USDBRLSeconds: 900,
			IbovSeconds:   1500,
			BTCSeconds:    1500,
			SelicSeconds:  6 * 3600,
		},
	}
}

// Load reads a YAML config over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Root, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Root) applyDefaults() {
	d := Default()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = d.HTTP.TimeoutSeconds
	}
	if c.AlphaVantage.RateLimitPerMinute <= 0 {
		c.AlphaVantage.RateLimitPerMinute = d.AlphaVantage.RateLimitPerMinute
	}
	if c.TTL.USDBRLSeconds <= 0 {
		c.TTL.USDBRLSeconds = d.TTL.USDBRLSeconds
	}
	if c.TTL.IbovSeconds <= 0 {
		c.TTL.IbovSeconds = d.TTL.IbovSeconds
	}
	if c.TTL.BTCSeconds <= 0 {
		c.TTL.BTCSeconds = d.TTL.BTCSeconds
	}
	if c.TTL.SelicSeconds <= 0 {
		c.TTL.SelicSeconds = d.TTL.SelicSeconds
	}
}
