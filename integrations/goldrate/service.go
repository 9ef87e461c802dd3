package goldrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"auragold-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/romana/rlog"
)

const (
	CacheKey       = "gold_rate_cache"
	CacheValidity  = 4 * time.Hour
	DefaultRate24K = 7200
	DefaultRate22K = 6600
	Fineness22K    = 0.916
)

// Rate is the outcome of a live rate lookup. Success is false only when the
// hardcoded defaults had to be used.
type Rate struct {
	Rate24K float64 `json:"rate_24k"`
	Rate22K float64 `json:"rate_22k"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Source  string  `json:"source,omitempty"`
}

type cacheEntry struct {
	Rate24K   float64   `json:"rate_24k"`
	Rate22K   float64   `json:"rate_22k"`
	Timestamp time.Time `json:"timestamp"`
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any) error
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

type Reporter interface {
	Capture(source, message string, severity models.ErrorSeverity) string
}

// Service reads the live bullion rate with a cache in the kv table.
type Service struct {
	url      string
	cache    Cache
	settings SettingsStore
	reporter Reporter
	timeout  time.Duration
	now      func() time.Time
}

func New(url string, cache Cache, settings SettingsStore, reporter Reporter) *Service {
	return &Service{
		url:      url,
		cache:    cache,
		settings: settings,
		reporter: reporter,
		timeout:  10 * time.Second,
		now:      time.Now,
	}
}

// FetchLiveRate returns a fresh cached rate unless force is set, otherwise
// asks the feed. On failure it falls back to the cache however old, then to
// the defaults.
func (s *Service) FetchLiveRate(ctx context.Context, force bool) Rate {
	var cached cacheEntry
	hasCache, err := s.cache.Get(ctx, CacheKey, &cached)
	if err != nil {
		rlog.Warn("gold rate cache unreadable:", err.Error())
		hasCache = false
	}
	if !force && hasCache && s.now().Sub(cached.Timestamp) < CacheValidity {
		return Rate{Rate24K: cached.Rate24K, Rate22K: cached.Rate22K, Success: true, Source: "Cache"}
	}

	rate24K, err := s.fetch(ctx)
	if err == nil {
		rate22K := math.Round(rate24K * Fineness22K)
		entry := cacheEntry{Rate24K: rate24K, Rate22K: rate22K, Timestamp: s.now()}
		if err := s.cache.Put(ctx, CacheKey, entry); err != nil {
			rlog.Warn("gold rate cache write failed:", err.Error())
		}
		return Rate{Rate24K: rate24K, Rate22K: rate22K, Success: true, Source: "Augmont"}
	}

	rlog.Warnf("Gold Rate Sync Failed: %v", err)
	if s.reporter != nil {
		s.reporter.Capture("Gold Rate Feed", err.Error(), models.SeverityLow)
	}
	if hasCache {
		return Rate{Rate24K: cached.Rate24K, Rate22K: cached.Rate22K, Success: true, Source: "Offline Cache (Stale)"}
	}
	return Rate{Rate24K: DefaultRate24K, Rate22K: DefaultRate22K, Success: false, Error: err.Error()}
}

// Refresh forces a lookup and, when it succeeds, stores the rates in the
// settings the rest of the system prices with.
func (s *Service) Refresh(ctx context.Context) (Rate, error) {
	rate := s.FetchLiveRate(ctx, true)
	if !rate.Success {
		return rate, nil
	}
	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return rate, err
	}
	settings.CurrentGoldRate24K = rate.Rate24K
	settings.CurrentGoldRate22K = rate.Rate22K
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		return rate, err
	}
	rlog.Infof("Gold rate updated: 24K=%.0f 22K=%.0f (%s)", rate.Rate24K, rate.Rate22K, rate.Source)
	return rate, nil
}

// MarketRate is the 22K rate protection decisions are made against.
func (s *Service) MarketRate(ctx context.Context) (float64, error) {
	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.CurrentGoldRate22K, nil
}

type feedResponse struct {
	Data [][]map[string]any `json:"data"`
}

func (s *Service) fetch(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	agent := fiber.Get(s.url)
	agent.Timeout(s.timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, errs[0]
	}
	if code != fiber.StatusOK {
		return 0, fmt.Errorf("rate feed returned status %d", code)
	}

	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("rate feed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0]) == 0 {
		return 0, errors.New("Data format mismatch")
	}
	obj := resp.Data[0][0]
	raw, ok := obj["gSell"]
	if !ok || isEmpty(raw) {
		raw, ok = obj["gBuy"]
	}
	if !ok {
		return 0, errors.New("Data format mismatch")
	}
	rate, err := toFloat(raw)
	if err != nil || rate == 0 {
		return 0, errors.New("Invalid rate value")
	}
	return rate, nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return x == 0
	}
	return false
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("unexpected rate type %T", v)
}
