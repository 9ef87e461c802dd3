package goldrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auragold-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	data map[string][]byte
	puts int
}

func (m *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) Put(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = raw
	m.puts++
	return nil
}

type memSettings struct {
	settings models.Settings
	saved    int
}

func (m *memSettings) LoadSettings(context.Context) (models.Settings, error) {
	return m.settings, nil
}

func (m *memSettings) SaveSettings(_ context.Context, s models.Settings) error {
	m.settings = s
	m.saved++
	return nil
}

type captured struct{ sources []string }

func (c *captured) Capture(source, _ string, _ models.ErrorSeverity) string {
	c.sources = append(c.sources, source)
	return "err-1"
}

func feed(t *testing.T, status int, body string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

var clock = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newService(url string, cache *memCache, settings *memSettings, rep *captured) *Service {
	s := New(url, cache, settings, rep)
	s.now = func() time.Time { return clock }
	return s
}

func TestFetchLiveRateParsesStringSell(t *testing.T) {
	srv, _ := feed(t, http.StatusOK, `{"data":[[{"gSell":"7350.5","gBuy":"7100"}]]}`)
	cache := &memCache{}
	s := newService(srv.URL, cache, &memSettings{}, &captured{})

	rate := s.FetchLiveRate(context.Background(), false)
	assert.True(t, rate.Success)
	assert.Equal(t, 7350.5, rate.Rate24K)
	assert.Equal(t, 6733.0, rate.Rate22K)
	assert.Equal(t, 1, cache.puts)
}

func TestFetchLiveRateFallsBackToBuy(t *testing.T) {
	srv, _ := feed(t, http.StatusOK, `{"data":[[{"gSell":"","gBuy":7000}]]}`)
	s := newService(srv.URL, &memCache{}, &memSettings{}, &captured{})

	rate := s.FetchLiveRate(context.Background(), true)
	assert.True(t, rate.Success)
	assert.Equal(t, 7000.0, rate.Rate24K)
	assert.Equal(t, 6412.0, rate.Rate22K)
}

func TestFreshCacheSkipsFeed(t *testing.T) {
	srv, hits := feed(t, http.StatusOK, `{"data":[[{"gSell":"7350"}]]}`)
	cache := &memCache{}
	require.NoError(t, cache.Put(context.Background(), CacheKey,
		cacheEntry{Rate24K: 7000, Rate22K: 6412, Timestamp: clock.Add(-time.Hour)}))
	s := newService(srv.URL, cache, &memSettings{}, &captured{})

	rate := s.FetchLiveRate(context.Background(), false)
	assert.Equal(t, 7000.0, rate.Rate24K)
	assert.Equal(t, "Cache", rate.Source)
	assert.Equal(t, 0, *hits)

	forced := s.FetchLiveRate(context.Background(), true)
	assert.Equal(t, 7350.0, forced.Rate24K)
	assert.Equal(t, 1, *hits)
}

func TestFeedFailureUsesStaleCache(t *testing.T) {
	srv, _ := feed(t, http.StatusBadGateway, `oops`)
	cache := &memCache{}
	require.NoError(t, cache.Put(context.Background(), CacheKey,
		cacheEntry{Rate24K: 7000, Rate22K: 6412, Timestamp: clock.Add(-48 * time.Hour)}))
	rep := &captured{}
	s := newService(srv.URL, cache, &memSettings{}, rep)

	rate := s.FetchLiveRate(context.Background(), false)
	assert.True(t, rate.Success)
	assert.Equal(t, "Offline Cache (Stale)", rate.Source)
	assert.Equal(t, 6412.0, rate.Rate22K)
	assert.Equal(t, []string{"Gold Rate Feed"}, rep.sources)
}

func TestFeedFailureWithoutCacheUsesDefaults(t *testing.T) {
	srv, _ := feed(t, http.StatusOK, `{"data":[]}`)
	s := newService(srv.URL, &memCache{}, &memSettings{}, &captured{})

	rate := s.FetchLiveRate(context.Background(), false)
	assert.False(t, rate.Success)
	assert.Equal(t, 7200.0, rate.Rate24K)
	assert.Equal(t, 6600.0, rate.Rate22K)
	assert.Equal(t, "Data format mismatch", rate.Error)
}

func TestRefreshPersistsSettings(t *testing.T) {
	srv, _ := feed(t, http.StatusOK, `{"data":[[{"gSell":"7500"}]]}`)
	settings := &memSettings{settings: models.DefaultSettings()}
	s := newService(srv.URL, &memCache{}, settings, &captured{})

	rate, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Success)
	assert.Equal(t, 1, settings.saved)
	assert.Equal(t, 7500.0, settings.settings.CurrentGoldRate24K)
	assert.Equal(t, 6870.0, settings.settings.CurrentGoldRate22K)
	assert.Equal(t, 3.0, settings.settings.DefaultTaxRate)

	market, err := s.MarketRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6870.0, market)
}

func TestRefreshKeepsSettingsOnDefaults(t *testing.T) {
	srv, _ := feed(t, http.StatusInternalServerError, ``)
	settings := &memSettings{settings: models.DefaultSettings()}
	s := newService(srv.URL, &memCache{}, settings, &captured{})

	rate, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, rate.Success)
	assert.Equal(t, 0, settings.saved)
}
