package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/sat-catalog-client/internal/catalog"
	"github.com/Sternrassler/sat-catalog-client/internal/testutil"
	"github.com/Sternrassler/sat-catalog-client/internal/upstream"
	"github.com/Sternrassler/sat-catalog-client/pkg/client"
	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFeed serves fixed groups and counts calls.
type stubFeed struct {
	mu         sync.Mutex
	groups     map[string][]satellite.Record
	err        error
	delay      time.Duration
	groupCalls atomic.Int32
	idCalls    atomic.Int32
}

func newStubFeed() *stubFeed {
	return &stubFeed{groups: make(map[string][]satellite.Record)}
}

func (f *stubFeed) FetchGroup(ctx context.Context, group string) ([]satellite.Record, error) {
	f.groupCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return satellite.Clone(f.groups[group]), nil
}

func (f *stubFeed) FetchByID(ctx context.Context, id string) (satellite.Record, error) {
	f.idCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return satellite.Record{}, f.err
	}
	for _, records := range f.groups {
		for _, r := range records {
			if r.ID() == id {
				return r, nil
			}
		}
	}
	return satellite.Record{}, upstream.ErrNotFound
}

func newTestServer(feed Feed) (*Server, catalog.Store) {
	store := catalog.NewMemoryStore()
	return New(store, feed, DefaultConfig()), store
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) []satellite.Record {
	t.Helper()
	var page []satellite.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(newStubFeed())

	rec := do(t, s.Handler(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRoot(t *testing.T) {
	s, _ := newTestServer(newStubFeed())

	rec := do(t, s.Handler(), http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Satellite Tracking API")
}

func TestListSatellites_Paging(t *testing.T) {
	s, store := newTestServer(newStubFeed())
	require.NoError(t, store.Replace(context.Background(), "active", testutil.GenerateRecords(12, 1)))

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLen   int
		wantFirst int
	}{
		{name: "first page", query: "group=active&limit=5&offset=0", wantCode: 200, wantLen: 5, wantFirst: 1},
		{name: "short last page", query: "group=active&limit=5&offset=10", wantCode: 200, wantLen: 2, wantFirst: 11},
		{name: "past the end", query: "group=active&limit=5&offset=50", wantCode: 200, wantLen: 0},
		{name: "no limit returns all", query: "group=active", wantCode: 200, wantLen: 12, wantFirst: 1},
		{name: "zero limit", query: "group=active&limit=0", wantCode: 400},
		{name: "bad limit", query: "group=active&limit=ten", wantCode: 400},
		{name: "negative offset", query: "group=active&limit=5&offset=-1", wantCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, "/satellites?"+tt.query)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, rec.Body.String(), "error")
				return
			}
			page := decodePage(t, rec)
			require.Len(t, page, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, page[0].NoradCatID)
			}
		})
	}
}

func TestListSatellites_ColdGroupFilledOnce(t *testing.T) {
	feed := newStubFeed()
	feed.groups["visual"] = testutil.GenerateRecords(3, 1)
	feed.delay = 50 * time.Millisecond
	s, _ := newTestServer(feed)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, s.Handler(), http.MethodGet, "/satellites?limit=10&offset=0")
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), feed.groupCalls.Load(), "default group is filled by one feed call")

	rec := do(t, s.Handler(), http.MethodGet, "/satellites?group=visual&limit=10")
	assert.Len(t, decodePage(t, rec), 3)
	assert.Equal(t, int32(1), feed.groupCalls.Load())
}

func TestListSatellites_FeedUnavailable(t *testing.T) {
	feed := newStubFeed()
	feed.err = &upstream.FeedError{Class: upstream.ErrorClassServer, StatusCode: 503, Err: errors.New("busy")}
	s, _ := newTestServer(feed)

	rec := do(t, s.Handler(), http.MethodGet, "/satellites?group=active&limit=10")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CelesTrak API error")
}

func TestGetSatellite(t *testing.T) {
	feed := newStubFeed()
	feed.groups["stations"] = testutil.GenerateRecords(2, 25544)
	s, store := newTestServer(feed)
	require.NoError(t, store.Replace(context.Background(), "visual", testutil.GenerateRecords(1, 20580)))

	t.Run("from store", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/satellites/20580")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"NORAD_CAT_ID":20580`)
		assert.Equal(t, int32(0), feed.idCalls.Load())
	})

	t.Run("looked up upstream and kept", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/satellites/25545")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int32(1), feed.idCalls.Load())

		rec = do(t, s.Handler(), http.MethodGet, "/satellites/25545")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int32(1), feed.idCalls.Load())
	})

	t.Run("unknown", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/satellites/99999")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not a catalog number", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/satellites/iss")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRefreshCache(t *testing.T) {
	feed := newStubFeed()
	records := testutil.GenerateRecords(6, 1)
	records[2].ObjectName = "" // invalid, dropped
	feed.groups["active"] = records
	s, store := newTestServer(feed)

	rec := do(t, s.Handler(), http.MethodPost, "/satellites/cache?group=active&limit=4")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var status satellite.CacheStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "active", status.Group)
	assert.Equal(t, 4, status.Cached)
	assert.False(t, status.RefreshedAt.IsZero())

	page, err := store.Page(context.Background(), "active", 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, []int{1, 2, 4, 5}, []int{page[0].NoradCatID, page[1].NoradCatID, page[2].NoradCatID, page[3].NoradCatID})
}

func TestRefreshCache_DefaultGroup(t *testing.T) {
	feed := newStubFeed()
	feed.groups["visual"] = testutil.GenerateRecords(2, 1)
	s, _ := newTestServer(feed)

	rec := do(t, s.Handler(), http.MethodPost, "/satellites/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"group":"visual"`)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(newStubFeed())

	rec := do(t, s.Handler(), http.MethodOptions, "/satellites")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDEchoed(t *testing.T) {
	s, _ := newTestServer(newStubFeed())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestGzipResponses(t *testing.T) {
	s, store := newTestServer(newStubFeed())
	require.NoError(t, store.Replace(context.Background(), "active", testutil.GenerateRecords(200, 1)))

	req := httptest.NewRequest(http.MethodGet, "/satellites?group=active&limit=200", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(newStubFeed())
	do(t, s.Handler(), http.MethodGet, "/health")

	rec := do(t, s.Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "satcat_origin_http_requests_total"))
}

func TestClientAgainstOrigin(t *testing.T) {
	feed := newStubFeed()
	feed.groups["active"] = testutil.GenerateRecords(1234, 1)

	primary, _ := newTestServer(feed)
	primaryHTTP := httptest.NewServer(primary.Handler())
	defer primaryHTTP.Close()

	secondary, _ := newTestServer(feed)
	secondaryHTTP := httptest.NewServer(secondary.Handler())
	defer secondaryHTTP.Close()

	cfg := client.DefaultConfig(primaryHTTP.URL, secondaryHTTP.URL)
	cfg.PrimaryTimeout = 5 * time.Second
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	status, err := c.RefreshCache(ctx, "active", 0)
	require.NoError(t, err)
	assert.Equal(t, 1234, status.Cached)

	page, err := c.FetchPage(ctx, "active", 500, 1000, client.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, page, 234)

	record, err := c.FetchSatellite(ctx, "42", client.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "OBJECT 42", record.ObjectName)

	_, err = c.FetchSatellite(ctx, "999999", client.FetchOptions{})
	assert.ErrorIs(t, err, client.ErrNotFound)

	// Primary goes away; the client fails over and keeps serving.
	primaryHTTP.Close()
	page, err = c.FetchPage(ctx, "active", 500, 500, client.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, page, 500)
	assert.True(t, c.FailedOver())
}
