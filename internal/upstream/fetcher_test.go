package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issJSON = `{"OBJECT_NAME":"ISS (ZARYA)","OBJECT_ID":"1998-067A","EPOCH":"2024-05-01T12:00:00.000000","MEAN_MOTION":15.5,"ECCENTRICITY":0.0004,"INCLINATION":51.64,"RA_OF_ASC_NODE":200.1,"ARG_OF_PERICENTER":80.2,"MEAN_ANOMALY":30.3,"EPHEMERIS_TYPE":0,"CLASSIFICATION_TYPE":"U","NORAD_CAT_ID":25544,"ELEMENT_SET_NO":999,"REV_AT_EPOCH":45000,"BSTAR":0.0001,"MEAN_MOTION_DOT":0.00002,"MEAN_MOTION_DDOT":0}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/NORAD/elements/gp.php"
	cfg.Timeout = time.Second
	cfg.Retry = fastRetry("")

	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	return f
}

func TestNewFetcher_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.BaseURL = "" }, errorMsg: "base url is required"},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "gp.php" }, errorMsg: `invalid base url "gp.php"`},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, errorMsg: "timeout must be > 0 (got 0s)"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, errorMsg: "user-agent is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := NewFetcher(cfg)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errorMsg, err.Error())
		})
	}
}

func TestFetchGroup(t *testing.T) {
	var gotQuery, gotUA atomic.Value
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[" + issJSON + "]"))
	})

	records, err := f.FetchGroup(context.Background(), "visual")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 25544, records[0].NoradCatID)
	assert.Equal(t, "ISS (ZARYA)", records[0].ObjectName)
	assert.Equal(t, "FORMAT=JSON&GROUP=visual", gotQuery.Load())
	assert.Equal(t, "sat-catalog-client/0.1.0", gotUA.Load())
}

func TestFetchGroup_NoData(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("No GP data found"))
	})

	records, err := f.FetchGroup(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestFetchGroup_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("[" + issJSON + "]"))
	})

	records, err := f.FetchGroup(context.Background(), "visual")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGroup_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := f.FetchGroup(context.Background(), "visual")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, ErrorClassServer, ClassOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGroup_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := f.FetchGroup(context.Background(), "visual")
	require.Error(t, err)
	assert.Equal(t, ErrorClassClient, ClassOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchGroup_AttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte("[" + issJSON + "]"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 30 * time.Millisecond
	cfg.Retry = fastRetry("")
	f, err := NewFetcher(cfg)
	require.NoError(t, err)

	records, err := f.FetchGroup(context.Background(), "visual")
	require.NoError(t, err, "a timed out attempt is retried as a network error")
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchByID(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  error
		wantName string
	}{
		{name: "single object", body: issJSON, wantName: "ISS (ZARYA)"},
		{name: "list with one object", body: "[" + issJSON + "]", wantName: "ISS (ZARYA)"},
		{name: "empty list", body: "[]", wantErr: ErrNotFound},
		{name: "no data marker", body: "No GP data found", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery atomic.Value
			f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery.Store(r.URL.RawQuery)
				_, _ = w.Write([]byte(tt.body))
			})

			rec, err := f.FetchByID(context.Background(), "25544")
			assert.Equal(t, "CATNR=25544&FORMAT=JSON", gotQuery.Load())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rec.ObjectName)
		})
	}
}

func TestDecodeRecords_Malformed(t *testing.T) {
	_, err := decodeRecords([]byte("<html>maintenance</html>"))
	require.Error(t, err)
	assert.Equal(t, ErrorClassClient, ClassOf(err))

	_, err = decodeRecords([]byte(`[{"NORAD_CAT_ID":"not a number"}]`))
	require.Error(t, err)
	assert.Equal(t, ErrorClassClient, ClassOf(err))
}
