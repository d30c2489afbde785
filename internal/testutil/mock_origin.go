// Package testutil provides testing utilities for the satellite catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
)

// MockOrigin is a configurable catalog origin serving the /satellites API.
type MockOrigin struct {
	server *httptest.Server
	mu     sync.RWMutex
	groups map[string][]satellite.Record

	// Behavior overrides
	handlers map[string]http.HandlerFunc
	status   int
	delay    time.Duration
	hold     chan struct{}

	// Tracking
	RequestCount      int
	PageOffsets       []int
	RefreshCount      int
	LastRequestHeader http.Header
}

// NewMockOrigin creates a new mock origin server.
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		groups:   make(map[string][]satellite.Record),
		handlers: make(map[string]http.HandlerFunc),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /satellites", mock.handlePage)
	mux.HandleFunc("GET /satellites/{id}", mock.handleRecord)
	mux.HandleFunc("POST /satellites/cache", mock.handleRefresh)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		status, delay, hold := mock.status, mock.delay, mock.hold
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mux.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrigin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PageOffsets = nil
	m.RefreshCount = 0
	m.LastRequestHeader = nil
}

// SetGroup replaces the records served for group.
func (m *MockOrigin) SetGroup(group string, records []satellite.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group] = records
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetStatus makes every request fail with status; 0 restores normal service.
func (m *MockOrigin) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// SetDelay delays every response by d.
func (m *MockOrigin) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Hold parks every incoming request until the returned release func is called.
func (m *MockOrigin) Hold() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.hold = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.hold = nil
			m.mu.Unlock()
			close(ch)
		})
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOrigin) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockOrigin) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetPageOffsets returns the offsets of served page requests in arrival order.
func (m *MockOrigin) GetPageOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.PageOffsets...)
}

// GetRefreshCount returns the number of POST /satellites/cache calls.
func (m *MockOrigin) GetRefreshCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RefreshCount
}

func (m *MockOrigin) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.PageOffsets = append(m.PageOffsets, offset)
	records := m.groups[q.Get("group")]
	m.mu.Unlock()

	page := []satellite.Record{}
	if offset < len(records) {
		end := min(offset+limit, len(records))
		page = records[offset:end]
	}
	writeJSON(w, http.StatusOK, page)
}

func (m *MockOrigin) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, records := range m.groups {
		for _, rec := range records {
			if rec.ID() == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
	}
	http.Error(w, `{"error":"satellite not found"}`, http.StatusNotFound)
}

func (m *MockOrigin) handleRefresh(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")

	m.mu.Lock()
	m.RefreshCount++
	cached := len(m.groups[group])
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, satellite.CacheStatus{
		Status:      "ok",
		Group:       group,
		Cached:      cached,
		RefreshedAt: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GenerateRecords builds n valid records with consecutive NORAD ids from firstID.
func GenerateRecords(n, firstID int) []satellite.Record {
	records := make([]satellite.Record, n)
	for i := range records {
		id := firstID + i
		records[i] = satellite.Record{
			ObjectName:         fmt.Sprintf("OBJECT %d", id),
			ObjectID:           fmt.Sprintf("2024-%03dA", i%1000),
			Epoch:              "2024-05-01T12:00:00.000000",
			MeanMotion:         15.5,
			Eccentricity:       0.0001,
			Inclination:        51.6,
			ClassificationType: "U",
			NoradCatID:         id,
		}
	}
	return records
}
