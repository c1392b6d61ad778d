// Package testutil provides testing utilities for the Rick and Morty client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// CharacterPath is the path served by MockAPI.
const CharacterPath = "/api/character/"

// MockAPI is a configurable mock of the character list endpoint.
//
// Pages are numbered from 1. Character IDs are consecutive across pages,
// starting at 1, so item i of the full list has ID i+1.
type MockAPI struct {
	server *httptest.Server

	mu           sync.Mutex
	totalPages   int
	pageSize     int
	lastPageSize int
	failures     map[int]int
	malformed    map[int]bool
	etags        bool
	cacheControl string
	delay        time.Duration

	requests      []int
	conditional   int
	lastUserAgent string
}

// NewMockAPI creates a mock serving totalPages full pages of pageSize items.
func NewMockAPI(totalPages, pageSize int) *MockAPI {
	m := &MockAPI{
		totalPages:   totalPages,
		pageSize:     pageSize,
		lastPageSize: pageSize,
		failures:     make(map[int]int),
		malformed:    make(map[int]bool),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetLastPageSize sets the number of items on the last page.
func (m *MockAPI) SetLastPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPageSize = n
}

// FailPage makes every request for page answer with status until ClearFailure.
func (m *MockAPI) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = status
}

// ClearFailure removes a failure set with FailPage.
func (m *MockAPI) ClearFailure(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, page)
}

// SetMalformed makes page contain a record without a name.
func (m *MockAPI) SetMalformed(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed[page] = true
}

// EnableETags makes responses carry an ETag and answer matching
// If-None-Match requests with 304.
func (m *MockAPI) EnableETags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags = true
}

// SetCacheControl sets the Cache-Control header of successful responses.
func (m *MockAPI) SetCacheControl(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheControl = v
}

// SetDelay delays every response.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns the requested page numbers in arrival order.
func (m *MockAPI) Requests() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.requests...)
}

// RequestCount returns the number of requests served.
func (m *MockAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// ConditionalCount returns the number of conditional requests.
func (m *MockAPI) ConditionalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditional
}

// LastUserAgent returns the User-Agent of the latest request.
func (m *MockAPI) LastUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUserAgent
}

type mockInfo struct {
	Count int     `json:"count"`
	Pages int     `json:"pages"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

type mockResponse struct {
	Info    mockInfo         `json:"info"`
	Results []map[string]any `json:"results"`
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CharacterPath && r.URL.Path != "/api/character" {
		http.NotFound(w, r)
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		page = n
	}

	m.mu.Lock()
	m.requests = append(m.requests, page)
	m.lastUserAgent = r.UserAgent()
	ifNoneMatch := r.Header.Get("If-None-Match")
	if ifNoneMatch != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditional++
	}
	status, failing := m.failures[page]
	delay := m.delay
	etags := m.etags
	cacheControl := m.cacheControl
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if failing {
		writeError(w, status, http.StatusText(status))
		return
	}
	if page < 1 || page > m.totalPages {
		writeError(w, http.StatusNotFound, "There is nothing here")
		return
	}

	etag := fmt.Sprintf(`W/"page-%d"`, page)
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	if etags {
		w.Header().Set("ETag", etag)
		if ifNoneMatch == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(m.page(page))
}

func (m *MockAPI) page(page int) mockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.pageSize
	if page == m.totalPages {
		size = m.lastPageSize
	}

	resp := mockResponse{
		Info: mockInfo{
			Count: (m.totalPages-1)*m.pageSize + m.lastPageSize,
			Pages: m.totalPages,
		},
		Results: make([]map[string]any, 0, size),
	}
	if page < m.totalPages {
		next := fmt.Sprintf("%s%s?page=%d", m.server.URL, CharacterPath, page+1)
		resp.Info.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%s%s?page=%d", m.server.URL, CharacterPath, page-1)
		resp.Info.Prev = &prev
	}

	for i := 0; i < size; i++ {
		id := (page-1)*m.pageSize + i + 1
		record := map[string]any{
			"id":     id,
			"name":   fmt.Sprintf("Character %d", id),
			"status": "Alive",
			"image":  fmt.Sprintf("https://rickandmortyapi.com/api/character/avatar/%d.jpeg", id),
		}
		if m.malformed[page] && i == 0 {
			delete(record, "name")
		}
		resp.Results = append(resp.Results, record)
	}
	return resp
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// DNSFailureTransport fails every request as if the host could not be
// resolved.
type DNSFailureTransport struct{}

// RoundTrip implements http.RoundTripper.
func (DNSFailureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, &net.DNSError{
		Err:        "no such host",
		Name:       req.URL.Hostname(),
		IsNotFound: true,
	}
}
