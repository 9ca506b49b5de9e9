package observability

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics provides basic in-memory counters for requests, errors and the
// realtime hub.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64

	liveConnections int64
	eventsPublished int64
	eventsDropped   int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for completed requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// ConnOpened tracks a realtime connection joining the hub.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.liveConnections, 1)
}

// ConnClosed tracks a realtime connection leaving the hub.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.liveConnections, -1)
}

// LiveConnections returns the current realtime connection count.
func (m *Metrics) LiveConnections() int64 {
	if m == nil {
		return 0
	}
	return atomic.LoadInt64(&m.liveConnections)
}

// EventPublished tracks a fan-out publication.
func (m *Metrics) EventPublished() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.eventsPublished, 1)
}

// EventDropped tracks an event discarded due to a full connection buffer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.eventsDropped, 1)
}
