package services

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/igorsal/commit-bridge/internal/models"
)

// makeHeaders builds canonical headers from key/value pairs
func makeHeaders(kv ...string) models.Headers {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return models.HeadersFromHTTP(h)
}

type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]int
	gauges   map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counters: map[string]int{}, gauges: map[string]float64{}}
}

func metricKey(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|" + k + "=" + labels[k])
	}
	return b.String()
}

func (f *fakeMetrics) IncrementCounter(name string, labels map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[metricKey(name, labels)]++
}

func (f *fakeMetrics) RecordDuration(string, float64, map[string]string) {}

func (f *fakeMetrics) SetGauge(name string, value float64, labels map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gauges[metricKey(name, labels)] = value
}

func (f *fakeMetrics) counter(name string, labels map[string]string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[metricKey(name, labels)]
}

func (f *fakeMetrics) gauge(name string, labels map[string]string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gauges[metricKey(name, labels)]
}
