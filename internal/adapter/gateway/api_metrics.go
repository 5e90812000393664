package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"vectorportal/internal/domain"
)

// Metrics counts gateway activity for /metrics and /api/status.
type Metrics struct {
	CredentialsCreated  atomic.Int64
	VectorStoresCreated atomic.Int64
	TestsTotal          atomic.Int64
	TestsFailed         atomic.Int64
	StreamClients       atomic.Int64
}

// subscribe keeps the counters current from bus events.
func (m *Metrics) subscribe(bus domain.EventBus) []func() {
	return []func(){
		bus.Subscribe(domain.EventCredentialCreated, func(context.Context, domain.Event) {
			m.CredentialsCreated.Add(1)
		}),
		bus.Subscribe(domain.EventVectorStoreCreated, func(context.Context, domain.Event) {
			m.VectorStoresCreated.Add(1)
		}),
		bus.Subscribe(domain.EventConnectionTested, func(_ context.Context, e domain.Event) {
			m.TestsTotal.Add(1)
			var res domain.TestResult
			if json.Unmarshal(e.Payload, &res) == nil && !res.Success {
				m.TestsFailed.Add(1)
			}
		}),
	}
}

// handleMetrics writes the counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	m := s.metrics

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", name, help, name, name, v)
	}

	counter("vectorportal_credentials_created_total", "Credentials created.", m.CredentialsCreated.Load())
	counter("vectorportal_vector_stores_created_total", "Vector stores created.", m.VectorStoresCreated.Load())
	counter("vectorportal_connection_tests_total", "Connection tests run.", m.TestsTotal.Load())
	counter("vectorportal_connection_tests_failed_total", "Connection tests that failed.", m.TestsFailed.Load())
	gauge("vectorportal_stream_clients", "Connected event stream clients.", float64(m.StreamClients.Load()))
	if d, ok := s.events.(interface{ Dropped() int64 }); ok {
		counter("vectorportal_events_dropped_total", "Events dropped for slow stream clients.", d.Dropped())
	}
	gauge("vectorportal_uptime_seconds", "Seconds since the gateway started.", time.Since(s.started).Round(time.Second).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	gauge("go_goroutines", "Number of goroutines.", float64(runtime.NumGoroutine()))
	gauge("go_memstats_alloc_bytes", "Bytes of allocated heap objects.", float64(mem.Alloc))
	gauge("go_memstats_sys_bytes", "Total bytes of memory obtained from the OS.", float64(mem.Sys))
}
