// Package stats is the shared statistics registry. Every lane pipeline and the
// broadcaster write to it concurrently; readers get consistent point-in-time
// snapshots and the same numbers are exported as Prometheus gauges.
package stats

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// Registry holds the running counters and timing aggregates. Counters are
// monotonically non-decreasing; only the active connection gauge moves both
// ways.
type Registry struct {
	FramesProcessed   atomic.Uint64
	VehiclesDetected  atomic.Uint64
	PeopleDetected    atomic.Uint64
	EmergencyVehicles atomic.Uint64

	active atomic.Int64

	// Running mean of per-tick processing latency, incremental so no sample
	// list is kept.
	latMu    sync.Mutex
	latCount uint64
	latMean  float64

	startTime time.Time
	registry  *prometheus.Registry
}

// New creates a registry with its Prometheus collectors registered.
func New() *Registry {
	r := &Registry{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
	}
	r.registerCollectors()
	return r
}

func (r *Registry) registerCollectors() {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"traffic_frames_processed_total", "Total frames processed across all lanes",
			func() float64 { return float64(r.FramesProcessed.Load()) }},
		{"traffic_vehicles_detected_total", "Total vehicles detected",
			func() float64 { return float64(r.VehiclesDetected.Load()) }},
		{"traffic_people_detected_total", "Total pedestrians detected",
			func() float64 { return float64(r.PeopleDetected.Load()) }},
		{"traffic_emergency_vehicles_total", "Total emergency vehicle episodes",
			func() float64 { return float64(r.EmergencyVehicles.Load()) }},
		{"traffic_active_connections", "Connected state observers",
			func() float64 { return float64(r.active.Load()) }},
		{"traffic_processing_seconds_avg", "Average per-tick processing latency",
			func() float64 { return r.averageLatency() }},
		{"traffic_uptime_seconds", "Seconds since controller start",
			func() float64 { return time.Since(r.startTime).Seconds() }},
	}
	for _, g := range gauges {
		r.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.fn,
		))
	}
}

// RecordLatency folds one processing duration into the running average.
func (r *Registry) RecordLatency(d time.Duration) {
	r.latMu.Lock()
	r.latCount++
	r.latMean += (d.Seconds() - r.latMean) / float64(r.latCount)
	r.latMu.Unlock()
}

func (r *Registry) averageLatency() float64 {
	r.latMu.Lock()
	defer r.latMu.Unlock()
	return r.latMean
}

// ObserverConnected records a new state observer.
func (r *Registry) ObserverConnected() {
	r.active.Add(1)
}

// ObserverDisconnected records an observer leaving, whether by request or
// delivery failure.
func (r *Registry) ObserverDisconnected() {
	r.active.Add(-1)
}

// ActiveConnections returns the current observer count.
func (r *Registry) ActiveConnections() int64 {
	return r.active.Load()
}

// Snapshot returns a point-in-time copy of all statistics. Individual fields
// are independently atomic; no cross-counter invariant is required by readers.
func (r *Registry) Snapshot() types.StatsSnapshot {
	return types.StatsSnapshot{
		TotalFramesProcessed:      r.FramesProcessed.Load(),
		TotalVehiclesDetected:     r.VehiclesDetected.Load(),
		TotalPeopleDetected:       r.PeopleDetected.Load(),
		EmergencyVehiclesDetected: r.EmergencyVehicles.Load(),
		AverageProcessingTime:     r.averageLatency(),
		UptimeSeconds:             time.Since(r.startTime).Seconds(),
		ActiveConnections:         r.active.Load(),
	}
}

// Handler returns the Prometheus scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
