package stats

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	r := New()

	r.FramesProcessed.Add(10)
	r.VehiclesDetected.Add(25)
	r.PeopleDetected.Add(7)
	r.EmergencyVehicles.Add(1)
	r.ObserverConnected()
	r.ObserverConnected()
	r.ObserverDisconnected()

	snap := r.Snapshot()
	assert.Equal(t, uint64(10), snap.TotalFramesProcessed)
	assert.Equal(t, uint64(25), snap.TotalVehiclesDetected)
	assert.Equal(t, uint64(7), snap.TotalPeopleDetected)
	assert.Equal(t, uint64(1), snap.EmergencyVehiclesDetected)
	assert.Equal(t, int64(1), snap.ActiveConnections)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestAverageLatency(t *testing.T) {
	r := New()
	assert.Equal(t, 0.0, r.Snapshot().AverageProcessingTime)

	r.RecordLatency(100 * time.Millisecond)
	r.RecordLatency(300 * time.Millisecond)

	assert.InDelta(t, 0.2, r.Snapshot().AverageProcessingTime, 1e-9)
}

func TestConcurrentWriters(t *testing.T) {
	r := New()

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.FramesProcessed.Add(1)
				r.VehiclesDetected.Add(2)
				r.RecordLatency(time.Millisecond)
				r.ObserverConnected()
				r.ObserverDisconnected()
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, uint64(workers*perWorker), snap.TotalFramesProcessed)
	assert.Equal(t, uint64(2*workers*perWorker), snap.TotalVehiclesDetected)
	assert.Equal(t, int64(0), snap.ActiveConnections)
	assert.InDelta(t, 0.001, snap.AverageProcessingTime, 1e-9)
}

func TestPrometheusHandler(t *testing.T) {
	r := New()
	r.FramesProcessed.Add(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "traffic_frames_processed_total 3"))
	assert.True(t, strings.Contains(text, "traffic_active_connections 0"))
	assert.True(t, strings.Contains(text, "traffic_uptime_seconds"))
}
