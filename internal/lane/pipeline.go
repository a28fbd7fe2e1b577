// Package lane runs one detection pipeline per monitored approach: capture,
// detect, filter, annotate, and emit a per-tick snapshot.
package lane

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/detector"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/overlay"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/video"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// Pipeline produces one Detection Snapshot per tick for a single lane. It is
// driven by exactly one goroutine; all fields are tick-local state.
type Pipeline struct {
	laneID   int
	source   video.Source
	det      detector.Detector
	registry *stats.Registry
	log      *logrus.Entry

	frameCount uint64
	last       types.Snapshot
	hasLast    bool

	// True while an emergency episode is ongoing, so the registry counts the
	// episode once rather than once per tick.
	emergencyActive bool

	degradedLogged bool
}

// New creates the pipeline for one lane.
func New(laneID int, source video.Source, det detector.Detector, registry *stats.Registry) *Pipeline {
	return &Pipeline{
		laneID:   laneID,
		source:   source,
		det:      det,
		registry: registry,
		log:      logrus.WithField("module", "lane").WithField("lane", laneID),
	}
}

// Tick produces this lane's snapshot for the current tick. It never returns
// an error: capture and detection failures degrade the snapshot instead.
func (p *Pipeline) Tick(ctx context.Context, cfg *config.Config) types.Snapshot {
	p.frameCount++

	frame, err := p.source.NextFrame(ctx)
	if err != nil {
		if !p.degradedLogged {
			p.log.Warnf("capture failed, lane degraded: %v", err)
			p.degradedLogged = true
		}
		p.emergencyActive = false
		snap := types.Snapshot{LaneID: p.laneID, Degraded: true, CapturedAt: time.Now()}
		p.last = snap
		p.hasLast = true
		return snap
	}
	if p.degradedLogged {
		p.log.Infof("capture recovered")
		p.degradedLogged = false
	}

	// Frame-skip stride: keep the previous counts, only refresh the image.
	if cfg.ProcessEveryNFrames > 1 && p.frameCount%uint64(cfg.ProcessEveryNFrames) != 0 && p.hasLast {
		snap := types.Snapshot{
			LaneID:              p.laneID,
			VehicleCount:        p.last.VehicleCount,
			PeopleCount:         p.last.PeopleCount,
			HasEmergencyVehicle: p.last.HasEmergencyVehicle,
			FrameJPEG:           frame.Data,
			CapturedAt:          frame.Timestamp,
		}
		p.last = snap
		return snap
	}

	start := time.Now()
	dets, err := p.det.Detect(ctx, frame)
	if err != nil {
		// Recoverable: the model could not process this frame, so the tick
		// carries no detections.
		p.log.Warnf("detection failed: %v", err)
		dets = nil
	}
	counts, kept := detector.Classify(dets, cfg.ConfidenceThreshold)
	p.registry.RecordLatency(time.Since(start))

	annotated, err := overlay.Annotate(frame, kept)
	if err != nil {
		p.log.Warnf("overlay failed: %v", err)
		annotated = frame.Data
	}

	p.registry.FramesProcessed.Add(1)
	p.registry.VehiclesDetected.Add(uint64(counts.Vehicles))
	p.registry.PeopleDetected.Add(uint64(counts.People))
	if counts.Emergency && !p.emergencyActive {
		p.registry.EmergencyVehicles.Add(1)
		p.log.Warnf("emergency vehicle detected")
	}
	p.emergencyActive = counts.Emergency

	snap := types.Snapshot{
		LaneID:              p.laneID,
		VehicleCount:        counts.Vehicles,
		PeopleCount:         counts.People,
		HasEmergencyVehicle: counts.Emergency,
		FrameJPEG:           annotated,
		CapturedAt:          frame.Timestamp,
	}
	p.last = snap
	p.hasLast = true
	return snap
}

// Close releases the lane's video source.
func (p *Pipeline) Close() error {
	return p.source.Close()
}
