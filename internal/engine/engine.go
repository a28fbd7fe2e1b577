// Package engine drives the controller: a fixed-cadence tick fans out to the
// four lane pipelines, joins their snapshots under a deadline, advances the
// phase scheduler, and publishes the composed state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/broadcast"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/lane"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/overlay"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/scheduler"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/timing"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// Engine owns the tick loop and the scheduler state. Phase state is only ever
// mutated from the loop goroutine.
type Engine struct {
	cfg      *config.Store
	lanes    [types.NumLanes]*lane.Pipeline
	sched    *scheduler.Scheduler
	registry *stats.Registry
	bcast    *broadcast.Broadcaster
	log      *logrus.Entry

	// One persistent worker per lane. A worker that overruns the tick
	// deadline is not killed; its result lands in the buffered channel and
	// feeds a later tick.
	requests [types.NumLanes]chan *config.Config
	results  [types.NumLanes]chan types.Snapshot

	lastTick time.Time
	wg       sync.WaitGroup
}

// New wires an engine from its collaborators.
func New(cfg *config.Store, lanes [types.NumLanes]*lane.Pipeline, registry *stats.Registry, bcast *broadcast.Broadcaster) *Engine {
	e := &Engine{
		cfg:      cfg,
		lanes:    lanes,
		sched:    scheduler.New(),
		registry: registry,
		bcast:    bcast,
		log:      logrus.WithField("module", "engine"),
	}
	for i := range e.requests {
		e.requests[i] = make(chan *config.Config)
		e.results[i] = make(chan types.Snapshot, 1)
	}
	return e
}

// Run executes the tick loop until the context is canceled. Detection and
// delivery failures never stop the loop.
func (e *Engine) Run(ctx context.Context) {
	for i := range e.lanes {
		e.wg.Add(1)
		go e.laneWorker(ctx, i)
	}

	interval := e.cfg.Current().TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.log.Infof("engine started, tick interval %v", interval)

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			for _, p := range e.lanes {
				_ = p.Close()
			}
			e.log.Info("engine stopped")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) laneWorker(ctx context.Context, i int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-e.requests[i]:
			snap := e.lanes[i].Tick(ctx, cfg)
			select {
			case e.results[i] <- snap:
			case <-ctx.Done():
				return
			}
		}
	}
}

// tick runs one full cycle: collect four same-tick snapshots, derive plans,
// advance the phase machine, and publish.
func (e *Engine) tick(ctx context.Context) {
	cfg := e.cfg.Current()
	now := time.Now()
	var dt float64
	if !e.lastTick.IsZero() {
		dt = now.Sub(e.lastTick).Seconds()
	}
	e.lastTick = now

	snaps := e.collect(ctx, cfg, now)

	var plans [types.NumLanes]types.LanePlan
	allDegraded := true
	for i, snap := range snaps {
		plans[i] = timing.Plan(snap, cfg)
		allDegraded = allDegraded && snap.Degraded
	}

	e.sched.Advance(dt, plans, allDegraded, cfg)

	msg, err := compose(snaps, plans, e.sched.State(), now)
	if err != nil {
		// Internal invariant violation: skip this tick's broadcast, the loop
		// resumes on the next tick.
		e.log.Errorf("state composition failed: %v", err)
		return
	}
	e.bcast.Publish(msg)
}

// collect gathers one snapshot per lane for this tick. Preference order per
// lane: a fresh result within the deadline, then a late result from an
// earlier tick, then the degraded fallback.
func (e *Engine) collect(ctx context.Context, cfg *config.Config, now time.Time) [types.NumLanes]types.Snapshot {
	var snaps [types.NumLanes]types.Snapshot
	var stale [types.NumLanes]*types.Snapshot

	for i := range e.requests {
		// A result delivered after a previous tick's deadline.
		select {
		case s := <-e.results[i]:
			stale[i] = &s
		default:
		}
		// Dispatch this tick's work unless the worker is still busy.
		select {
		case e.requests[i] <- cfg:
		default:
		}
	}

	joinCtx, cancel := context.WithTimeout(ctx, cfg.LaneDeadline)
	defer cancel()

	for i := range e.results {
		select {
		case s := <-e.results[i]:
			snaps[i] = s
		case <-joinCtx.Done():
			if stale[i] != nil {
				snaps[i] = *stale[i]
			} else {
				snaps[i] = types.Snapshot{LaneID: i, Degraded: true, CapturedAt: now}
			}
		}
	}
	return snaps
}

func compose(snaps [types.NumLanes]types.Snapshot, plans [types.NumLanes]types.LanePlan, st scheduler.State, now time.Time) (*types.StateMessage, error) {
	if st.Phase != types.PhaseGreen && st.Phase != types.PhaseYellow {
		return nil, fmt.Errorf("invalid phase %q", st.Phase)
	}
	if st.PhaseRemaining < 0 {
		return nil, fmt.Errorf("negative phase remaining %d", st.PhaseRemaining)
	}

	msg := &types.StateMessage{
		Frames: lo.Map(snaps[:], func(s types.Snapshot, _ int) string {
			return overlay.EncodeBase64(s.FrameJPEG)
		}),
		VehicleCounts: lo.Map(snaps[:], func(s types.Snapshot, _ int) int {
			return s.VehicleCount
		}),
		PeopleCounts: lo.Map(snaps[:], func(s types.Snapshot, _ int) int {
			return s.PeopleCount
		}),
		EmergencyVehicles: lo.Map(snaps[:], func(s types.Snapshot, _ int) bool {
			return s.HasEmergencyVehicle
		}),
		Timings: lo.Map(plans[:], func(p types.LanePlan, _ int) int {
			return p.GreenSeconds
		}),
		LightStatus:    st.LightStatus[:],
		Phase:          st.Phase,
		PhaseRemaining: st.PhaseRemaining,
		LaneRemaining:  st.LaneRemaining[:],
		Timestamp:      now,
	}
	return msg, nil
}
