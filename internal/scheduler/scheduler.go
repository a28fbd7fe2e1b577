// Package scheduler owns the lane-pair phase state machine. Exactly one pair
// is active at any instant; the machine alternates GREEN and YELLOW phases and
// handles emergency pre-emption with mandatory yellow clearance.
package scheduler

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// State is the externally visible phase state for one tick.
type State struct {
	ActivePair     Pair
	Phase          types.Phase
	PhaseRemaining int
	LaneRemaining  [types.NumLanes]int
	LightStatus    [types.NumLanes]types.LightState
}

// Scheduler advances the phase state machine once per tick. All mutation
// happens inside Advance; there is no external write path.
type Scheduler struct {
	log *logrus.Entry

	started        bool
	activePair     Pair
	phase          types.Phase
	phaseRemaining float64
	laneRemaining  [types.NumLanes]float64

	// Emergency pre-emption scheduled for the next YELLOW -> GREEN boundary.
	pendingEmergency bool
	pendingPair      Pair
}

// New creates a scheduler. The machine initializes to GREEN(A) on its first
// Advance, when the first set of lane plans is available.
func New() *Scheduler {
	return &Scheduler{
		log: logrus.WithField("module", "scheduler"),
	}
}

// Advance moves the machine forward by dt seconds using this tick's lane
// plans. allDegraded signals that every lane failed capture this tick, which
// switches green durations to the base-time fallback instead of stalling.
func (s *Scheduler) Advance(dt float64, plans [types.NumLanes]types.LanePlan, allDegraded bool, cfg *config.Config) {
	if !s.started {
		s.started = true
		s.activePair = PairA
		s.enterGreen(plans, allDegraded, cfg, false)
		return
	}

	s.checkPreemption(plans, cfg)
	s.extendActiveEmergency(plans, cfg)

	s.phaseRemaining -= dt
	for i := range s.laneRemaining {
		if !s.activePair.Contains(i) {
			s.laneRemaining[i] = 0
			continue
		}
		s.laneRemaining[i] -= dt
		if s.laneRemaining[i] < 0 {
			s.laneRemaining[i] = 0
		}
	}

	if s.phaseRemaining > 0 {
		return
	}

	switch s.phase {
	case types.PhaseGreen:
		s.enterYellow(cfg)
	case types.PhaseYellow:
		if s.pendingEmergency {
			s.activePair = s.pendingPair
			s.pendingEmergency = false
			s.enterGreen(plans, allDegraded, cfg, true)
		} else {
			s.activePair = s.activePair.Other()
			s.enterGreen(plans, allDegraded, cfg, false)
		}
	}
}

// checkPreemption schedules a switch to an emergency lane's pair. The active
// pair still gets its full yellow clearance: a green phase is truncated to
// yellow immediately, and the switch happens at the YELLOW -> GREEN boundary.
func (s *Scheduler) checkPreemption(plans [types.NumLanes]types.LanePlan, cfg *config.Config) {
	if s.pendingEmergency {
		return
	}
	for _, p := range plans {
		if !p.EmergencyOverride || s.activePair.Contains(p.LaneID) {
			continue
		}
		s.pendingEmergency = true
		s.pendingPair = PairOf(p.LaneID)
		s.log.Warnf("emergency vehicle in lane %d: pre-empting to pair %s after yellow clearance", p.LaneID, s.pendingPair)
		if s.phase == types.PhaseGreen {
			s.enterYellow(cfg)
		}
		return
	}
}

// extendActiveEmergency keeps the green phase at the priority duration while
// an emergency vehicle is still visible in the active pair, so the light does
// not cycle away from it.
func (s *Scheduler) extendActiveEmergency(plans [types.NumLanes]types.LanePlan, cfg *config.Config) {
	if s.phase != types.PhaseGreen {
		return
	}
	priority := float64(cfg.EmergencyPriorityTime)
	for _, p := range plans {
		if !p.EmergencyOverride || !s.activePair.Contains(p.LaneID) {
			continue
		}
		if s.phaseRemaining < priority {
			s.phaseRemaining = priority
		}
		if s.laneRemaining[p.LaneID] < priority {
			s.laneRemaining[p.LaneID] = priority
		}
	}
}

func (s *Scheduler) enterYellow(cfg *config.Config) {
	s.phase = types.PhaseYellow
	s.phaseRemaining = float64(cfg.YellowDuration)
	for _, lane := range s.activePair.Lanes() {
		s.laneRemaining[lane] = s.phaseRemaining
	}
	s.log.Infof("phase transition: GREEN -> YELLOW for pair %s", s.activePair)
}

func (s *Scheduler) enterGreen(plans [types.NumLanes]types.LanePlan, allDegraded bool, cfg *config.Config, emergency bool) {
	s.phase = types.PhaseGreen
	lanes := s.activePair.Lanes()

	switch {
	case emergency:
		g := float64(cfg.EmergencyPriorityTime)
		s.phaseRemaining = g
		s.laneRemaining[lanes[0]] = g
		s.laneRemaining[lanes[1]] = g
		s.log.Warnf("emergency green for pair %s, duration %ds", s.activePair, cfg.EmergencyPriorityTime)
	case allDegraded:
		g := float64(cfg.BaseGreenTime)
		s.phaseRemaining = g
		s.laneRemaining[lanes[0]] = g
		s.laneRemaining[lanes[1]] = g
		s.log.Warnf("all lanes degraded: pair %s falls back to base green time %ds", s.activePair, cfg.BaseGreenTime)
	default:
		// The pair's green runs for the heavier lane's demand; the other
		// lane's remaining time counts down independently.
		ga := plans[lanes[0]].GreenSeconds
		gb := plans[lanes[1]].GreenSeconds
		s.phaseRemaining = float64(max(ga, gb))
		s.laneRemaining[lanes[0]] = float64(ga)
		s.laneRemaining[lanes[1]] = float64(gb)
		s.log.Infof("phase transition: YELLOW -> GREEN for pair %s, duration %ds", s.activePair, max(ga, gb))
	}

	other := s.activePair.Other().Lanes()
	s.laneRemaining[other[0]] = 0
	s.laneRemaining[other[1]] = 0
}

// State returns the rounded, broadcast-ready view of the machine.
func (s *Scheduler) State() State {
	st := State{
		ActivePair:     s.activePair,
		Phase:          s.phase,
		PhaseRemaining: roundSeconds(s.phaseRemaining),
	}
	for i := 0; i < types.NumLanes; i++ {
		st.LightStatus[i] = types.LightRed
		if s.activePair.Contains(i) {
			st.LaneRemaining[i] = roundSeconds(s.laneRemaining[i])
			if s.phase == types.PhaseYellow {
				st.LightStatus[i] = types.LightYellow
			} else {
				st.LightStatus[i] = types.LightGreen
			}
		}
	}
	return st
}

func roundSeconds(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Round(v))
}
