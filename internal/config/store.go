package config

import (
	"fmt"
	"sync/atomic"
)

// Update is a partial configuration change. Nil fields keep their current
// value. Mirrors the POST /config request body.
type Update struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	YellowDuration      *int     `json:"yellow_duration,omitempty"`
	MinGreenTime        *int     `json:"min_green_time,omitempty"`
	MaxGreenTime        *int     `json:"max_green_time,omitempty"`
}

// Store publishes immutable Config snapshots. A tick in progress keeps the
// snapshot it started with; updates swap the pointer atomically.
type Store struct {
	v atomic.Pointer[Config]
}

// NewStore creates a store holding the given snapshot.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.v.Store(&cfg)
	return s, nil
}

// Current returns the active snapshot. The returned value must be treated as
// read-only.
func (s *Store) Current() *Config {
	return s.v.Load()
}

// Apply validates a partial update against the current snapshot and, on
// success, publishes the result. A rejected update leaves the previous
// snapshot active.
func (s *Store) Apply(u Update) (*Config, error) {
	cur := s.v.Load()
	next := *cur
	next.CameraSources = append([]string(nil), cur.CameraSources...)

	if u.ConfidenceThreshold != nil {
		if *u.ConfidenceThreshold < 0 || *u.ConfidenceThreshold > 1 {
			return nil, fmt.Errorf("config: confidence threshold must be between 0 and 1, got %v", *u.ConfidenceThreshold)
		}
		next.ConfidenceThreshold = *u.ConfidenceThreshold
	}
	if u.YellowDuration != nil {
		next.YellowDuration = *u.YellowDuration
	}
	if u.MinGreenTime != nil {
		next.MinGreenTime = *u.MinGreenTime
	}
	if u.MaxGreenTime != nil {
		next.MaxGreenTime = *u.MaxGreenTime
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	s.v.Store(&next)
	return &next, nil
}
