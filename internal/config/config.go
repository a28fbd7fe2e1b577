package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// Config is one immutable configuration snapshot. Runtime updates never mutate
// a Config in place; they publish a new snapshot through Store.
type Config struct {
	// Server
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	PprofAddr   string `yaml:"pprof_addr"`
	CORSOrigin  string `yaml:"cors_origin"`

	// Video sources, one per lane
	CameraSources []string `yaml:"camera_sources"`
	FrameWidth    int      `yaml:"frame_width"`

	// Detector
	DetectorURL         string        `yaml:"detector_url"`
	DetectorTimeout     time.Duration `yaml:"detector_timeout"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	ProcessEveryNFrames int           `yaml:"process_every_n_frames"`

	// Signal timing
	YellowDuration        int     `yaml:"yellow_duration"`
	MinGreenTime          int     `yaml:"min_green_time"`
	MaxGreenTime          int     `yaml:"max_green_time"`
	BaseGreenTime         int     `yaml:"base_green_time"`
	VehicleTimeWeight     float64 `yaml:"vehicle_time_weight"`
	PersonTimeWeight      float64 `yaml:"person_time_weight"`
	EmergencyPriorityTime int     `yaml:"emergency_vehicle_priority_time"`

	// Tick loop
	TickInterval time.Duration `yaml:"tick_interval"`
	LaneDeadline time.Duration `yaml:"lane_deadline"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file overrides are given.
// Timing constants match the reference controller defaults.
func Default() Config {
	return Config{
		Addr:                  ":8000",
		MetricsAddr:           ":9090",
		PprofAddr:             ":6060",
		CORSOrigin:            "*",
		CameraSources:         []string{"data/lane1", "data/lane2", "data/lane3", "data/lane4"},
		FrameWidth:            640,
		DetectorURL:           "http://localhost:8500/detect",
		DetectorTimeout:       2 * time.Second,
		ConfidenceThreshold:   0.4,
		ProcessEveryNFrames:   1,
		YellowDuration:        2,
		MinGreenTime:          5,
		MaxGreenTime:          45,
		BaseGreenTime:         6,
		VehicleTimeWeight:     0.5,
		PersonTimeWeight:      1.0,
		EmergencyPriorityTime: 30,
		TickInterval:          100 * time.Millisecond,
		LaneDeadline:          80 * time.Millisecond,
		LogLevel:              "info",
	}
}

// rawConfig mirrors Config with durations as strings so YAML files can say
// "100ms" instead of nanosecond counts.
type rawConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	PprofAddr   string `yaml:"pprof_addr"`
	CORSOrigin  string `yaml:"cors_origin"`

	CameraSources []string `yaml:"camera_sources"`
	FrameWidth    int      `yaml:"frame_width"`

	DetectorURL         string  `yaml:"detector_url"`
	DetectorTimeout     string  `yaml:"detector_timeout"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	ProcessEveryNFrames int     `yaml:"process_every_n_frames"`

	YellowDuration        int     `yaml:"yellow_duration"`
	MinGreenTime          int     `yaml:"min_green_time"`
	MaxGreenTime          int     `yaml:"max_green_time"`
	BaseGreenTime         int     `yaml:"base_green_time"`
	VehicleTimeWeight     float64 `yaml:"vehicle_time_weight"`
	PersonTimeWeight      float64 `yaml:"person_time_weight"`
	EmergencyPriorityTime int     `yaml:"emergency_vehicle_priority_time"`

	TickInterval string `yaml:"tick_interval"`
	LaneDeadline string `yaml:"lane_deadline"`

	LogLevel string `yaml:"log_level"`
}

// UnmarshalYAML decodes over the receiver's current values, so fields absent
// from the file keep their defaults.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	raw := rawConfig{
		Addr:                  c.Addr,
		MetricsAddr:           c.MetricsAddr,
		PprofAddr:             c.PprofAddr,
		CORSOrigin:            c.CORSOrigin,
		CameraSources:         c.CameraSources,
		FrameWidth:            c.FrameWidth,
		DetectorURL:           c.DetectorURL,
		DetectorTimeout:       c.DetectorTimeout.String(),
		ConfidenceThreshold:   c.ConfidenceThreshold,
		ProcessEveryNFrames:   c.ProcessEveryNFrames,
		YellowDuration:        c.YellowDuration,
		MinGreenTime:          c.MinGreenTime,
		MaxGreenTime:          c.MaxGreenTime,
		BaseGreenTime:         c.BaseGreenTime,
		VehicleTimeWeight:     c.VehicleTimeWeight,
		PersonTimeWeight:      c.PersonTimeWeight,
		EmergencyPriorityTime: c.EmergencyPriorityTime,
		TickInterval:          c.TickInterval.String(),
		LaneDeadline:          c.LaneDeadline.String(),
		LogLevel:              c.LogLevel,
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	detectorTimeout, err := time.ParseDuration(raw.DetectorTimeout)
	if err != nil {
		return fmt.Errorf("config: detector_timeout: %w", err)
	}
	tickInterval, err := time.ParseDuration(raw.TickInterval)
	if err != nil {
		return fmt.Errorf("config: tick_interval: %w", err)
	}
	laneDeadline, err := time.ParseDuration(raw.LaneDeadline)
	if err != nil {
		return fmt.Errorf("config: lane_deadline: %w", err)
	}

	*c = Config{
		Addr:                  raw.Addr,
		MetricsAddr:           raw.MetricsAddr,
		PprofAddr:             raw.PprofAddr,
		CORSOrigin:            raw.CORSOrigin,
		CameraSources:         raw.CameraSources,
		FrameWidth:            raw.FrameWidth,
		DetectorURL:           raw.DetectorURL,
		DetectorTimeout:       detectorTimeout,
		ConfidenceThreshold:   raw.ConfidenceThreshold,
		ProcessEveryNFrames:   raw.ProcessEveryNFrames,
		YellowDuration:        raw.YellowDuration,
		MinGreenTime:          raw.MinGreenTime,
		MaxGreenTime:          raw.MaxGreenTime,
		BaseGreenTime:         raw.BaseGreenTime,
		VehicleTimeWeight:     raw.VehicleTimeWeight,
		PersonTimeWeight:      raw.PersonTimeWeight,
		EmergencyPriorityTime: raw.EmergencyPriorityTime,
		TickInterval:          tickInterval,
		LaneDeadline:          laneDeadline,
		LogLevel:              raw.LogLevel,
	}
	return nil
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if len(c.CameraSources) != types.NumLanes {
		return fmt.Errorf("config: need %d camera sources, got %d", types.NumLanes, len(c.CameraSources))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence threshold must be between 0 and 1, got %v", c.ConfidenceThreshold)
	}
	if c.MinGreenTime <= 0 || c.MaxGreenTime < c.MinGreenTime {
		return fmt.Errorf("config: invalid green time bounds [%d, %d]", c.MinGreenTime, c.MaxGreenTime)
	}
	if c.YellowDuration <= 0 {
		return fmt.Errorf("config: yellow duration must be positive, got %d", c.YellowDuration)
	}
	if c.EmergencyPriorityTime <= 0 {
		return fmt.Errorf("config: emergency priority time must be positive, got %d", c.EmergencyPriorityTime)
	}
	if c.ProcessEveryNFrames < 1 {
		return fmt.Errorf("config: process_every_n_frames must be >= 1, got %d", c.ProcessEveryNFrames)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %v", c.TickInterval)
	}
	if c.LaneDeadline <= 0 || c.LaneDeadline > c.TickInterval {
		return fmt.Errorf("config: lane deadline must be in (0, tick interval], got %v", c.LaneDeadline)
	}
	return nil
}
