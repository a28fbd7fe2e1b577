package types

import "time"

// NumLanes is the number of monitored approaches at the intersection.
const NumLanes = 4

// LightState is the signal shown to a single lane.
type LightState string

const (
	LightRed    LightState = "red"
	LightYellow LightState = "yellow"
	LightGreen  LightState = "green"
)

// Phase is the sub-state of whichever lane pair is currently active.
type Phase string

const (
	PhaseGreen  Phase = "green"
	PhaseYellow Phase = "yellow"
)

// Frame is one captured camera frame, JPEG-encoded.
type Frame struct {
	LaneID    int       // 0-based lane index
	Data      []byte    // JPEG data
	Width     int       // frame width in pixels
	Height    int       // frame height in pixels
	Seq       uint64    // sequential frame number for this lane
	Timestamp time.Time // capture timestamp
}

// Snapshot is one lane's per-tick detection result. It is immutable once
// produced; each tick supersedes it with a fresh value.
type Snapshot struct {
	LaneID              int
	VehicleCount        int
	PeopleCount         int
	HasEmergencyVehicle bool
	Degraded            bool   // capture or deadline failure this tick
	FrameJPEG           []byte // annotated frame, nil when degraded
	CapturedAt          time.Time
}

// LanePlan is the green-time decision derived from a Snapshot.
type LanePlan struct {
	LaneID            int
	GreenSeconds      int
	EmergencyOverride bool
}

// StateMessage is the composed per-tick system state pushed to observers.
// Field names mirror the monitor wire contract.
type StateMessage struct {
	Frames            []string     `json:"frames"`
	VehicleCounts     []int        `json:"vehicle_counts"`
	PeopleCounts      []int        `json:"people_counts"`
	EmergencyVehicles []bool       `json:"emergency_vehicles"`
	Timings           []int        `json:"timings"`
	LightStatus       []LightState `json:"light_status"`
	Phase             Phase        `json:"phase"`
	PhaseRemaining    int          `json:"phase_remaining"`
	LaneRemaining     []int        `json:"lane_remaining"`
	Timestamp         time.Time    `json:"timestamp"`
}

// StatsSnapshot is a consistent point-in-time copy of the running statistics.
type StatsSnapshot struct {
	TotalFramesProcessed      uint64  `json:"total_frames_processed"`
	TotalVehiclesDetected     uint64  `json:"total_vehicles_detected"`
	TotalPeopleDetected       uint64  `json:"total_people_detected"`
	EmergencyVehiclesDetected uint64  `json:"emergency_vehicles_detected"`
	AverageProcessingTime     float64 `json:"average_processing_time"`
	UptimeSeconds             float64 `json:"uptime_seconds"`
	ActiveConnections         int64   `json:"active_connections"`
}
