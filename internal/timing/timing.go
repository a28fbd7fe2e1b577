// Package timing converts detection snapshots into bounded green-time plans.
package timing

import (
	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// Plan derives a lane's green time from its latest snapshot. It is a pure
// function: identical snapshot and configuration always produce the same plan.
//
// An emergency vehicle bypasses the clamp entirely and pins the lane to the
// configured priority time.
func Plan(snap types.Snapshot, cfg *config.Config) types.LanePlan {
	if snap.HasEmergencyVehicle {
		return types.LanePlan{
			LaneID:            snap.LaneID,
			GreenSeconds:      cfg.EmergencyPriorityTime,
			EmergencyOverride: true,
		}
	}

	t := float64(cfg.BaseGreenTime) +
		float64(snap.VehicleCount)*cfg.VehicleTimeWeight +
		float64(snap.PeopleCount)*cfg.PersonTimeWeight

	green := int(t)
	if green > cfg.MaxGreenTime {
		green = cfg.MaxGreenTime
	}
	if green < cfg.MinGreenTime {
		green = cfg.MinGreenTime
	}

	return types.LanePlan{LaneID: snap.LaneID, GreenSeconds: green}
}
