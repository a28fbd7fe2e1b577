package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BaseGreenTime = 6
	cfg.VehicleTimeWeight = 0.5
	cfg.PersonTimeWeight = 1.0
	cfg.MinGreenTime = 5
	cfg.MaxGreenTime = 45
	cfg.EmergencyPriorityTime = 30
	return cfg
}

func TestPlanWeightedSum(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		vehicles int
		people   int
		want     int
	}{
		{"empty lane", 0, 0, 6},
		{"vehicles only", 10, 0, 11},
		{"people only", 0, 4, 10},
		{"mixed", 10, 2, 13},
		{"fraction truncated", 1, 0, 6}, // 6.5 truncates to 6
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(types.Snapshot{
				LaneID:       2,
				VehicleCount: tt.vehicles,
				PeopleCount:  tt.people,
			}, &cfg)
			assert.Equal(t, 2, plan.LaneID)
			assert.Equal(t, tt.want, plan.GreenSeconds)
			assert.False(t, plan.EmergencyOverride)
		})
	}
}

func TestPlanClampsToBounds(t *testing.T) {
	cfg := testConfig()

	heavy := Plan(types.Snapshot{VehicleCount: 200}, &cfg)
	assert.Equal(t, cfg.MaxGreenTime, heavy.GreenSeconds)

	cfg.BaseGreenTime = 1
	light := Plan(types.Snapshot{}, &cfg)
	assert.Equal(t, cfg.MinGreenTime, light.GreenSeconds)
}

func TestPlanEmergencyBypassesClamp(t *testing.T) {
	cfg := testConfig()
	cfg.EmergencyPriorityTime = 60 // above MaxGreenTime

	plan := Plan(types.Snapshot{LaneID: 1, HasEmergencyVehicle: true, VehicleCount: 3}, &cfg)
	assert.True(t, plan.EmergencyOverride)
	assert.Equal(t, 60, plan.GreenSeconds)
}

func TestPlanDeterministic(t *testing.T) {
	cfg := testConfig()
	snap := types.Snapshot{LaneID: 3, VehicleCount: 7, PeopleCount: 1}

	first := Plan(snap, &cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Plan(snap, &cfg))
	}
}
