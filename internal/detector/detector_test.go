package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		label string
		want  Class
	}{
		{"car", ClassVehicle},
		{"truck", ClassVehicle},
		{"bus", ClassVehicle},
		{"motorbike", ClassVehicle},
		{"bicycle", ClassVehicle},
		{"person", ClassPerson},
		{"ambulance", ClassEmergency},
		{"police car", ClassEmergency},
		{"fire truck", ClassEmergency},
		{"dog", ClassIgnored},
		{"traffic light", ClassIgnored},
		{"", ClassIgnored},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.label), "label %q", tt.label)
	}
}

func TestClassifyCountsAndFilters(t *testing.T) {
	dets := []Detection{
		{Label: "car", Confidence: 0.9},
		{Label: "car", Confidence: 0.39}, // below threshold
		{Label: "bus", Confidence: 0.5},
		{Label: "person", Confidence: 0.8},
		{Label: "person", Confidence: 0.41},
		{Label: "dog", Confidence: 0.99}, // not traffic relevant
	}

	counts, kept := Classify(dets, 0.4)
	assert.Equal(t, 2, counts.Vehicles)
	assert.Equal(t, 2, counts.People)
	assert.False(t, counts.Emergency)
	assert.Len(t, kept, 4)
}

func TestClassifyEmergency(t *testing.T) {
	counts, kept := Classify([]Detection{
		{Label: "ambulance", Confidence: 0.7},
		{Label: "car", Confidence: 0.7},
	}, 0.4)
	assert.True(t, counts.Emergency)
	assert.Equal(t, 1, counts.Vehicles)
	assert.Len(t, kept, 2)

	// A low-confidence emergency label does not trigger the override.
	counts, _ = Classify([]Detection{{Label: "fire truck", Confidence: 0.2}}, 0.4)
	assert.False(t, counts.Emergency)
}

func TestClassifyEmpty(t *testing.T) {
	counts, kept := Classify(nil, 0.4)
	assert.Equal(t, Counts{}, counts)
	assert.Empty(t, kept)
}

func TestDetectionErrorUnwrap(t *testing.T) {
	cause := errors.New("daemon down")
	err := &DetectionError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "daemon down")
}
