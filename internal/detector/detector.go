// Package detector wraps the external object-classification model behind a
// small adapter interface and turns raw labeled detections into per-lane
// traffic counts.
package detector

import (
	"context"
	"fmt"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// BoundingBox is the pixel-space location of one detection.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is one labeled object returned by the model.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// Detector is the opaque classification model. Detect returns labeled object
// detections for one frame; the caller applies confidence filtering.
type Detector interface {
	Detect(ctx context.Context, frame *types.Frame) ([]Detection, error)
}

// DetectionError reports that the model could not process a frame. Callers
// treat it as "no detections this tick", never as fatal.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string { return fmt.Sprintf("detection failed: %v", e.Err) }

func (e *DetectionError) Unwrap() error { return e.Err }

// Class is the traffic-relevant category of a detection label.
type Class int

const (
	ClassIgnored Class = iota
	ClassVehicle
	ClassPerson
	ClassEmergency
)

var vehicleLabels = map[string]bool{
	"car":       true,
	"truck":     true,
	"bus":       true,
	"motorbike": true,
	"bicycle":   true,
}

var emergencyLabels = map[string]bool{
	"ambulance":  true,
	"police car": true,
	"fire truck": true,
}

// Kind maps a model label to its traffic class. Labels outside the known sets
// are ignored.
func Kind(label string) Class {
	switch {
	case emergencyLabels[label]:
		return ClassEmergency
	case vehicleLabels[label]:
		return ClassVehicle
	case label == "person":
		return ClassPerson
	default:
		return ClassIgnored
	}
}

// Counts is the per-frame tally after confidence filtering.
type Counts struct {
	Vehicles  int
	People    int
	Emergency bool
}

// Classify filters detections below minConfidence and tallies the survivors.
// It returns the counts together with the kept detections so callers can
// render them.
func Classify(dets []Detection, minConfidence float64) (Counts, []Detection) {
	var counts Counts
	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		switch Kind(d.Label) {
		case ClassEmergency:
			counts.Emergency = true
		case ClassVehicle:
			counts.Vehicles++
		case ClassPerson:
			counts.People++
		default:
			continue
		}
		kept = append(kept, d)
	}
	return counts, kept
}
