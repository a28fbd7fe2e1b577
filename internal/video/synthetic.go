package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

var laneTints = [types.NumLanes]color.RGBA{
	{R: 52, G: 58, B: 64, A: 255},
	{R: 44, G: 62, B: 80, A: 255},
	{R: 60, G: 50, B: 46, A: 255},
	{R: 46, G: 64, B: 54, A: 255},
}

// SyntheticSource generates flat placeholder frames. It stands in for a lane
// whose real feed is not configured, keeping the controller loop alive.
type SyntheticSource struct {
	laneID int
	width  int
	height int
	seq    uint64
	cached []byte
}

// NewSyntheticSource creates a generator of width x (width*3/4) frames.
func NewSyntheticSource(laneID, width int) *SyntheticSource {
	if width <= 0 {
		width = 640
	}
	return &SyntheticSource{laneID: laneID, width: width, height: width * 3 / 4}
}

// NextFrame returns a placeholder frame tinted per lane.
func (s *SyntheticSource) NextFrame(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cached == nil {
		img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
		tint := laneTints[s.laneID%types.NumLanes]
		for y := 0; y < s.height; y++ {
			for x := 0; x < s.width; x++ {
				img.SetRGBA(x, y, tint)
			}
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
			return nil, err
		}
		s.cached = buf.Bytes()
	}
	s.seq++
	return &types.Frame{
		LaneID:    s.laneID,
		Data:      s.cached,
		Width:     s.width,
		Height:    s.height,
		Seq:       s.seq,
		Timestamp: time.Now(),
	}, nil
}

func (s *SyntheticSource) Close() error { return nil }

// Unavailable is a source whose feed could not be opened. Every NextFrame
// fails so the lane stays on the degraded path without halting the others.
type Unavailable struct {
	laneID int
	reason error
}

// NewUnavailable records why the lane's feed is missing.
func NewUnavailable(laneID int, reason error) *Unavailable {
	return &Unavailable{laneID: laneID, reason: reason}
}

func (u *Unavailable) NextFrame(ctx context.Context) (*types.Frame, error) {
	return nil, fmt.Errorf("video: lane %d source unavailable: %w", u.laneID, u.reason)
}

func (u *Unavailable) Close() error { return nil }
