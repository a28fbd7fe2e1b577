// Package video provides per-lane frame sources. Sources yield JPEG frames
// resized to the configured processing width; a source that cannot deliver a
// frame marks the lane degraded for that tick.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/image/draw"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// ErrEndOfStream reports that a source has no more frames and cannot restart.
var ErrEndOfStream = errors.New("video: end of stream")

// Source is the per-lane frame acquisition abstraction.
type Source interface {
	NextFrame(ctx context.Context) (*types.Frame, error)
	Close() error
}

// DirSource replays a directory of JPEG frames in filename order, looping back
// to the first frame at the end, like a camera feed replayed from a clip.
type DirSource struct {
	laneID int
	width  int
	files  []string
	idx    int
	seq    uint64
}

// NewDirSource scans dir for JPEG files. Frames wider than width are scaled
// down before being handed to the detector.
func NewDirSource(laneID int, dir string, width int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("video: open source %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("video: no frames in %s: %w", dir, ErrEndOfStream)
	}
	sort.Strings(files)
	return &DirSource{laneID: laneID, width: width, files: files}, nil
}

// NextFrame returns the next frame in the loop.
func (s *DirSource) NextFrame(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.files[s.idx]
	s.idx = (s.idx + 1) % len(s.files)
	s.seq++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("video: read frame %s: %w", path, err)
	}
	data, w, h, err := fitWidth(data, s.width)
	if err != nil {
		return nil, fmt.Errorf("video: decode frame %s: %w", path, err)
	}
	return &types.Frame{
		LaneID:    s.laneID,
		Data:      data,
		Width:     w,
		Height:    h,
		Seq:       s.seq,
		Timestamp: time.Now(),
	}, nil
}

func (s *DirSource) Close() error { return nil }

// fitWidth scales a JPEG down to maxWidth if it is wider, preserving aspect
// ratio, and returns the (re-)encoded bytes with final dimensions.
func fitWidth(data []byte, maxWidth int) ([]byte, int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return data, cfg.Width, cfg.Height, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	h := cfg.Height * maxWidth / cfg.Width
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), maxWidth, h, nil
}
