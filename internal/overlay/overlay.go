// Package overlay renders detection boxes and labels onto lane frames before
// they are encoded into the broadcast state.
package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	imgdraw "image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/detector"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

const boxThickness = 2

var (
	colorVehicle   = color.RGBA{R: 220, G: 53, B: 69, A: 255}  // red
	colorPerson    = color.RGBA{R: 40, G: 167, B: 69, A: 255}  // green
	colorEmergency = color.RGBA{R: 255, G: 0, B: 255, A: 255}  // magenta
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func classColor(label string) color.RGBA {
	switch detector.Kind(label) {
	case detector.ClassEmergency:
		return colorEmergency
	case detector.ClassPerson:
		return colorPerson
	default:
		return colorVehicle
	}
}

// Annotate decodes a frame, draws the kept detections onto it, and re-encodes
// it as JPEG. The input frame is not modified.
func Annotate(frame *types.Frame, dets []detector.Detection) ([]byte, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("overlay: empty frame")
	}
	if len(dets) == 0 {
		return frame.Data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("overlay: decode frame: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	imgdraw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, imgdraw.Src)

	for _, d := range dets {
		c := classColor(d.Label)
		drawBox(canvas, d.BBox, c)
		drawLabel(canvas, d, c)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("overlay: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 prepares JPEG bytes for the JSON wire state. Nil data encodes
// to the empty string, matching the degraded-lane contract.
func EncodeBase64(jpegData []byte) string {
	if len(jpegData) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(jpegData)
}

func drawBox(img *image.RGBA, b detector.BoundingBox, c color.RGBA) {
	bounds := img.Bounds()
	for t := 0; t < boxThickness; t++ {
		x0, y0 := b.X+t, b.Y+t
		x1, y1 := b.X+b.W-1-t, b.Y+b.H-1-t
		if x0 > x1 || y0 > y1 {
			break
		}
		for x := x0; x <= x1; x++ {
			setIn(img, bounds, x, y0, c)
			setIn(img, bounds, x, y1, c)
		}
		for y := y0; y <= y1; y++ {
			setIn(img, bounds, x0, y, c)
			setIn(img, bounds, x1, y, c)
		}
	}
}

func drawLabel(img *image.RGBA, d detector.Detection, c color.RGBA) {
	text := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	face := basicfont.Face7x13

	x := d.BBox.X
	y := d.BBox.Y - 4
	if y < face.Height {
		y = d.BBox.Y + d.BBox.H + face.Height
	}

	// Solid backing strip so the text stays readable on busy frames.
	w := font.MeasureString(face, text).Ceil()
	bg := image.Rect(x-1, y-face.Ascent-1, x+w+1, y+face.Descent+1).Intersect(img.Bounds())
	imgdraw.Draw(img, bg, image.NewUniform(c), image.Point{}, imgdraw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

func setIn(img *image.RGBA, bounds image.Rectangle, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(bounds) {
		img.SetRGBA(x, y, c)
	}
}
