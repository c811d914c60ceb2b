// Package render turns a raw NV12 frame plus a detection result into the
// JPEG published on the MJPEG stream: the full color frame with a state
// indicator disc and label in the top-left corner.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/acap-vision/tld/internal/detect"
)

const (
	jpegQuality     = 75
	indicatorX      = 30
	indicatorY      = 30
	indicatorRadius = 20
)

var stateColors = map[detect.State]color.NRGBA{
	detect.StateRed:    {R: 255, A: 255},
	detect.StateYellow: {R: 255, G: 255, A: 255},
	detect.StateGreen:  {G: 255, A: 255},
}

var neutralColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Encode converts the frame to color, draws the indicator for the detected
// state (gray when UNKNOWN or when no analysis ran) and returns the frame as
// a JPEG. The input frame is not modified.
func Encode(data []byte, width, height int, res detect.Result) ([]byte, error) {
	img := nv12ToNRGBA(data, width, height)

	c, ok := stateColors[res.State]
	if !ok {
		c = neutralColor
	}
	drawDisc(img, indicatorX, indicatorY, indicatorRadius, c)
	drawLabel(img, indicatorX+indicatorRadius+8, indicatorY+5, res.State.String(), c)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// nv12ToNRGBA deinterleaves the NV12 chroma plane into a YCbCr image and
// converts it to NRGBA for drawing.
func nv12ToNRGBA(data []byte, width, height int) *image.NRGBA {
	ycc := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(ycc.Y, data[:width*height])

	uv := data[width*height:]
	for i := 0; i+1 < len(uv); i += 2 {
		ycc.Cb[i/2] = uv[i]
		ycc.Cr[i/2] = uv[i+1]
	}

	return imaging.Clone(ycc)
}

func drawDisc(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	b := img.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
				continue
			}
			img.SetNRGBA(x, y, c)
		}
	}
}

func drawLabel(img *image.NRGBA, x, y int, label string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}
