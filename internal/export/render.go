// Package export turns fusion results into artifacts: CSV and GeoJSON
// region tables, JSON metadata, and PNG heatmaps of the derived surfaces.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// rampStop anchors one color on the heatmap gradient.
type rampStop struct {
	pos   float64
	color colorful.Color
}

// heatRamp runs deep blue through teal and amber to red. Blending happens
// in HCL space, which keeps perceived brightness monotonic with score.
var heatRamp = []rampStop{
	{0.00, mustHex("#101c3c")},
	{0.35, mustHex("#1b7f8e")},
	{0.65, mustHex("#e3c54d")},
	{1.00, mustHex("#c0392b")},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("bad ramp stop %q: %v", s, err))
	}
	return c
}

// valueColor maps a unit-interval score onto the ramp.
func valueColor(v float64) colorful.Color {
	v = raster.Clamp01(v)
	for i := 0; i < len(heatRamp)-1; i++ {
		lo, hi := heatRamp[i], heatRamp[i+1]
		if v > hi.pos {
			continue
		}
		t := (v - lo.pos) / (hi.pos - lo.pos)
		return lo.color.BlendHcl(hi.color, t).Clamped()
	}
	return heatRamp[len(heatRamp)-1].color
}

// Heatmap renders a grid as a false-color image, upscaled by the given
// integer factor with nearest-neighbor so cell boundaries stay crisp.
func Heatmap(g *raster.Grid, scale int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r, gr, b := valueColor(g.At(x, y)).RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: gr, B: b, A: 255})
		}
	}
	if scale > 1 {
		return imaging.Resize(img, g.Width*scale, g.Height*scale, imaging.NearestNeighbor)
	}
	return img
}

// EncodePNG writes an image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// RenderPNG renders a grid straight to PNG bytes, for HTTP responses.
func RenderPNG(g *raster.Grid, scale int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, Heatmap(g, scale)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
