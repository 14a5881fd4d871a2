// Package heightmap loads a grayscale heightfield image and turns it into
// an indexed triangle mesh usable as occluder geometry.
package heightmap

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for image.Decode
	_ "image/png"

	_ "github.com/ftrvxmtrx/tga"
)

// Field is a decoded heightfield with samples normalized to 0..1.
type Field struct {
	Width   int
	Height  int
	Samples []float64
}

// Load decodes a TGA or PNG heightfield, taking the red channel as height.
func Load(path string) (*Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("heightmap: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("heightmap: decode %s: %w", path, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("heightmap: %s is %dx%d, need at least 2x2", path, w, h)
	}

	field := &Field{
		Width:   w,
		Height:  h,
		Samples: make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			field.Samples[y*w+x] = float64(r) / 65535.0
		}
	}
	return field, nil
}

// At returns the normalized height at grid cell (x, z).
func (f *Field) At(x, z int) float64 {
	return f.Samples[z*f.Width+x]
}

// Mesh builds an indexed triangle grid over the XZ plane, one vertex per
// sample, elevated by heightScale. Vertices are packed with stride 3.
// Triangles are wound clockwise when viewed from above on the -Z side,
// matching the rasterizer's facing convention for a camera placed there.
func (f *Field) Mesh(cellSize, heightScale float64) ([]float32, []uint32) {
	verts := make([]float32, 0, f.Width*f.Height*3)
	for z := 0; z < f.Height; z++ {
		for x := 0; x < f.Width; x++ {
			verts = append(verts,
				float32(float64(x)*cellSize),
				float32(f.At(x, z)*heightScale),
				float32(float64(z)*cellSize),
			)
		}
	}

	indices := make([]uint32, 0, (f.Width-1)*(f.Height-1)*6)
	for z := 0; z < f.Height-1; z++ {
		for x := 0; x < f.Width-1; x++ {
			i00 := uint32(z*f.Width + x)
			i10 := i00 + 1
			i01 := i00 + uint32(f.Width)
			i11 := i01 + 1
			indices = append(indices, i00, i10, i11)
			indices = append(indices, i00, i11, i01)
		}
	}
	return verts, indices
}
