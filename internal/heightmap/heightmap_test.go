package heightmap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.tga"); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.png")
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 85)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	field, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if field.Width != 4 || field.Height != 3 {
		t.Errorf("field is %dx%d, want 4x3", field.Width, field.Height)
	}
	if field.At(0, 0) != 0 {
		t.Errorf("sample (0,0) = %v, want 0", field.At(0, 0))
	}
	if field.At(3, 0) != 1 {
		t.Errorf("sample (3,0) = %v, want 1", field.At(3, 0))
	}
}

func TestMeshGrid(t *testing.T) {
	f := &Field{
		Width:  3,
		Height: 2,
		Samples: []float64{
			0, 0.5, 1,
			1, 0.5, 0,
		},
	}

	verts, indices := f.Mesh(2, 10)

	if len(verts) != 3*2*3 {
		t.Fatalf("got %d vertex floats, want 18", len(verts))
	}
	if len(indices) != (3-1)*(2-1)*6 {
		t.Fatalf("got %d indices, want 12", len(indices))
	}

	// Vertex (2, 0): x = 2*cellSize, y = sample*heightScale, z = 0
	if verts[6] != 4 || verts[7] != 10 || verts[8] != 0 {
		t.Errorf("vertex 2 = (%v, %v, %v), want (4, 10, 0)", verts[6], verts[7], verts[8])
	}

	for _, idx := range indices {
		if int(idx) >= len(verts)/3 {
			t.Fatalf("index %d out of range", idx)
		}
	}
}
