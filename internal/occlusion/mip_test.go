package occlusion

import "testing"

func TestMipChainDimensions(t *testing.T) {
	b := newTestBuffer(t, 128, 64, 0)

	// 64x32, 32x16, 16x8, 8x4
	if len(b.mips) != 4 {
		t.Fatalf("mip chain has %d levels, want 4", len(b.mips))
	}
	w, h := b.MipDims(0)
	if w != 64 || h != 32 {
		t.Errorf("mip 0 is %dx%d, want 64x32", w, h)
	}
	w, h = b.MipDims(3)
	if w != 8 || h != 4 {
		t.Errorf("mip 3 is %dx%d, want 8x4", w, h)
	}
}

func TestMipReadyCount(t *testing.T) {
	b := newTestBuffer(t, 128, 64, 0)

	b.Reset()
	if b.ReadyMipLevels() != 0 {
		t.Fatalf("ready mips = %d after reset, want 0", b.ReadyMipLevels())
	}

	addQuad(b, 10, 1.1)
	runPipeline(b)
	waitMips(b)

	if b.ReadyMipLevels() != len(b.mips) {
		t.Errorf("ready mips = %d, want %d", b.ReadyMipLevels(), len(b.mips))
	}
}

// Every coarser cell must bound the (min, max) range of the finer cells it
// covers, level 0 bounding the pixel data itself.
func TestMipMonotonicity(t *testing.T) {
	b := newTestBuffer(t, 128, 64, 2)

	b.Reset()
	addQuad(b, 10, 1.1)
	addScreenRectQuad(b, 10, 10, 70, 40, 5)
	addTriBothWindings(b,
		[3]float32{0, 8, 12},
		[3]float32{-8, -4, -2},
		[3]float32{8, -4, -2},
	)
	runPipeline(b)
	waitMips(b)

	// Level 0 against the pixel buffer
	w0, h0 := b.MipDims(0)
	for y := 0; y < h0; y++ {
		for x := 0; x < w0; x++ {
			cellMin, cellMax := b.MipAt(0, x, y)
			for _, p := range basePixels(b, x, y) {
				if p < cellMin || p > cellMax {
					t.Fatalf("mip 0 cell (%d,%d) [%d,%d] does not bound pixel depth %d",
						x, y, cellMin, cellMax, p)
				}
			}
		}
	}

	// Each level against the previous one
	for level := 1; level < b.ReadyMipLevels(); level++ {
		w, h := b.MipDims(level)
		prevW, prevH := b.MipDims(level - 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cellMin, cellMax := b.MipAt(level, x, y)
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						px, py := x*2+dx, y*2+dy
						if px >= prevW || py >= prevH {
							continue
						}
						fineMin, fineMax := b.MipAt(level-1, px, py)
						if fineMin < cellMin || fineMax > cellMax {
							t.Fatalf("mip %d cell (%d,%d) [%d,%d] does not bound finer cell [%d,%d]",
								level, x, y, cellMin, cellMax, fineMin, fineMax)
						}
					}
				}
			}
		}
	}
}

// basePixels lists the pixel depths covered by mip-0 cell (x, y).
func basePixels(b *Buffer, x, y int) []int {
	var out []int
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			px, py := x*2+dx, y*2+dy
			if px < b.Width() && py < b.Height() {
				out = append(out, b.DepthAt(px, py))
			}
		}
	}
	return out
}
