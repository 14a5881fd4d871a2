package occlusion

import (
	"occlusion-culler/internal/mathutil"
)

// IsVisible conservatively tests a world-space bounding box against the
// rasterized depth. It may report visible for an occluded box, never the
// reverse. Only valid once IsCompleted reports true; the query itself is
// lock-free and read-only.
func (b *Buffer) IsVisible(worldSpaceBox mathutil.BBox) bool {
	// Nothing rasterized occludes nothing
	if b.full == nil || b.numBatches == 0 {
		return true
	}

	// Project the corners to screen space. If any corner crosses the near
	// plane the screen bounds are unreliable, so assume visible.
	var minX, maxX, minY, maxY, minZ float64
	for i := 0; i < 8; i++ {
		v := b.viewProj.MulPointW(worldSpaceBox.Corner(i))
		if v[3] <= 0 {
			return true
		}

		p := b.viewportTransform(v)
		if i == 0 {
			minX, maxX = p[0], p[0]
			minY, maxY = p[1], p[1]
			minZ = p[2]
			continue
		}
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
		if p[2] < minZ {
			minZ = p[2]
		}
	}

	// Expand one pixel in each direction to be conservative and correct for
	// the rasterization offset, then clip to the frame.
	left := int(minX - 1.5)
	top := int(minY - 1.5)
	right := int(maxX + 0.5)
	bottom := int(maxY + 0.5)

	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if right >= b.width {
		right = b.width - 1
	}
	if bottom >= b.height {
		bottom = b.height - 1
	}

	// Depth bias accounting for the worst possible gradient error, one
	// depth unit per horizontal pixel
	z := int(minZ) - b.width

	// Walk from the coarsest ready mip level down looking for a conclusive
	// answer
	for i := int(b.readyMips.Load()) - 1; i >= 0; i-- {
		shift := uint(i + 1)
		mipWidth := b.width >> shift
		mipLeft := left >> shift
		mipRight := right >> shift

		mip := b.mips[i]
		row := (top >> shift) * mipWidth
		endRow := (bottom >> shift) * mipWidth
		allOccluded := true

		for ; row <= endRow; row += mipWidth {
			for x := mipLeft; x <= mipRight; x++ {
				cell := &mip[row+x]
				if z <= cell.min {
					return true
				}
				if z <= cell.max {
					allOccluded = false
				}
			}
		}

		if allOccluded {
			return false
		}
	}

	// No conclusive result; check the pixel-level data
	row := b.origin + top*b.width
	endRow := b.origin + bottom*b.width
	for ; row <= endRow; row += b.width {
		for x := left; x <= right; x++ {
			if z <= b.full[row+x] {
				return true
			}
		}
	}

	return false
}
