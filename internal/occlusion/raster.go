package occlusion

import (
	"occlusion-culler/internal/mathutil"
)

// edgeXScale is the 16.16 fixed-point scale for edge X coordinates.
const edgeXScale = 65536.0

// edge walks one triangle edge a scanline at a time, carrying fixed-point X
// and the interpolated depth term with their per-row steps.
type edge struct {
	x        int
	xStep    int
	invZ     int
	invZStep int
}

// newEdge pre-steps the edge from the top vertex to the center of the first
// covered scanline.
func newEdge(g *gradients, top, bottom mathutil.Vec3, topY int) edge {
	slope := (bottom[0] - top[0]) / (bottom[1] - top[1])
	yPreStep := float64(topY+1) - top[1]
	xPreStep := slope * yPreStep

	return edge{
		x:        int((xPreStep+top[0])*edgeXScale + 0.5),
		xStep:    int(slope*edgeXScale + 0.5),
		invZ:     int(top[2] + xPreStep*g.dInvZdX + yPreStep*g.dInvZdY + 0.5),
		invZStep: int(slope*g.dInvZdX + g.dInvZdY + 0.5),
	}
}

// rasterizeWork clears this task's slice and fills it from every batch's
// triangles bucketed into the slice.
func (b *Buffer) rasterizeWork(t *rasterizeTask) {
	for y := t.startY; y < t.endY; y++ {
		row := b.full[b.origin+y*b.width : b.origin+y*b.width+b.width]
		for i := range row {
			row[i] = depthSentinel
		}
	}

	for bi := 0; bi < b.numBatches; bi++ {
		generate := b.generateTasks[bi]
		triangles := generate.triangles

		for _, idx := range generate.sliceIndices[t.slice] {
			vertices := &triangles[idx].vertices
			grad := &triangles[idx].gradients

			var top, middle, bottom int
			var middleIsRight bool

			// Sort vertices in Y-direction
			if vertices[0][1] < vertices[1][1] {
				if vertices[2][1] < vertices[0][1] {
					top, middle, bottom = 2, 0, 1
					middleIsRight = true
				} else {
					top = 0
					if vertices[1][1] < vertices[2][1] {
						middle, bottom = 1, 2
						middleIsRight = true
					} else {
						middle, bottom = 2, 1
						middleIsRight = false
					}
				}
			} else {
				if vertices[2][1] < vertices[1][1] {
					top, middle, bottom = 2, 1, 0
					middleIsRight = false
				} else {
					top = 1
					if vertices[0][1] < vertices[2][1] {
						middle, bottom = 0, 2
						middleIsRight = false
					} else {
						middle, bottom = 2, 0
						middleIsRight = true
					}
				}
			}

			topY := int(vertices[top][1])
			middleY := int(vertices[middle][1])
			bottomY := int(vertices[bottom][1])

			// Degenerate triangle
			if topY == bottomY {
				continue
			}

			topToMiddle := newEdge(grad, vertices[top], vertices[middle], topY)
			topToBottom := newEdge(grad, vertices[top], vertices[bottom], topY)
			middleToBottom := newEdge(grad, vertices[middle], vertices[bottom], middleY)

			if middleIsRight {
				b.rasterizeSpans(&topToBottom, &topToMiddle, topY, middleY, grad.dInvZdXInt, t.startY, t.endY)
				b.rasterizeSpans(&topToBottom, &middleToBottom, middleY, bottomY, grad.dInvZdXInt, t.startY, t.endY)
			} else {
				b.rasterizeSpans(&topToMiddle, &topToBottom, topY, middleY, grad.dInvZdXInt, t.startY, t.endY)
				b.rasterizeSpans(&middleToBottom, &topToBottom, middleY, bottomY, grad.dInvZdXInt, t.startY, t.endY)
			}
		}
	}

	// Last slice out queues the depth hierarchy build
	if b.pendingRasterize.Add(-1) == 0 {
		b.queue.Post(b.hierarchyTask)
	}
}

// rasterizeSpans fills the rows topY..bottomY between two edges, clipped to
// the slice's row range, keeping the minimum depth per pixel. The edges are
// advanced even for rows above the slice so a triangle straddling a slice
// boundary continues with the right state.
func (b *Buffer) rasterizeSpans(left, right *edge, topY, bottomY, dInvZdXInt, sliceStartY, sliceEndY int) {
	if topY < sliceStartY {
		clip := min(sliceStartY, bottomY) - topY
		left.x += clip * left.xStep
		left.invZ += clip * left.invZStep
		right.x += clip * right.xStep
		topY += clip
	}

	endY := min(bottomY, sliceEndY)
	for y := topY; y < endY; y++ {
		rowStart := b.origin + y*b.width

		invZ := left.invZ
		xEnd := right.x >> 16
		for x := left.x >> 16; x < xEnd; x++ {
			if invZ < b.full[rowStart+x] {
				b.full[rowStart+x] = invZ
			}
			invZ += dInvZdXInt
		}

		left.x += left.xStep
		left.invZ += left.invZStep
		right.x += right.xStep
	}
}
