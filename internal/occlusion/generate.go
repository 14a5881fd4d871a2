package occlusion

import (
	"occlusion-culler/internal/mathutil"
)

// Per-vertex clip plane mask bits.
const (
	clipXPos = 0x1
	clipXNeg = 0x2
	clipYPos = 0x4
	clipYNeg = 0x8
	clipZPos = 0x10
	clipZNeg = 0x20
)

// gradientTriangle is a viewport-space triangle with precomputed
// interpolation gradients for the scanline rasterizer. Vertex z holds the
// depth term already scaled to the integer range.
type gradientTriangle struct {
	vertices  [3]mathutil.Vec3
	gradients gradients
}

// gradients holds the screen-space steps of the interpolated depth term.
type gradients struct {
	dInvZdX    float64
	dInvZdY    float64
	dInvZdXInt int
}

// calculate derives the per-x and per-y depth steps from the projected
// vertices. Only valid for triangles with non-zero signed area; the facing
// test rejects the rest before this runs.
func (g *gradients) calculate(v *[3]mathutil.Vec3) {
	invdX := 1.0 / (((v[1][0] - v[2][0]) * (v[0][1] - v[2][1])) -
		((v[0][0] - v[2][0]) * (v[1][1] - v[2][1])))
	invdY := -invdX

	g.dInvZdX = invdX * (((v[1][2] - v[2][2]) * (v[0][1] - v[2][1])) -
		((v[0][2] - v[2][2]) * (v[1][1] - v[2][1])))
	g.dInvZdY = invdY * (((v[1][2] - v[2][2]) * (v[0][0] - v[2][0])) -
		((v[0][2] - v[2][2]) * (v[1][0] - v[2][0])))
	g.dInvZdXInt = int(g.dInvZdX)
}

// checkFacing accepts front-facing triangles by the sign of the
// screen-space area; the winding convention is fixed by the renderer.
func checkFacing(v *[3]mathutil.Vec3) bool {
	aX := v[0][0] - v[1][0]
	aY := v[0][1] - v[1][1]
	bX := v[2][0] - v[1][0]
	bY := v[2][1] - v[1][1]
	return aX*bY-aY*bX < 0
}

// generateWork transforms one batch's triangles to clip space, clips and
// projects them, and buckets the survivors into per-slice index lists.
func (b *Buffer) generateWork(t *generateTask) {
	modelViewProj := mathutil.Mat4Mul(b.viewProj, t.batch.world)

	// Scratch arena for clip output; 6 planes can at most double the
	// triangle count once each.
	var vertices [maxClipTriangles * 3]mathutil.Vec4

	batch := &t.batch
	if !batch.indexed {
		for i := 0; i+2 < batch.verts.Count; i += 3 {
			base := batch.verts.Start + i
			vertices[0] = modelViewProj.MulPointW(batch.verts.position(base))
			vertices[1] = modelViewProj.MulPointW(batch.verts.position(base + 1))
			vertices[2] = modelViewProj.MulPointW(batch.verts.position(base + 2))
			b.addTriangle(t, &vertices)
		}
	} else {
		for i := 0; i+2 < batch.indices.Count; i += 3 {
			vertices[0] = modelViewProj.MulPointW(batch.verts.position(batch.indices.at(i)))
			vertices[1] = modelViewProj.MulPointW(batch.verts.position(batch.indices.at(i + 1)))
			vertices[2] = modelViewProj.MulPointW(batch.verts.position(batch.indices.at(i + 2)))
			b.addTriangle(t, &vertices)
		}
	}

	// The last generate task out arms the rasterize phase; no separate
	// barrier between the phases.
	if b.pendingGenerate.Add(-1) == 0 {
		b.pendingRasterize.Store(int32(b.activeSlices))
		b.queue.PostAll(b.rasterizeScratch[:b.activeSlices])
	}
}

// addTriangle clips one clip-space triangle (vertices[0..2]) and records the
// projected result(s) into the task's triangle list and slice buckets.
func (b *Buffer) addTriangle(t *generateTask, vertices *[maxClipTriangles * 3]mathutil.Vec4) {
	var clipMask, andClipMask uint32

	// Build the clip plane mask for the triangle
	for i := 0; i < 3; i++ {
		var vertexClipMask uint32
		v := &vertices[i]

		if v[0] > v[3] {
			vertexClipMask |= clipXPos
		}
		if v[0] < -v[3] {
			vertexClipMask |= clipXNeg
		}
		if v[1] > v[3] {
			vertexClipMask |= clipYPos
		}
		if v[1] < -v[3] {
			vertexClipMask |= clipYNeg
		}
		if v[2] > v[3] {
			vertexClipMask |= clipZPos
		}
		if v[2] < 0 {
			vertexClipMask |= clipZNeg
		}

		clipMask |= vertexClipMask
		if i == 0 {
			andClipMask = vertexClipMask
		} else {
			andClipMask &= vertexClipMask
		}
	}

	// If the triangle is fully behind any clip plane, reject quickly
	if andClipMask != 0 {
		return
	}

	var projected gradientTriangle

	if clipMask == 0 {
		// Fully inside the frustum
		projected.vertices[0] = b.viewportTransform(vertices[0])
		projected.vertices[1] = b.viewportTransform(vertices[1])
		projected.vertices[2] = b.viewportTransform(vertices[2])

		if checkFacing(&projected.vertices) {
			idx := uint32(len(t.triangles))
			minY := minInt3(int(projected.vertices[0][1]), int(projected.vertices[1][1]), int(projected.vertices[2][1]))
			maxY := maxInt3(int(projected.vertices[0][1]), int(projected.vertices[1][1]), int(projected.vertices[2][1]))

			projected.gradients.calculate(&projected.vertices)
			t.triangles = append(t.triangles, projected)

			for i := 0; i < b.activeSlices; i++ {
				sliceStartY := i * b.sliceHeight
				sliceEndY := min(b.height, sliceStartY+b.sliceHeight)
				if minY < sliceEndY && maxY > sliceStartY {
					t.sliceIndices[i] = append(t.sliceIndices[i], idx)
				}
			}
		}
		return
	}

	var accepted [maxClipTriangles]bool
	accepted[0] = true
	numClipTriangles := 1

	if clipMask&clipXPos != 0 {
		clipVertices(mathutil.Vec4{-1, 0, 0, 1}, vertices, &accepted, &numClipTriangles)
	}
	if clipMask&clipXNeg != 0 {
		clipVertices(mathutil.Vec4{1, 0, 0, 1}, vertices, &accepted, &numClipTriangles)
	}
	if clipMask&clipYPos != 0 {
		clipVertices(mathutil.Vec4{0, -1, 0, 1}, vertices, &accepted, &numClipTriangles)
	}
	if clipMask&clipYNeg != 0 {
		clipVertices(mathutil.Vec4{0, 1, 0, 1}, vertices, &accepted, &numClipTriangles)
	}
	if clipMask&clipZPos != 0 {
		clipVertices(mathutil.Vec4{0, 0, -1, 1}, vertices, &accepted, &numClipTriangles)
	}
	if clipMask&clipZNeg != 0 {
		clipVertices(mathutil.Vec4{0, 0, 1, 0}, vertices, &accepted, &numClipTriangles)
	}

	for i := 0; i < numClipTriangles; i++ {
		if !accepted[i] {
			continue
		}

		base := i * 3
		projected.vertices[0] = b.viewportTransform(vertices[base])
		projected.vertices[1] = b.viewportTransform(vertices[base+1])
		projected.vertices[2] = b.viewportTransform(vertices[base+2])

		if checkFacing(&projected.vertices) {
			idx := uint32(len(t.triangles))
			minY := minInt3(int(projected.vertices[0][1]), int(projected.vertices[1][1]), int(projected.vertices[2][1]))
			maxY := maxInt3(int(projected.vertices[0][1]), int(projected.vertices[1][1]), int(projected.vertices[2][1]))

			projected.gradients.calculate(&projected.vertices)
			t.triangles = append(t.triangles, projected)

			// Note the closed lower bound: clipped triangles may touch a
			// slice exactly at its start row.
			for j := 0; j < b.activeSlices; j++ {
				sliceStartY := j * b.sliceHeight
				sliceEndY := sliceStartY + b.sliceHeight
				if minY < sliceEndY && maxY >= sliceStartY {
					t.sliceIndices[j] = append(t.sliceIndices[j], idx)
				}
			}
		}
	}
}

// clipVertices runs one Sutherland-Hodgman pass against a single plane over
// the sub-triangle arena. Triangles with one vertex behind the plane split
// into two (one new, one rewritten in place); two behind rewrites in place;
// three behind rejects.
func clipVertices(plane mathutil.Vec4, vertices *[maxClipTriangles * 3]mathutil.Vec4, accepted *[maxClipTriangles]bool, numClipTriangles *int) {
	trianglesNow := *numClipTriangles

	for i := 0; i < trianglesNow; i++ {
		if !accepted[i] {
			continue
		}

		base := i * 3
		d0 := plane.Dot(vertices[base])
		d1 := plane.Dot(vertices[base+1])
		d2 := plane.Dot(vertices[base+2])

		switch {
		case d0 < 0 && d1 < 0 && d2 < 0:
			accepted[i] = false

		case d0 < 0 && d1 < 0:
			vertices[base] = clipEdge(vertices[base], vertices[base+2], d0, d2)
			vertices[base+1] = clipEdge(vertices[base+1], vertices[base+2], d1, d2)

		case d0 < 0 && d2 < 0:
			vertices[base] = clipEdge(vertices[base], vertices[base+1], d0, d1)
			vertices[base+2] = clipEdge(vertices[base+2], vertices[base+1], d2, d1)

		case d1 < 0 && d2 < 0:
			vertices[base+1] = clipEdge(vertices[base+1], vertices[base], d1, d0)
			vertices[base+2] = clipEdge(vertices[base+2], vertices[base], d2, d0)

		case d0 < 0:
			newBase := *numClipTriangles * 3
			accepted[*numClipTriangles] = true
			*numClipTriangles++

			vertices[newBase] = clipEdge(vertices[base], vertices[base+2], d0, d2)
			clipped := clipEdge(vertices[base], vertices[base+1], d0, d1)
			vertices[newBase+1] = clipped
			vertices[base] = clipped
			vertices[newBase+2] = vertices[base+2]

		case d1 < 0:
			newBase := *numClipTriangles * 3
			accepted[*numClipTriangles] = true
			*numClipTriangles++

			vertices[newBase+1] = clipEdge(vertices[base+1], vertices[base], d1, d0)
			clipped := clipEdge(vertices[base+1], vertices[base+2], d1, d2)
			vertices[newBase+2] = clipped
			vertices[base+1] = clipped
			vertices[newBase] = vertices[base]

		case d2 < 0:
			newBase := *numClipTriangles * 3
			accepted[*numClipTriangles] = true
			*numClipTriangles++

			vertices[newBase+2] = clipEdge(vertices[base+2], vertices[base+1], d2, d1)
			clipped := clipEdge(vertices[base+2], vertices[base], d2, d0)
			vertices[newBase] = clipped
			vertices[base+2] = clipped
			vertices[newBase+1] = vertices[base+1]
		}
	}
}

// clipEdge interpolates the intersection of edge v0-v1 with a plane from the
// homogeneous plane distances of its endpoints.
func clipEdge(v0, v1 mathutil.Vec4, d0, d1 float64) mathutil.Vec4 {
	t := d0 / (d0 - d1)
	return v0.Lerp(v1, t)
}

func minInt3(a, b, c int) int {
	return min(min(a, b), c)
}

func maxInt3(a, b, c int) int {
	return max(max(a, b), c)
}
