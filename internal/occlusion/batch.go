package occlusion

import (
	"occlusion-culler/internal/mathutil"
)

// VertexView is a non-owning view of caller-supplied vertex data. Positions
// are the first three floats of each vertex; Stride counts float32 elements
// per vertex. The view is only read during the pipeline run and never
// retained past task completion.
type VertexView struct {
	Data   []float32
	Stride int
	Start  int // first vertex for non-indexed draws
	Count  int // number of vertices (non-indexed) to consume
}

func (v VertexView) valid() bool {
	return v.Stride >= 3 && v.Start >= 0 && v.Count >= 0
}

// position returns the position of vertex i as float64s.
func (v VertexView) position(i int) mathutil.Vec3 {
	base := i * v.Stride
	return mathutil.Vec3{
		float64(v.Data[base]),
		float64(v.Data[base+1]),
		float64(v.Data[base+2]),
	}
}

// IndexView is a non-owning view of 16- or 32-bit index data. Exactly one of
// U16 and U32 must be set. Indices address the vertex buffer absolutely;
// Start/Count select the index range to draw.
type IndexView struct {
	U16   []uint16
	U32   []uint32
	Start int
	Count int
}

func (ix IndexView) valid() bool {
	if ix.Start < 0 || ix.Count < 0 {
		return false
	}
	return (ix.U16 == nil) != (ix.U32 == nil)
}

func (ix IndexView) at(i int) int {
	if ix.U16 != nil {
		return int(ix.U16[ix.Start+i])
	}
	return int(ix.U32[ix.Start+i])
}

// triangleDrawBatch is one draw call's worth of input geometry, valid only
// for the current pass.
type triangleDrawBatch struct {
	world   mathutil.Mat4
	verts   VertexView
	indices IndexView
	indexed bool
}

// generateTask transforms, clips and slice-buckets one batch. Its outputs
// (triangles plus per-slice index lists) are only read by the rasterize
// phase, so generate tasks are mutually independent.
type generateTask struct {
	buf          *Buffer
	batch        triangleDrawBatch
	triangles    []gradientTriangle
	sliceIndices [sliceCount][]uint32
}

func (t *generateTask) Run() { t.buf.generateWork(t) }

// rasterizeTask fills one horizontal slice of the depth buffer. Slices own
// disjoint row ranges, so no synchronization is needed on the pixel data.
type rasterizeTask struct {
	buf    *Buffer
	slice  int
	startY int
	endY   int
}

func (t *rasterizeTask) Run() { t.buf.rasterizeWork(t) }

// hierarchyTask builds the min/max mip pyramid after all slices are done.
type hierarchyTask struct {
	buf *Buffer
}

func (t *hierarchyTask) Run() { t.buf.buildDepthHierarchyWork() }

// AddTriangles records a non-indexed draw batch for the current pass. Must
// be called between Reset and DrawTriangles; no geometric work happens here.
// Invalid views are dropped.
func (b *Buffer) AddTriangles(world mathutil.Mat4, verts VertexView) {
	if !verts.valid() {
		return
	}
	task := b.nextBatch()
	task.batch = triangleDrawBatch{world: world, verts: verts}
}

// AddTrianglesIndexed records an indexed draw batch for the current pass.
func (b *Buffer) AddTrianglesIndexed(world mathutil.Mat4, verts VertexView, indices IndexView) {
	if !verts.valid() || !indices.valid() {
		return
	}
	task := b.nextBatch()
	task.batch = triangleDrawBatch{world: world, verts: verts, indices: indices, indexed: true}
}

// nextBatch reuses or grows the generate task cache and clears the task's
// per-pass output lists. The cache outlives individual frames to avoid
// reallocation.
func (b *Buffer) nextBatch() *generateTask {
	if len(b.generateTasks) <= b.numBatches {
		b.generateTasks = append(b.generateTasks, &generateTask{buf: b})
	}

	task := b.generateTasks[b.numBatches]
	task.triangles = task.triangles[:0]
	for i := 0; i < b.activeSlices; i++ {
		task.sliceIndices[i] = task.sliceIndices[i][:0]
	}

	b.numBatches++
	return task
}
