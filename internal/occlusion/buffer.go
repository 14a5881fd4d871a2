// Package occlusion implements a CPU-side occlusion culling buffer: a
// low-resolution conservative depth rasterizer with a min/max mip pyramid,
// used to answer "can this bounding box possibly be visible?" without
// touching the GPU.
//
// Rasterizer code based on Chris Hecker's Perspective Texture Mapping series
// in the Game Developer magazine, also available online at
// http://chrishecker.com/Miscellaneous_Technical_Articles
package occlusion

import (
	"errors"
	"runtime"
	"sync/atomic"

	"occlusion-culler/internal/mathutil"
	"occlusion-culler/internal/workqueue"
)

const (
	// sliceCount is the number of horizontal bands the frame is split into
	// for parallel rasterization.
	sliceCount = 8

	// minMipSize stops the mip chain once both dimensions are this small.
	minMipSize = 8

	// depthScale converts normalized device depth [0,1] to integer depth.
	depthScale = 16777216.0

	// depthSentinel is the far-plane clear value.
	depthSentinel = int(depthScale)

	// maxClipTriangles bounds the clip scratch arena: each of the 6 clip
	// planes can at most double the triangle count once (2^6 = 64).
	maxClipTriangles = 64
)

var (
	ErrInvalidDimension = errors.New("occlusion: buffer dimensions must be positive")
	ErrUnsupportedWidth = errors.New("occlusion: buffer width is not a power of two")
)

// depthValue is one cell of a mip level.
type depthValue struct {
	min int
	max int
}

// Buffer is the occlusion depth buffer and its pipeline state. It never
// creates goroutines itself; all parallel work is submitted to the queue
// given at construction.
//
// The caller drives one pass as Reset → AddTriangles* → DrawTriangles →
// Complete, and may call IsVisible only once IsCompleted reports true.
type Buffer struct {
	queue *workqueue.Queue

	width  int
	height int

	// Depth cells with a 1-pixel margin around the logical frame, so
	// imprecise 3D clipping can overshoot without going out of bounds.
	// origin is the index of pixel (0,0) inside full.
	full   []int
	origin int

	mips      [][]depthValue
	readyMips atomic.Int32

	viewProj mathutil.Mat4
	scaleX   float64
	scaleY   float64
	offsetX  float64
	offsetY  float64

	sliceHeight  int
	activeSlices int

	numBatches     int
	generateTasks  []*generateTask
	rasterizeTasks [sliceCount]*rasterizeTask
	hierarchyTask  *hierarchyTask

	// Reused task slices handed to the queue, to avoid per-frame allocation.
	generateScratch  []workqueue.Task
	rasterizeScratch [sliceCount]workqueue.Task

	pendingGenerate  atomic.Int32
	pendingRasterize atomic.Int32
}

// New creates an empty occlusion buffer submitting its work to queue.
// Resize must be called before any triangles are drawn.
func New(queue *workqueue.Queue) *Buffer {
	b := &Buffer{queue: queue}
	b.hierarchyTask = &hierarchyTask{buf: b}
	for i := range b.rasterizeTasks {
		b.rasterizeTasks[i] = &rasterizeTask{buf: b, slice: i}
		b.rasterizeScratch[i] = b.rasterizeTasks[i]
	}
	return b
}

// Resize reallocates the depth buffer and mip chain for the given
// dimensions. The height is rounded up to an even number of pixels for mip
// generation; equal dimensions after that correction are a no-op. On error
// the previous buffer state is left untouched.
func (b *Buffer) Resize(newWidth, newHeight int) error {
	// Force an even amount of pixel rows for better mip generation
	if newHeight&1 != 0 {
		newHeight++
	}

	if newWidth == b.width && newHeight == b.height {
		return nil
	}

	if newWidth <= 0 || newHeight <= 0 {
		return ErrInvalidDimension
	}
	// The hierarchical query shifts coordinates per mip level, which
	// assumes a power-of-two width.
	if !isPowerOfTwo(b.width) {
		return ErrUnsupportedWidth
	}

	b.width = newWidth
	b.height = newHeight
	b.sliceHeight = (newHeight+sliceCount-1)/sliceCount + 1
	b.activeSlices = 0

	for i := 0; i < sliceCount; i++ {
		if i*b.sliceHeight >= b.height {
			break
		}
		task := b.rasterizeTasks[i]
		task.startY = i * b.sliceHeight
		task.endY = min((i+1)*b.sliceHeight, b.height)
		b.activeSlices++
	}

	// Reserve extra memory in case 3D clipping is not exact
	b.full = make([]int, newWidth*(newHeight+2)+2)
	b.origin = newWidth + 1

	b.mips = b.mips[:0]
	mipWidth, mipHeight := newWidth, newHeight
	for {
		mipWidth = (mipWidth + 1) / 2
		mipHeight = (mipHeight + 1) / 2
		b.mips = append(b.mips, make([]depthValue, mipWidth*mipHeight))
		if mipWidth <= minMipSize && mipHeight <= minMipSize {
			break
		}
	}

	b.calculateViewport()
	return nil
}

// SetView stores the combined view-projection matrix used to transform
// world-space geometry for this pass.
func (b *Buffer) SetView(view, projection mathutil.Mat4) {
	b.viewProj = mathutil.Mat4Mul(projection, view)
	b.calculateViewport()
}

// Reset prepares the buffer for a new pass. Completes any pipeline still in
// flight first to avoid out of sync state. No memory is released.
func (b *Buffer) Reset() {
	b.Complete()

	b.numBatches = 0
	b.readyMips.Store(0)
	b.pendingGenerate.Store(0)
	b.pendingRasterize.Store(0)
}

// DrawTriangles launches the pipeline for the accumulated batches: one
// generate task per batch, then one rasterize task per slice, then the
// depth hierarchy build. No-op without a buffer, or while a previous pass
// has not completed.
func (b *Buffer) DrawTriangles() {
	if b.full == nil || !b.IsCompleted() {
		return
	}
	if b.numBatches == 0 {
		return
	}

	b.pendingGenerate.Store(int32(b.numBatches))
	// Keep the rasterize counter non-zero through the phase hand-off so a
	// completion check between the phases cannot report done early. The
	// last generate task replaces it with the slice count.
	b.pendingRasterize.Store(1)

	b.generateScratch = b.generateScratch[:0]
	for i := 0; i < b.numBatches; i++ {
		b.generateScratch = append(b.generateScratch, b.generateTasks[i])
	}
	b.queue.PostAll(b.generateScratch)
}

// Complete blocks until the whole pipeline has finished. The calling
// goroutine services queued tasks itself while waiting, so progress does not
// depend on a spare worker.
func (b *Buffer) Complete() {
	for b.pendingRasterize.Load() > 0 {
		if !b.queue.TryRunTask() {
			runtime.Gosched()
		}
	}
}

// IsCompleted reports whether the pipeline has finished. The rasterize
// counter is the authoritative signal; it is held non-zero across the
// generate→rasterize hand-off.
func (b *Buffer) IsCompleted() bool {
	return b.pendingRasterize.Load() == 0
}

// Width returns the logical buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the logical buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// DepthAt returns the integer depth stored at pixel (x, y).
func (b *Buffer) DepthAt(x, y int) int {
	return b.full[b.origin+y*b.width+x]
}

// ReadyMipLevels returns how many mip levels have been fully built.
func (b *Buffer) ReadyMipLevels() int {
	return int(b.readyMips.Load())
}

// MipDims returns the dimensions of mip level i.
func (b *Buffer) MipDims(level int) (int, int) {
	w, h := b.width, b.height
	for i := 0; i <= level; i++ {
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return w, h
}

// MipAt returns the (min, max) depth pair of cell (x, y) in mip level i.
func (b *Buffer) MipAt(level, x, y int) (int, int) {
	w, _ := b.MipDims(level)
	c := b.mips[level][y*w+x]
	return c.min, c.max
}

func (b *Buffer) calculateViewport() {
	// Add half pixel offset due to 3D frustum culling
	b.scaleX = 0.5 * float64(b.width)
	b.scaleY = -0.5 * float64(b.height)
	b.offsetX = 0.5*float64(b.width) + 0.5
	b.offsetY = 0.5*float64(b.height) + 0.5
}

// viewportTransform performs the perspective divide and maps clip space to
// pixel coordinates, with depth scaled to the integer range.
func (b *Buffer) viewportTransform(v mathutil.Vec4) mathutil.Vec3 {
	invW := 1.0 / v[3]
	return mathutil.Vec3{
		invW*v[0]*b.scaleX + b.offsetX,
		invW*v[1]*b.scaleY + b.offsetY,
		invW * v[2] * depthScale,
	}
}

// isPowerOfTwo also accepts zero, so the very first resize of a fresh
// buffer passes the previous-width check.
func isPowerOfTwo(v int) bool {
	return v&(v-1) == 0
}
