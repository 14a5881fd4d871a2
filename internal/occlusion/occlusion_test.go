package occlusion

import (
	"runtime"
	"testing"

	"occlusion-culler/internal/mathutil"
	"occlusion-culler/internal/workqueue"
)

// Test camera: 90° vertical FOV, near 1, far 100, identity view, so view
// space is world space and +Z is straight ahead.
const (
	testNear = 1.0
	testFar  = 100.0
)

func newTestBuffer(t *testing.T, width, height, workers int) *Buffer {
	t.Helper()
	queue := workqueue.New(workers)
	t.Cleanup(queue.Close)

	b := New(queue)
	if err := b.Resize(width, height); err != nil {
		t.Fatalf("Resize(%d, %d): %v", width, height, err)
	}
	aspect := float64(width) / float64(height)
	b.SetView(mathutil.Mat4Identity(), mathutil.Perspective(90, aspect, testNear, testFar))
	return b
}

// addQuad submits a camera-facing quad at the given view depth, sized to
// cover the whole viewport (scale > 1 overfills it).
func addQuad(b *Buffer, depth, scale float64) {
	aspect := float64(b.width) / float64(b.height)
	hx := float32(scale * depth * aspect)
	hy := float32(scale * depth)
	z := float32(depth)
	quad := []float32{
		-hx, hy, z, hx, hy, z, hx, -hy, z,
		-hx, hy, z, hx, -hy, z, -hx, -hy, z,
	}
	b.AddTriangles(mathutil.Mat4Identity(), VertexView{Data: quad, Stride: 3, Count: 6})
}

func runPipeline(b *Buffer) {
	b.DrawTriangles()
	b.Complete()
}

// waitMips drives the queue until the whole mip pyramid is built. Complete
// only guarantees rasterization; the hierarchy task may still be queued.
func waitMips(b *Buffer) {
	for b.ReadyMipLevels() < len(b.mips) {
		if !b.queue.TryRunTask() {
			runtime.Gosched()
		}
	}
}

func unitBoxAt(x, y, z float64) mathutil.BBox {
	return mathutil.NewBBox(
		mathutil.Vec3{x - 0.5, y - 0.5, z - 0.5},
		mathutil.Vec3{x + 0.5, y + 0.5, z + 0.5},
	)
}

func TestFullScreenQuadScenario(t *testing.T) {
	b := newTestBuffer(t, 128, 64, 2)

	b.Reset()
	addQuad(b, 10, 1.1)
	runPipeline(b)

	if !b.IsCompleted() {
		t.Fatal("pipeline not completed after Complete")
	}

	if b.IsVisible(unitBoxAt(0, 0, 50)) {
		t.Error("box behind the quad reported visible")
	}
	if !b.IsVisible(unitBoxAt(0, 0, 5)) {
		t.Error("box in front of the quad reported occluded")
	}

	// A box straddling the near plane must be visible regardless of depth
	straddle := mathutil.NewBBox(
		mathutil.Vec3{-1, -1, -0.5},
		mathutil.Vec3{1, 1, 1.5},
	)
	if !b.IsVisible(straddle) {
		t.Error("near-plane-straddling box reported occluded")
	}

	// Fully behind the eye: every corner has non-positive w
	if !b.IsVisible(unitBoxAt(0, 0, -20)) {
		t.Error("box behind the eye reported occluded")
	}
}

func TestEmptyBufferOccludesNothing(t *testing.T) {
	b := newTestBuffer(t, 64, 64, 0)

	b.Reset()
	if !b.IsVisible(unitBoxAt(0, 0, 50)) {
		t.Error("empty buffer reported a box occluded")
	}
}

func TestResetMakesEverythingVisible(t *testing.T) {
	b := newTestBuffer(t, 128, 64, 2)

	b.Reset()
	addQuad(b, 10, 1.1)
	runPipeline(b)

	if b.IsVisible(unitBoxAt(0, 0, 50)) {
		t.Fatal("box behind the quad reported visible before reset")
	}

	b.Reset()
	if !b.IsVisible(unitBoxAt(0, 0, 50)) {
		t.Error("box still occluded after Reset with no new geometry")
	}
}

func TestResizeValidation(t *testing.T) {
	queue := workqueue.New(0)
	t.Cleanup(queue.Close)
	b := New(queue)

	if err := b.Resize(0, 64); err != ErrInvalidDimension {
		t.Errorf("Resize(0, 64) = %v, want ErrInvalidDimension", err)
	}
	if err := b.Resize(128, -1); err != ErrInvalidDimension {
		t.Errorf("Resize(128, -1) = %v, want ErrInvalidDimension", err)
	}

	// Odd heights are rounded up to even
	if err := b.Resize(128, 63); err != nil {
		t.Fatalf("Resize(128, 63): %v", err)
	}
	if b.Height() != 64 {
		t.Errorf("height = %d, want 64", b.Height())
	}

	// A non-power-of-two width is accepted, but poisons the next resize
	if err := b.Resize(100, 64); err != nil {
		t.Fatalf("Resize(100, 64): %v", err)
	}
	if err := b.Resize(128, 64); err != ErrUnsupportedWidth {
		t.Errorf("Resize after non-power-of-two width = %v, want ErrUnsupportedWidth", err)
	}
	if b.Width() != 100 {
		t.Errorf("failed resize changed width to %d", b.Width())
	}

	// Equal dimensions are a no-op, not an error
	if err := b.Resize(100, 64); err != nil {
		t.Errorf("no-op resize: %v", err)
	}
}

func TestDrawTrianglesWithoutBufferIsNoop(t *testing.T) {
	queue := workqueue.New(0)
	t.Cleanup(queue.Close)
	b := New(queue)

	// Must not panic or hang with no allocated buffer
	b.DrawTriangles()
	b.Complete()
	if !b.IsCompleted() {
		t.Error("fresh buffer not completed")
	}
}
