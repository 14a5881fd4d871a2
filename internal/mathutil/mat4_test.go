package mathutil

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translation(Vec3{1, 2, 3})
	if got := Mat4Mul(Mat4Identity(), m); got != m {
		t.Errorf("I × M = %v, want %v", got, m)
	}
	if got := Mat4Mul(m, Mat4Identity()); got != m {
		t.Errorf("M × I = %v, want %v", got, m)
	}
}

func TestMulPointWTranslation(t *testing.T) {
	m := Translation(Vec3{1, -2, 3})
	got := m.MulPointW(Vec3{10, 10, 10})
	want := Vec4{11, 8, 13, 1}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Fatalf("MulPointW = %v, want %v", got, want)
		}
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(90, 2, 1, 100)

	near := p.MulPointW(Vec3{0, 0, 1})
	if !approx(near[2], 0) {
		t.Errorf("near-plane clip z = %v, want 0", near[2])
	}
	if !approx(near[3], 1) {
		t.Errorf("near-plane clip w = %v, want 1", near[3])
	}

	far := p.MulPointW(Vec3{0, 0, 100})
	if !approx(far[2], far[3]) {
		t.Errorf("far-plane clip z = %v, want w = %v", far[2], far[3])
	}
}

func TestPerspectiveFrustumEdges(t *testing.T) {
	p := Perspective(90, 2, 1, 100)

	// At depth z the vertical half-extent is z (90° fov), horizontal 2z
	top := p.MulPointW(Vec3{0, 10, 10})
	if !approx(top[1], top[3]) {
		t.Errorf("top frustum edge: clip y = %v, want w = %v", top[1], top[3])
	}
	right := p.MulPointW(Vec3{20, 0, 10})
	if !approx(right[0], right[3]) {
		t.Errorf("right frustum edge: clip x = %v, want w = %v", right[0], right[3])
	}
}

func TestLookAtAtOriginIsIdentity(t *testing.T) {
	v := LookAt(Vec3{}, Vec3{0, 0, 1}, Vec3{0, 1, 0})
	if !v.IsIdentity() {
		t.Errorf("LookAt(origin, +Z, +Y) = %v, want identity", v)
	}
}

func TestLookAtMapsTargetToViewAxis(t *testing.T) {
	eye := Vec3{5, 3, -7}
	target := Vec3{1, 2, 4}
	v := LookAt(eye, target, Vec3{0, 1, 0})

	p := v.MulPoint(target)
	if !approx(p[0], 0) || !approx(p[1], 0) {
		t.Errorf("target maps to %v, want on the +Z view axis", p)
	}
	if p[2] <= 0 {
		t.Errorf("target at view depth %v, want positive", p[2])
	}
}

func TestBBoxCorners(t *testing.T) {
	b := NewBBox(Vec3{-1, -2, -3}, Vec3{1, 2, 3})

	if b.Corner(0) != b.Min {
		t.Errorf("corner 0 = %v, want min", b.Corner(0))
	}
	if b.Corner(7) != b.Max {
		t.Errorf("corner 7 = %v, want max", b.Corner(7))
	}

	seen := map[Vec3]bool{}
	for i := 0; i < 8; i++ {
		seen[b.Corner(i)] = true
	}
	if len(seen) != 8 {
		t.Errorf("corners produced %d distinct points, want 8", len(seen))
	}

	if c := b.Center(); c != (Vec3{0, 0, 0}) {
		t.Errorf("center = %v, want origin", c)
	}
}
