package mathutil

// BBox is a world-space axis-aligned bounding box.
type BBox struct {
	Min Vec3
	Max Vec3
}

// NewBBox returns the box spanning min..max.
func NewBBox(min, max Vec3) BBox {
	return BBox{Min: min, Max: max}
}

// Corner returns corner i (0-7), bit 0 selecting max X, bit 1 max Y, bit 2 max Z.
func (b BBox) Corner(i int) Vec3 {
	v := b.Min
	if i&1 != 0 {
		v[0] = b.Max[0]
	}
	if i&2 != 0 {
		v[1] = b.Max[1]
	}
	if i&4 != 0 {
		v[2] = b.Max[2]
	}
	return v
}

// Center returns the box midpoint.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}
