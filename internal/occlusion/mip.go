package occlusion

// buildDepthHierarchyWork reduces the pixel buffer into the min/max mip
// chain. Single task: each level strictly depends on the previous one. The
// ready counter is bumped after each level so a query never reads a
// partially built level.
func (b *Buffer) buildDepthHierarchyWork() {
	// First mip level from the pixel-level data
	mipWidth := (b.width + 1) / 2
	mipHeight := (b.height + 1) / 2

	for y := 0; y < mipHeight; y++ {
		src := b.origin + (y*2)*b.width
		dst := b.mips[0][y*mipWidth : (y+1)*mipWidth]

		if y*2+1 < b.height {
			src2 := src + b.width
			for x := range dst {
				sx := src + x*2
				sx2 := src2 + x*2
				dst[x] = depthValue{
					min: min(min(b.full[sx], b.full[sx+1]), min(b.full[sx2], b.full[sx2+1])),
					max: max(max(b.full[sx], b.full[sx+1]), max(b.full[sx2], b.full[sx2+1])),
				}
			}
		} else {
			// Odd trailing row: reduce the single available row
			for x := range dst {
				sx := src + x*2
				dst[x] = depthValue{
					min: min(b.full[sx], b.full[sx+1]),
					max: max(b.full[sx], b.full[sx+1]),
				}
			}
		}
	}

	b.readyMips.Add(1)

	// Each further level reduces the previous level's pairs
	for i := 1; i < len(b.mips); i++ {
		prev := b.mips[i-1]
		cur := b.mips[i]
		prevWidth := mipWidth
		prevHeight := mipHeight
		mipWidth = (mipWidth + 1) / 2
		mipHeight = (mipHeight + 1) / 2

		for y := 0; y < mipHeight; y++ {
			src := (y * 2) * prevWidth
			dst := cur[y*mipWidth : (y+1)*mipWidth]

			if y*2+1 < prevHeight {
				src2 := src + prevWidth
				for x := range dst {
					sx := src + x*2
					sx2 := src2 + x*2
					dst[x] = depthValue{
						min: min(min(prev[sx].min, prev[sx+1].min), min(prev[sx2].min, prev[sx2+1].min)),
						max: max(max(prev[sx].max, prev[sx+1].max), max(prev[sx2].max, prev[sx2+1].max)),
					}
				}
			} else {
				for x := range dst {
					sx := src + x*2
					dst[x] = depthValue{
						min: min(prev[sx].min, prev[sx+1].min),
						max: max(prev[sx].max, prev[sx+1].max),
					}
				}
			}
		}

		b.readyMips.Add(1)
	}
}
