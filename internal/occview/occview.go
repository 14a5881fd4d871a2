// Package occview renders an occlusion buffer's contents as images for
// debugging: the pixel-level depth and each min/max mip level.
package occview

import (
	"fmt"
	"image"
	"os"

	"occlusion-culler/internal/occlusion"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// depthSentinel mirrors the buffer's far-plane clear value.
const depthSentinel = 1 << 24

// DepthImage maps the pixel-level depth buffer to grayscale: near geometry
// dark, empty (far) pixels white.
func DepthImage(b *occlusion.Buffer) *image.Gray {
	w, h := b.Width(), b.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			img.Pix[off+x] = depthToGray(b.DepthAt(x, y))
		}
	}
	return img
}

// MipImage renders the min component of one mip level the same way.
func MipImage(b *occlusion.Buffer, level int) (*image.Gray, error) {
	if level < 0 || level >= b.ReadyMipLevels() {
		return nil, fmt.Errorf("occview: mip level %d not ready", level)
	}
	w, h := b.MipDims(level)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			minDepth, _ := b.MipAt(level, x, y)
			img.Pix[off+x] = depthToGray(minDepth)
		}
	}
	return img, nil
}

// WriteWebP saves a grayscale image as WebP, upscaling small mip images with
// nearest-neighbor so individual cells stay visible.
func WriteWebP(path string, img *image.Gray, scale int) error {
	src := img
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}

	// nativewebp wants an RGBA-style image
	rgba := image.NewNRGBA(src.Bounds())
	for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
		for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
			g := src.GrayAt(x, y).Y
			i := rgba.PixOffset(x, y)
			rgba.Pix[i] = g
			rgba.Pix[i+1] = g
			rgba.Pix[i+2] = g
			rgba.Pix[i+3] = 255
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("occview: create %s: %w", path, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, rgba, nil); err != nil {
		return fmt.Errorf("occview: encode %s: %w", path, err)
	}
	return nil
}

func depthToGray(depth int) uint8 {
	if depth < 0 {
		return 0
	}
	if depth >= depthSentinel {
		return 255
	}
	return uint8(int64(depth) * 255 / depthSentinel)
}
