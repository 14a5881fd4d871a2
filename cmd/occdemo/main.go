package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"occlusion-culler/internal/config"
	"occlusion-culler/internal/heightmap"
	"occlusion-culler/internal/mathutil"
	"occlusion-culler/internal/occlusion"
	"occlusion-culler/internal/occview"
	"occlusion-culler/internal/workqueue"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	width := flag.Int("width", 0, "Buffer width in pixels, power of two (default: 256)")
	height := flag.Int("height", 0, "Buffer height in pixels (default: 128)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	grid := flag.Int("grid", 0, "Probe boxes per axis (default: 16)")
	heightmapPath := flag.String("heightmap", "", "TGA/PNG heightfield to use as occluder terrain")
	outputDir := flag.String("output", "", "Output directory for depth dumps (default: .)")
	dump := flag.Bool("dump", false, "Write depth buffer and mip levels as WebP")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		Width:     *width,
		Height:    *height,
		Workers:   *workers,
		Grid:      *grid,
		Heightmap: *heightmapPath,
		OutputDir: *outputDir,
		DumpDepth: *dump,
	})

	queue := workqueue.New(cfg.Workers)
	defer queue.Close()

	buf := occlusion.New(queue)
	if err := buf.Resize(cfg.Width, cfg.Height); err != nil {
		fmt.Fprintf(os.Stderr, "Error: resize %dx%d: %v\n", cfg.Width, cfg.Height, err)
		os.Exit(1)
	}

	fmt.Printf("Occlusion buffer demo\n")
	fmt.Printf("Buffer: %dx%d, Workers: %d\n", buf.Width(), buf.Height(), cfg.Workers)

	var probeVolume mathutil.BBox
	if cfg.Heightmap != "" {
		volume, err := terrainScene(buf, cfg.Heightmap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		probeVolume = volume
		fmt.Printf("Occluders: terrain from %s\n", cfg.Heightmap)
	} else {
		probeVolume = wallScene(buf)
		fmt.Println("Occluders: synthetic quad walls at depth 20, 35 and 50")
	}

	start := time.Now()
	buf.DrawTriangles()
	buf.Complete()
	elapsed := time.Since(start)
	fmt.Printf("Pipeline: %v, %d mip levels ready\n", elapsed, buf.ReadyMipLevels())

	queryStart := time.Now()
	visible, total := probeGrid(buf, cfg.Grid, probeVolume)
	fmt.Printf("Queries: %d/%d probe boxes visible (%v)\n", visible, total, time.Since(queryStart))

	if cfg.DumpDepth {
		if err := dumpBuffers(buf, cfg.OutputDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Depth dumps written to %s\n", cfg.OutputDir)
	}
}

// wallScene places three full-screen quad walls in front of the camera,
// which sits at the origin looking down +Z. Returns the world volume to
// probe with query boxes.
func wallScene(buf *occlusion.Buffer) mathutil.BBox {
	aspect := float64(buf.Width()) / float64(buf.Height())
	proj := mathutil.Perspective(90, aspect, 1, 200)
	buf.SetView(mathutil.Mat4Identity(), proj)

	buf.Reset()
	for _, depth := range []float64{20, 35, 50} {
		// Sized to overfill the frustum at this depth
		hx := float32(1.1 * depth * aspect)
		hy := float32(1.1 * depth)
		z := float32(depth)
		quad := []float32{
			-hx, hy, z, hx, hy, z, hx, -hy, z,
			-hx, hy, z, hx, -hy, z, -hx, -hy, z,
		}
		buf.AddTriangles(mathutil.Mat4Identity(), occlusion.VertexView{
			Data:   quad,
			Stride: 3,
			Count:  6,
		})
	}

	return mathutil.NewBBox(
		mathutil.Vec3{-30, -30, 5},
		mathutil.Vec3{30, 30, 160},
	)
}

// terrainScene rasterizes a heightfield mesh seen from above its -Z edge.
// Returns the world volume to probe with query boxes.
func terrainScene(buf *occlusion.Buffer, path string) (mathutil.BBox, error) {
	field, err := heightmap.Load(path)
	if err != nil {
		return mathutil.BBox{}, err
	}

	const cellSize = 1.0
	heightScale := float64(field.Width) * 0.15
	verts, indices := field.Mesh(cellSize, heightScale)

	extentX := float64(field.Width-1) * cellSize
	extentZ := float64(field.Height-1) * cellSize
	center := mathutil.Vec3{extentX / 2, 0, extentZ / 2}
	eye := mathutil.Vec3{extentX / 2, heightScale * 2.5, -extentZ * 0.75}

	aspect := float64(buf.Width()) / float64(buf.Height())
	view := mathutil.LookAt(eye, center, mathutil.Vec3{0, 1, 0})
	proj := mathutil.Perspective(60, aspect, 1, extentZ*6)
	buf.SetView(view, proj)

	buf.Reset()
	buf.AddTrianglesIndexed(mathutil.Mat4Identity(), occlusion.VertexView{
		Data:   verts,
		Stride: 3,
		Count:  len(verts) / 3,
	}, occlusion.IndexView{
		U32:   indices,
		Count: len(indices),
	})

	volume := mathutil.NewBBox(
		mathutil.Vec3{0, 0, 0},
		mathutil.Vec3{extentX, heightScale * 1.2, extentZ},
	)
	return volume, nil
}

// probeGrid queries a grid×grid×grid pattern of unit boxes spread over the
// world volume and counts the visible ones.
func probeGrid(buf *occlusion.Buffer, grid int, volume mathutil.BBox) (visible, total int) {
	span := volume.Max.Sub(volume.Min)
	for gz := 0; gz < grid; gz++ {
		for gy := 0; gy < grid; gy++ {
			for gx := 0; gx < grid; gx++ {
				c := volume.Min.Add(mathutil.Vec3{
					span[0] * (float64(gx) + 0.5) / float64(grid),
					span[1] * (float64(gy) + 0.5) / float64(grid),
					span[2] * (float64(gz) + 0.5) / float64(grid),
				})
				box := mathutil.NewBBox(
					c.Sub(mathutil.Vec3{0.5, 0.5, 0.5}),
					c.Add(mathutil.Vec3{0.5, 0.5, 0.5}),
				)
				if buf.IsVisible(box) {
					visible++
				}
				total++
			}
		}
	}
	return visible, total
}

func dumpBuffers(buf *occlusion.Buffer, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := occview.WriteWebP(filepath.Join(dir, "depth.webp"), occview.DepthImage(buf), 1); err != nil {
		return err
	}

	for level := 0; level < buf.ReadyMipLevels(); level++ {
		img, err := occview.MipImage(buf, level)
		if err != nil {
			return err
		}
		scale := 1 << uint(level+1)
		name := fmt.Sprintf("mip_%d.webp", level)
		if err := occview.WriteWebP(filepath.Join(dir, name), img, scale); err != nil {
			return err
		}
	}
	return nil
}
