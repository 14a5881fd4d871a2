package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Config holds the demo tool's buffer and scene settings.
type Config struct {
	// Occlusion buffer dimensions; width must be a power of two
	Width  int `json:"width"`
	Height int `json:"height"`

	// Worker goroutines servicing the task queue
	Workers int `json:"workers"`

	// Probe boxes per axis in the visibility query grid
	Grid int `json:"grid"`

	// Optional TGA/PNG heightfield used as occluder terrain
	Heightmap string `json:"heightmap"`

	// Where depth/mip dumps are written
	OutputDir string `json:"output_dir"`

	// Dump the depth buffer and mip levels as WebP images
	DumpDepth bool `json:"dump_depth"`
}

// Load reads a JSON config file. Fields not set in the file keep their zero
// values until Resolve fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Width     int
	Height    int
	Workers   int
	Grid      int
	Heightmap string
	OutputDir string
	DumpDepth bool
}

// Resolve applies CLI overrides and fills remaining fields with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Grid > 0 {
		c.Grid = flags.Grid
	}
	if flags.Heightmap != "" {
		c.Heightmap = flags.Heightmap
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.DumpDepth {
		c.DumpDepth = true
	}

	if c.Width <= 0 {
		c.Width = 256
	}
	if c.Height <= 0 {
		c.Height = 128
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Grid <= 0 {
		c.Grid = 16
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
}
