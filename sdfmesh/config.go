package sdfmesh

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/soypat/geometry/ms3"
	"golang.org/x/exp/constraints"
)

// ScratchPolicy decides what a [Mesher] does with its per-chunk buffers after a build.
type ScratchPolicy uint8

const (
	// ScratchRetain keeps buffers for the next build. Repeated builds of the
	// same configuration then allocate little besides the output mesh.
	ScratchRetain ScratchPolicy = iota
	// ScratchRelease drops all buffers once the mesh is assembled.
	ScratchRelease
)

func (sp ScratchPolicy) String() string {
	switch sp {
	case ScratchRetain:
		return "retain"
	case ScratchRelease:
		return "release"
	}
	return fmt.Sprintf("ScratchPolicy(%d)", uint8(sp))
}

// Config configures a mesh build. The meshed region is a lattice of
// Chunks×1×Chunks cubic chunks starting at Origin. Each chunk is sampled on
// Resolution³ lattice points spaced CellSize apart. Neighboring chunks share
// their boundary lattice planes.
type Config struct {
	// Resolution is the number of samples along each axis of a chunk.
	// Must be a multiple of 4 since rows are sampled 4 positions at a time.
	Resolution int
	// CellSize is the lattice spacing in world units.
	CellSize float32
	// Chunks is the number of chunks along X and Z.
	Chunks int
	// Origin is the world position of the first lattice point.
	Origin ms3.Vec
	// Workers bounds the number of goroutines used. Zero means runtime.NumCPU().
	Workers int
	// Scratch selects whether buffers are kept between builds.
	Scratch ScratchPolicy
	// RequireEdgeCrossing skips quads whose shared lattice edge shows no sign change.
	RequireEdgeCrossing bool
}

var errZeroCellSize = errors.New("cell size must be positive")

// Validate returns an error describing the first invalid field of cfg.
func (cfg Config) Validate() error {
	switch {
	case cfg.Resolution < 4:
		return fmt.Errorf("resolution %d too small, need at least 4", cfg.Resolution)
	case cfg.Resolution%4 != 0:
		return fmt.Errorf("resolution %d not a multiple of 4, try %d", cfg.Resolution, RoundResolution(cfg.Resolution))
	case !(cfg.CellSize > 0): // Catches NaN.
		return errZeroCellSize
	case cfg.Chunks < 1:
		return fmt.Errorf("need at least one chunk, got %d", cfg.Chunks)
	case cfg.Workers < 0:
		return fmt.Errorf("negative worker count %d", cfg.Workers)
	case cfg.Scratch > ScratchRelease:
		return fmt.Errorf("invalid scratch policy %s", cfg.Scratch)
	}
	return nil
}

// ChunkSize returns the side length of a chunk in world units.
func (cfg Config) ChunkSize() float32 {
	return float32(cfg.Resolution-1) * cfg.CellSize
}

// Bounds returns the box covered by all chunks.
func (cfg Config) Bounds() ms3.Box {
	sz := cfg.ChunkSize()
	wide := float32(cfg.Chunks) * sz
	return ms3.Box{
		Min: cfg.Origin,
		Max: ms3.Add(cfg.Origin, ms3.Vec{X: wide, Y: sz, Z: wide}),
	}
}

func (cfg Config) numChunks() int { return cfg.Chunks * cfg.Chunks }

func (cfg Config) workers() int {
	w := cfg.Workers
	if w == 0 {
		w = runtime.NumCPU()
	}
	return min(w, cfg.numChunks())
}

// RoundResolution rounds r up to the nearest valid resolution.
func RoundResolution(r int) int {
	return max(4, nextMultipleOf(r, 4))
}

// ConfigForBox returns a configuration whose chunks cover box with lattice
// spacing cellSize. Resolution is chosen so a chunk spans the box height;
// the number of chunks is then picked to cover the widest horizontal side.
func ConfigForBox(box ms3.Box, cellSize float32) (Config, error) {
	if !(cellSize > 0) {
		return Config{}, errZeroCellSize
	}
	sz := box.Size()
	cellsY := int(sz.Y/cellSize) + 1
	res := RoundResolution(cellsY + 1)
	chunkSize := float32(res-1) * cellSize
	chunks := int(max(sz.X, sz.Z)/chunkSize) + 1
	cfg := Config{
		Resolution: res,
		CellSize:   cellSize,
		Chunks:     chunks,
		Origin:     box.Min,
	}
	return cfg, cfg.Validate()
}

func nextMultipleOf[T constraints.Integer](x, y T) T {
	r := x % y
	if r == 0 {
		return x
	}
	return x + y - r
}
