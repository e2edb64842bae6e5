package sdfmesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfeval"
)

// Mesher extracts triangle meshes from compiled SDF programs. The lattice is
// split into chunks processed concurrently: every cell with a sign change on
// any of its 12 edges gets one vertex at the mean of its edge crossings, and
// each group of 4 cells around a lattice edge is joined into a quad.
//
// A Mesher is not safe for concurrent use.
type Mesher struct {
	cfg    Config
	chunks []chunk
	vmap   VertexMap
	// Number of vertices of each chunk and their offsets in the global vertex slice.
	counts, offsets []int
}

// chunk holds the per-chunk state of a build. Chunks share no mutable state.
type chunk struct {
	corner ms3.Vec
	offset CellKey
	// Two Z slices of Resolution×Resolution samples indexed by x+y*Resolution.
	slice0, slice1 []float32
	// Candidate vertices, keys[i] is the cell of verts[i].
	keys  []CellKey
	verts []ms3.Vec
	tris  [][3]uint32
}

// NewMesher returns a Mesher for builds with the given configuration.
func NewMesher(cfg Config) (*Mesher, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid mesher config: %w", err)
	}
	return &Mesher{cfg: cfg}, nil
}

// Config returns the configuration of the Mesher.
func (m *Mesher) Config() Config { return m.cfg }

// VertexMap returns the cell to vertex index map of the last build. It is
// only available when the Mesher retains its scratch buffers and is
// overwritten by the next build.
func (m *Mesher) VertexMap() *VertexMap {
	if m.cfg.Scratch != ScratchRetain || m.vmap.chunks == nil {
		return nil
	}
	return &m.vmap
}

// Build meshes the field computed by prog. Phases run one after the other with
// a barrier in between: vertex building, offset computation, vertex copy with
// map filling, triangulation and assembly. ctx is checked between phases.
func (m *Mesher) Build(ctx context.Context, prog *sdfbuild.Program) (*Mesh, error) {
	if prog == nil {
		return nil, fmt.Errorf("nil program")
	}
	cfg := m.cfg
	m.resetChunks()
	nw := cfg.workers()
	samplers := make([]*sdfeval.Sampler, nw)
	samplers[0] = sdfeval.NewSampler(prog)
	for i := 1; i < nw; i++ {
		samplers[i] = samplers[0].Clone()
	}

	m.forEachChunk(samplers, func(s *sdfeval.Sampler, c *chunk) {
		buildChunkVertices(s, c, cfg.Resolution, cfg.CellSize)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := m.computeOffsets()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mesh := &Mesh{Vertices: make([]ms3.Vec, total)}
	m.vmap.reset(cfg.Chunks, cfg.Resolution-1)
	var wg sync.WaitGroup
	sem := make(chan struct{}, nw)
	for i := range m.chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			c := &m.chunks[i]
			base := m.offsets[i]
			copy(mesh.Vertices[base:], c.verts)
			local := m.vmap.chunks[i]
			for j, key := range c.keys {
				local[key] = uint32(base + j)
			}
		}(i)
	}
	wg.Wait()
	if m.vmap.Len() != total {
		panic(fmt.Sprintf("vertex map holds %d keys, counted %d vertices", m.vmap.Len(), total))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.forEachChunk(samplers, func(s *sdfeval.Sampler, c *chunk) {
		c.tris = triangulateChunk(c.tris[:0], s, &m.vmap, c.keys, cfg.Origin, cfg.CellSize, cfg.RequireEdgeCrossing)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ntri := 0
	for i := range m.chunks {
		ntri += len(m.chunks[i].tris)
	}
	mesh.Indices = make([]uint32, 0, 3*ntri)
	for i := range m.chunks {
		for _, tri := range m.chunks[i].tris {
			mesh.Indices = append(mesh.Indices, tri[0], tri[1], tri[2])
		}
	}
	if cfg.Scratch == ScratchRelease {
		m.chunks = nil
		m.vmap = VertexMap{}
		m.counts, m.offsets = nil, nil
	}
	return mesh, nil
}

func (m *Mesher) resetChunks() {
	cfg := m.cfg
	n := cfg.numChunks()
	if len(m.chunks) != n {
		m.chunks = make([]chunk, n)
	}
	size := cfg.ChunkSize()
	span := int32(cfg.Resolution - 1)
	i := 0
	for dx := 0; dx < cfg.Chunks; dx++ {
		for dz := 0; dz < cfg.Chunks; dz++ {
			c := &m.chunks[i]
			c.corner = ms3.Add(cfg.Origin, ms3.Vec{X: float32(dx) * size, Z: float32(dz) * size})
			c.offset = CellKey{X: int32(dx) * span, Z: int32(dz) * span}
			c.keys = c.keys[:0]
			c.verts = c.verts[:0]
			c.tris = c.tris[:0]
			i++
		}
	}
}

// forEachChunk calls fn for every chunk using one goroutine per sampler.
// Blocks until all chunks are processed.
func (m *Mesher) forEachChunk(samplers []*sdfeval.Sampler, fn func(s *sdfeval.Sampler, c *chunk)) {
	next := make(chan int, len(m.chunks))
	for i := range m.chunks {
		next <- i
	}
	close(next)
	var wg sync.WaitGroup
	for _, s := range samplers {
		wg.Add(1)
		go func(s *sdfeval.Sampler) {
			defer wg.Done()
			for i := range next {
				fn(s, &m.chunks[i])
			}
		}(s)
	}
	wg.Wait()
}

// computeOffsets stores per-chunk vertex counts and their exclusive prefix sum.
// Returns the total number of vertices.
func (m *Mesher) computeOffsets() (total int) {
	n := len(m.chunks)
	if cap(m.counts) < n {
		m.counts = make([]int, n)
		m.offsets = make([]int, n)
	}
	m.counts, m.offsets = m.counts[:n], m.offsets[:n]
	for i := range m.chunks {
		m.counts[i] = len(m.chunks[i].verts)
	}
	return prefixSum(m.offsets, m.counts)
}

func prefixSum(dst, counts []int) (sum int) {
	for i, c := range counts {
		dst[i] = sum
		sum += c
	}
	return sum
}
