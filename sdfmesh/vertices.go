package sdfmesh

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfeval"
)

// corner is a lattice point offset relative to a cell's origin.
type corner struct{ x, y, z int }

// cellEdges lists the 12 edges of a cell: 4 on the near Z face,
// 4 on the far Z face and the 4 edges joining them.
var cellEdges = [12][2]corner{
	{{0, 0, 0}, {0, 1, 0}},
	{{0, 1, 0}, {1, 1, 0}},
	{{1, 1, 0}, {1, 0, 0}},
	{{1, 0, 0}, {0, 0, 0}},

	{{0, 0, 1}, {0, 1, 1}},
	{{0, 1, 1}, {1, 1, 1}},
	{{1, 1, 1}, {1, 0, 1}},
	{{1, 0, 1}, {0, 0, 1}},

	{{0, 0, 0}, {0, 0, 1}},
	{{0, 1, 0}, {0, 1, 1}},
	{{1, 1, 0}, {1, 1, 1}},
	{{1, 0, 0}, {1, 0, 1}},
}

// buildChunkVertices samples the chunk lattice slice by slice along Z and
// appends one candidate vertex per cell with at least one edge crossing.
func buildChunkVertices(s *sdfeval.Sampler, c *chunk, res int, cellSize float32) {
	nslice := res * res
	if cap(c.slice0) < nslice {
		c.slice0 = make([]float32, nslice)
		c.slice1 = make([]float32, nslice)
	}
	slices := [2][]float32{c.slice0[:nslice], c.slice1[:nslice]}
	populateSlice(s, slices[1], c.corner, res, cellSize, 0)
	for z := 0; z < res-1; z++ {
		slices[0], slices[1] = slices[1], slices[0]
		populateSlice(s, slices[1], c.corner, res, cellSize, z+1)
		for y := 0; y < res-1; y++ {
			for x := 0; x < res-1; x++ {
				var sum ms3.Vec
				n := 0
				for _, edge := range cellEdges {
					a, b := edge[0], edge[1]
					d0 := slices[a.z][x+a.x+(y+a.y)*res]
					d1 := slices[b.z][x+b.x+(y+b.y)*res]
					t, ok := edgeCrossing(d0, d1)
					if !ok {
						continue
					}
					p0 := ms3.Vec{X: float32(x + a.x), Y: float32(y + a.y), Z: float32(z + a.z)}
					p1 := ms3.Vec{X: float32(x + b.x), Y: float32(y + b.y), Z: float32(z + b.z)}
					sum = ms3.Add(sum, ms3.InterpElem(p0, p1, ms3.Vec{X: t, Y: t, Z: t}))
					n++
				}
				if n == 0 {
					// Cell fully inside or outside.
					continue
				}
				local := ms3.Scale(cellSize/float32(n), sum)
				c.keys = append(c.keys, c.offset.Add(CellKey{X: int32(x), Y: int32(y), Z: int32(z)}))
				c.verts = append(c.verts, ms3.Add(local, c.corner))
			}
		}
	}
	c.slice0, c.slice1 = slices[0], slices[1]
}

// populateSlice fills slice with the field sampled on lattice plane z of a chunk.
func populateSlice(s *sdfeval.Sampler, slice []float32, chunkCorner ms3.Vec, res int, cellSize float32, z int) {
	idx := 0
	for y := 0; y < res; y++ {
		row := ms3.Add(chunkCorner, ms3.Vec{Y: float32(y) * cellSize, Z: float32(z) * cellSize})
		for x := 0; x < res; x += 4 {
			d := s.Sample4(
				ms3.Add(row, ms3.Vec{X: float32(x) * cellSize}),
				ms3.Add(row, ms3.Vec{X: float32(x+1) * cellSize}),
				ms3.Add(row, ms3.Vec{X: float32(x+2) * cellSize}),
				ms3.Add(row, ms3.Vec{X: float32(x+3) * cellSize}),
			)
			copy(slice[idx:idx+4], d[:])
			idx += 4
		}
	}
}

// edgeCrossing returns the interpolation parameter of the zero crossing
// between two samples. Equal samples have no crossing, which also excludes 0/0.
func edgeCrossing(d0, d1 float32) (t float32, ok bool) {
	if d0 == d1 {
		return 0, false
	}
	t = d0 / (d0 - d1)
	return t, t >= 0 && t <= 1
}
