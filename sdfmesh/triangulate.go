package sdfmesh

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfeval"
)

var (
	unitX = CellKey{X: 1}
	unitY = CellKey{Y: 1}
	unitZ = CellKey{Z: 1}
)

// quadDirections are the (dirA, dirB, normal) triples along which quads are
// built from a cell and its neighbors.
var quadDirections = [3][3]CellKey{
	{unitX, unitY, unitZ},
	{unitZ, unitX, unitY},
	{unitY, unitZ, unitX},
}

// triangulateChunk appends the triangles of the quads anchored at every key of
// a chunk. A quad needs all 4 cells around the shared lattice edge to have a
// vertex. Winding is picked from the sign of the field at the edge start so
// that triangles face outwards.
func triangulateChunk(dst [][3]uint32, s *sdfeval.Sampler, vm *VertexMap, keys []CellKey, origin ms3.Vec, cellSize float32, requireCrossing bool) [][3]uint32 {
	for _, cell00 := range keys {
		for _, dirs := range quadDirections {
			dirA, dirB, normal := dirs[0], dirs[1], dirs[2]
			cell01 := cell00.Add(dirA)
			cell10 := cell00.Add(dirB)
			cell11 := cell01.Add(dirB)
			i00, ok := vm.Lookup(cell00)
			if !ok {
				continue
			}
			i01, ok := vm.Lookup(cell01)
			if !ok {
				continue
			}
			i10, ok := vm.Lookup(cell10)
			if !ok {
				continue
			}
			i11, ok := vm.Lookup(cell11)
			if !ok {
				continue
			}
			d := s.Sample(latticePoint(origin, cellSize, cell11))
			inside := d < 0
			if requireCrossing {
				dEnd := s.Sample(latticePoint(origin, cellSize, cell11.Add(normal)))
				if inside == (dEnd < 0) {
					continue
				}
			}
			if inside {
				dst = append(dst, [3]uint32{i00, i01, i11}, [3]uint32{i00, i11, i10})
			} else {
				dst = append(dst, [3]uint32{i01, i00, i11}, [3]uint32{i11, i00, i10})
			}
		}
	}
	return dst
}

func latticePoint(origin ms3.Vec, cellSize float32, k CellKey) ms3.Vec {
	return ms3.Add(origin, ms3.Vec{
		X: float32(k.X) * cellSize,
		Y: float32(k.Y) * cellSize,
		Z: float32(k.Z) * cellSize,
	})
}
