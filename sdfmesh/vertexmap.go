package sdfmesh

// CellKey is the lattice coordinate of a grid cell. Keys are global: a chunk's
// local cell coordinates are offset by the chunk's cell offset.
type CellKey struct {
	X, Y, Z int32
}

// Add returns the component-wise sum of k and other.
func (k CellKey) Add(other CellKey) CellKey {
	return CellKey{X: k.X + other.X, Y: k.Y + other.Y, Z: k.Z + other.Z}
}

// VertexMap maps cell keys to global vertex indices. Each chunk owns the map
// of its own disjoint key range, so chunks fill their maps concurrently
// without synchronization and lookups route by key range without a merge step.
type VertexMap struct {
	chunks []map[CellKey]uint32
	// span is the number of cells along a chunk axis.
	span int32
	// side is the number of chunks along X and Z.
	side int32
}

func (vm *VertexMap) reset(side, span int) {
	n := side * side
	if cap(vm.chunks) < n {
		vm.chunks = make([]map[CellKey]uint32, n)
	}
	vm.chunks = vm.chunks[:n]
	for i := range vm.chunks {
		if vm.chunks[i] == nil {
			vm.chunks[i] = make(map[CellKey]uint32)
		} else {
			clear(vm.chunks[i])
		}
	}
	vm.side = int32(side)
	vm.span = int32(span)
}

// owner returns the index of the chunk whose key range contains k or -1.
func (vm *VertexMap) owner(k CellKey) int {
	if k.X < 0 || k.Y < 0 || k.Z < 0 || k.Y >= vm.span {
		return -1
	}
	dx, dz := k.X/vm.span, k.Z/vm.span
	if dx >= vm.side || dz >= vm.side {
		return -1
	}
	return int(dx*vm.side + dz)
}

// Lookup returns the vertex index of the cell at k.
func (vm *VertexMap) Lookup(k CellKey) (idx uint32, ok bool) {
	c := vm.owner(k)
	if c < 0 {
		return 0, false
	}
	idx, ok = vm.chunks[c][k]
	return idx, ok
}

// Len returns the number of keys in the map.
func (vm *VertexMap) Len() (n int) {
	for _, m := range vm.chunks {
		n += len(m)
	}
	return n
}
