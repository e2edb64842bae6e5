package sdfmesh

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfeval"
)

// Mesh is an indexed triangle mesh. Every 3 consecutive Indices form a triangle.
type Mesh struct {
	Vertices []ms3.Vec
	Indices  []uint32
}

// TriangleCount returns the number of triangles of the mesh.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Validate checks the index buffer is made of whole triangles that reference existing vertices.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("index %d references vertex %d of %d", i, idx, len(m.Vertices))
		}
	}
	return nil
}

// Triangles appends the triangles of the mesh to dst and returns the result.
func (m *Mesh) Triangles(dst []ms3.Triangle) []ms3.Triangle {
	v := m.Vertices
	for i := 0; i+2 < len(m.Indices); i += 3 {
		dst = append(dst, ms3.Triangle{v[m.Indices[i]], v[m.Indices[i+1]], v[m.Indices[i+2]]})
	}
	return dst
}

// Normals computes unit vertex normals as the central difference gradient of sdf.
// userData must contain a [sdfeval.VecPool].
func (m *Mesh) Normals(sdf sdfeval.SDF3, step float32, userData any) ([]ms3.Vec, error) {
	if len(m.Vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}
	normals := make([]ms3.Vec, len(m.Vertices))
	err := sdfeval.NormalsCentralDiff(sdf, m.Vertices, normals, step, userData)
	if err != nil {
		return nil, err
	}
	for i, n := range normals {
		if ms3.Norm(n) > 0 {
			normals[i] = ms3.Unit(n)
		}
	}
	return normals, nil
}
