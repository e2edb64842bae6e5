package sdfmesh_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfmesh"
)

func oneTriangle() *sdfmesh.Mesh {
	return &sdfmesh.Mesh{
		Vertices: []ms3.Vec{{}, {X: 1}, {Y: 1, Z: 0.5}},
		Indices:  []uint32{0, 1, 2},
	}
}

func TestBinarySTLRoundTrip(t *testing.T) {
	prog := sphereProgram(t)
	_, mesh := build(t, sphereConfig(), prog)
	tris := mesh.Triangles(nil)
	var buf bytes.Buffer
	n, err := sdfmesh.WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() || n != 84+50*len(tris) {
		t.Fatalf("wrote %d bytes, buffer has %d, want %d", n, buf.Len(), 84+50*len(tris))
	}
	got, err := sdfmesh.ReadBinarySTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(tris) {
		t.Fatalf("read %d triangles, want %d", len(got), len(tris))
	}
	for i := range tris {
		if got[i] != tris[i] {
			t.Fatalf("triangle %d: got %v, want %v", i, got[i], tris[i])
		}
	}
}

func TestBinarySTLNormals(t *testing.T) {
	tris := []ms3.Triangle{
		{{}, {X: 2}, {Y: 3}},
		{{}, {Y: 3}, {X: 2}},
		{{}, {X: 1}, {X: 2}}, // Degenerate.
	}
	var buf bytes.Buffer
	_, err := sdfmesh.WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	for i, want := range []ms3.Vec{{Z: 1}, {Z: -1}, {}} {
		rec := data[84+50*i:]
		got := ms3.Vec{
			X: math32.Float32frombits(binary.LittleEndian.Uint32(rec[0:])),
			Y: math32.Float32frombits(binary.LittleEndian.Uint32(rec[4:])),
			Z: math32.Float32frombits(binary.LittleEndian.Uint32(rec[8:])),
		}
		if ms3.Norm(ms3.Sub(got, want)) > 1e-6 {
			t.Errorf("triangle %d normal: got %v, want %v", i, got, want)
		}
	}
}

func TestReadBinarySTLTruncated(t *testing.T) {
	var buf bytes.Buffer
	_, err := sdfmesh.WriteBinarySTL(&buf, oneTriangle().Triangles(nil))
	if err != nil {
		t.Fatal(err)
	}
	_, err = sdfmesh.ReadBinarySTL(bytes.NewReader(buf.Bytes()[:buf.Len()-10]))
	if err == nil {
		t.Error("expected error reading truncated STL")
	}
	_, err = sdfmesh.ReadBinarySTL(strings.NewReader("solid"))
	if err == nil {
		t.Error("expected error reading short header")
	}
}

func TestWriteOBJ(t *testing.T) {
	var buf bytes.Buffer
	err := sdfmesh.WriteOBJ(&buf, oneTriangle())
	if err != nil {
		t.Fatal(err)
	}
	const want = "v 0 0 0\nv 1 0 0\nv 0 1 0.5\nf 1 2 3\n"
	if buf.String() != want {
		t.Errorf("got OBJ\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWritePLY(t *testing.T) {
	var buf bytes.Buffer
	err := sdfmesh.WritePLY(&buf, oneTriangle())
	if err != nil {
		t.Fatal(err)
	}
	header, body, ok := strings.Cut(buf.String(), "end_header\n")
	if !ok {
		t.Fatal("missing PLY header terminator")
	}
	if !strings.HasPrefix(header, "ply\nformat binary_little_endian 1.0\nelement vertex 3\n") {
		t.Errorf("unexpected header %q", header)
	}
	if !strings.Contains(header, "element face 1\n") {
		t.Errorf("header lacks face count: %q", header)
	}
	if len(body) != 3*12+13 {
		t.Errorf("body is %d bytes, want %d", len(body), 3*12+13)
	}
}

func TestWriteInvalidMesh(t *testing.T) {
	bad := []*sdfmesh.Mesh{
		{Vertices: []ms3.Vec{{}}, Indices: []uint32{0, 0}},
		{Vertices: []ms3.Vec{{}, {}}, Indices: []uint32{0, 1, 2}},
	}
	for i, m := range bad {
		if err := m.Validate(); err == nil {
			t.Errorf("mesh %d: expected validation error", i)
		}
		if err := sdfmesh.WriteOBJ(&bytes.Buffer{}, m); err == nil {
			t.Errorf("mesh %d: expected OBJ error", i)
		}
		if err := sdfmesh.WritePLY(&bytes.Buffer{}, m); err == nil {
			t.Errorf("mesh %d: expected PLY error", i)
		}
	}
}
