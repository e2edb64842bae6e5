package sdfmesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // Normal, 3 vertices and attribute count.
)

// WriteBinarySTL writes triangles to w in binary STL format and returns the number of bytes written.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (int, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	var hdr [stlHeaderSize + 4]byte
	copy(hdr[:], "gsdfvm binary STL")
	binary.LittleEndian.PutUint32(hdr[stlHeaderSize:], uint32(len(triangles)))
	n, err := bw.Write(hdr[:])
	if err != nil {
		return n, err
	}
	var rec [stlTriangleSize]byte
	for _, t := range triangles {
		normal := triangleNormal(t)
		putVec(rec[0:], normal)
		putVec(rec[12:], t[0])
		putVec(rec[24:], t[1])
		putVec(rec[36:], t[2])
		ntri, err := bw.Write(rec[:])
		n += ntri
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadBinarySTL reads all triangles of a binary STL file.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var hdr [stlHeaderSize + 4]byte
	_, err := io.ReadFull(br, hdr[:])
	if err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(hdr[stlHeaderSize:])
	triangles := make([]ms3.Triangle, 0, count)
	var rec [stlTriangleSize]byte
	for i := uint32(0); i < count; i++ {
		_, err = io.ReadFull(br, rec[:])
		if err != nil {
			return triangles, fmt.Errorf("reading STL triangle %d: %w", i, err)
		}
		triangles = append(triangles, ms3.Triangle{getVec(rec[12:]), getVec(rec[24:]), getVec(rec[36:])})
	}
	return triangles, nil
}

// WriteOBJ writes the mesh in Wavefront OBJ text format.
func WriteOBJ(w io.Writer, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	b := make([]byte, 0, 64)
	for _, v := range m.Vertices {
		b = append(b[:0], 'v', ' ')
		b = strconv.AppendFloat(b, float64(v.X), 'g', -1, 32)
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(v.Y), 'g', -1, 32)
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(v.Z), 'g', -1, 32)
		b = append(b, '\n')
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}
	for i := 0; i < len(m.Indices); i += 3 {
		// OBJ indices are 1-based.
		b = append(b[:0], 'f', ' ')
		b = strconv.AppendUint(b, uint64(m.Indices[i])+1, 10)
		b = append(b, ' ')
		b = strconv.AppendUint(b, uint64(m.Indices[i+1])+1, 10)
		b = append(b, ' ')
		b = strconv.AppendUint(b, uint64(m.Indices[i+2])+1, 10)
		b = append(b, '\n')
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePLY writes the mesh in binary little endian PLY format with float
// vertex positions and triangle faces.
func WritePLY(w io.Writer, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, 64*1024)
	_, err := fmt.Fprintf(bw, "ply\nformat binary_little_endian 1.0\nelement vertex %d\n"+
		"property float x\nproperty float y\nproperty float z\n"+
		"element face %d\nproperty list uchar uint vertex_indices\nend_header\n",
		len(m.Vertices), m.TriangleCount())
	if err != nil {
		return err
	}
	var vbuf [12]byte
	for _, v := range m.Vertices {
		putVec(vbuf[:], v)
		if _, err = bw.Write(vbuf[:]); err != nil {
			return err
		}
	}
	var fbuf [13]byte
	fbuf[0] = 3
	for i := 0; i < len(m.Indices); i += 3 {
		binary.LittleEndian.PutUint32(fbuf[1:], m.Indices[i])
		binary.LittleEndian.PutUint32(fbuf[5:], m.Indices[i+1])
		binary.LittleEndian.PutUint32(fbuf[9:], m.Indices[i+2])
		if _, err = bw.Write(fbuf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// triangleNormal returns the unit normal of t following the right hand rule.
// Degenerate triangles get a zero normal.
func triangleNormal(t ms3.Triangle) ms3.Vec {
	n := t.Normal()
	l := ms3.Norm(n)
	if l == 0 || math32.IsNaN(l) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, n)
}

func putVec(b []byte, v ms3.Vec) {
	binary.LittleEndian.PutUint32(b[0:], math32.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math32.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math32.Float32bits(v.Z))
}

func getVec(b []byte) ms3.Vec {
	return ms3.Vec{
		X: math32.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math32.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math32.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}
