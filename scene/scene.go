// Package scene loads solids described in YAML files and turns them into
// operator trees ready for compilation.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/soypat/geometry/ms3"
	"gopkg.in/yaml.v3"
)

// Vec3 is a position or direction written as a 3 element YAML sequence.
type Vec3 [3]float32

// IsZero reports whether all components are zero. Zero vectors are omitted when encoding.
func (v Vec3) IsZero() bool { return v == Vec3{} }

// Vec returns v as a vector.
func (v Vec3) Vec() ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Scene is a solid together with the region it is meshed and sliced in.
type Scene struct {
	// Name identifies the scene in logs and output files.
	Name string `yaml:"name"`

	// Description is free form text ignored by the loader.
	Description string `yaml:"description,omitempty"`

	// Bounds is the region that contains the solid.
	Bounds Bounds `yaml:"bounds"`

	// CellSize is the mesher lattice spacing. Optional, callers may override it.
	CellSize float32 `yaml:"cell_size,omitempty"`

	// Root is the top of the operator tree.
	Root Node `yaml:"root"`
}

// Bounds is an axis aligned box.
type Bounds struct {
	Min Vec3 `yaml:"min"`
	Max Vec3 `yaml:"max"`
}

// Box returns the bounds as a geometry box.
func (b Bounds) Box() ms3.Box {
	return ms3.Box{Min: b.Min.Vec(), Max: b.Max.Vec()}
}

// Node describes one operator of the tree. Op selects the operator; which of
// the remaining fields are read depends on it. See [Ops] for the list of
// operators and their parameters.
type Node struct {
	// Op is the operator name, e.g. "sphere" or "union".
	Op string `yaml:"op"`

	// Center of sphere.
	Center Vec3 `yaml:"center,omitempty"`

	// Radius of round shapes and of seam blends (chamfer, round, columns, stairs, engrave, pipe).
	Radius float32 `yaml:"radius,omitempty"`

	// RadiusB is the second radius of groove and tongue.
	RadiusB float32 `yaml:"radius_b,omitempty"`

	// Height of cone and cylinder.
	Height float32 `yaml:"height,omitempty"`

	// Extents are the half sizes of box.
	Extents Vec3 `yaml:"extents,omitempty"`

	// From and To are the capsule segment ends.
	From Vec3 `yaml:"from,omitempty"`
	To   Vec3 `yaml:"to,omitempty"`

	// Normal and Distance define plane.
	Normal   Vec3    `yaml:"normal,omitempty"`
	Distance float32 `yaml:"distance,omitempty"`

	// Minor and Major are the torus tube and ring radii.
	Minor float32 `yaml:"minor,omitempty"`
	Major float32 `yaml:"major,omitempty"`

	// Amount is the offset distance and the smooth union blend factor.
	Amount float32 `yaml:"amount,omitempty"`

	// Count is the number of columns or stairs.
	Count int `yaml:"count,omitempty"`

	// Cell is the repetition cell size of repeat and mod.
	Cell float32 `yaml:"cell,omitempty"`

	// Axes selects axes by name: one of "x", "y", "z" for rotate45,
	// any combination such as "xz" for mod.
	Axes string `yaml:"axes,omitempty"`

	// Transform places box, cone, cylinder and torus.
	Transform *Transform `yaml:"transform,omitempty"`

	// Children are the operands of unary, binary and domain operators.
	Children []Node `yaml:"children,omitempty"`
}

// Transform is a rigid placement: a rotation about the origin followed by a translation.
type Transform struct {
	Translate     Vec3    `yaml:"translate,omitempty"`
	RotateAxis    Vec3    `yaml:"rotate_axis,omitempty"`
	RotateDegrees float32 `yaml:"rotate_degrees,omitempty"`
}

// Load reads and parses a scene YAML file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a scene from r. Unknown fields are rejected.
func Parse(r io.Reader) (*Scene, error) {
	var s Scene
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return &s, nil
}

// Encode writes s as YAML.
func (s *Scene) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks required fields are present. Operator parameters are
// checked when the scene is built.
func (s *Scene) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Root.Op == "" {
		return errors.New("root operator is required")
	}
	sz := s.Bounds.Box().Size()
	if !(sz.X > 0 && sz.Y > 0 && sz.Z > 0) {
		return fmt.Errorf("bounds max %v must exceed min %v on every axis", s.Bounds.Max, s.Bounds.Min)
	}
	if s.CellSize < 0 {
		return fmt.Errorf("negative cell size %v", s.CellSize)
	}
	return nil
}
