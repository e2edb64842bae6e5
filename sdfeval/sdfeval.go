// Package sdfeval evaluates signed distance fields on the CPU, either by
// running compiled bytecode programs with a [Sampler] or by walking a node
// tree directly with [TreeSDF3].
package sdfeval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
)

// SDF3 implements a 3D signed distance field in vectorized form.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// NormalsCentralDiff uses central differences algorithm for normal calculation, which are stored in normals for each position.
// The returned normals are not normalized (converted to unit length).
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	step *= 0.5
	if step <= 0 {
		return errors.New("invalid step")
	} else if len(pos) != len(normals) {
		return errors.New("length of position must match length of normals")
	} else if s == nil {
		return errors.New("nil SDF3")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	vp, err := GetVecPool(userData)
	if err != nil {
		return fmt.Errorf("VecPool required for normal calculation: %w", err)
	}
	d1 := vp.Float.Acquire(len(pos))
	d2 := vp.Float.Acquire(len(pos))
	auxPos := vp.V3.Acquire(len(pos))
	defer vp.Float.Release(d1)
	defer vp.Float.Release(d2)
	defer vp.V3.Release(auxPos)
	var vecs = [3]ms3.Vec{{X: step}, {Y: step}, {Z: step}}
	for dim := 0; dim < 3; dim++ {
		h := vecs[dim]
		for i, p := range pos {
			auxPos[i] = ms3.Add(p, h)
		}
		err = s.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms3.Sub(p, h)
		}
		err = s.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}

		switch dim {
		case 0:
			for i, d := range d1 {
				normals[i].X = d - d2[i]
			}
		case 1:
			for i, d := range d1 {
				normals[i].Y = d - d2[i]
			}
		case 2:
			for i, d := range d1 {
				normals[i].Z = d - d2[i]
			}
		}
	}
	return nil
}

// TreeSDF3 evaluates a node tree directly by recursive evaluation of its nodes
// without compiling it. Every node in the tree must implement [SDF3].
// It is slower than a [Sampler] and serves as a reference for it.
type TreeSDF3 struct {
	root  SDF3
	vp    VecPool
	evals uint64
}

// NewTreeSDF3 checks that all nodes of the tree can be evaluated and returns a TreeSDF3.
func NewTreeSDF3(root sdfbuild.Node) (*TreeSDF3, error) {
	err := sdfbuild.ForEachNode(root, func(n sdfbuild.Node) error {
		if _, ok := n.(SDF3); !ok {
			return fmt.Errorf("node %T does not implement SDF3", n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TreeSDF3{root: root.(SDF3)}, nil
}

// Evaluate implements [SDF3]. If userData holds no [VecPool] the TreeSDF3's own pool is used.
func (t *TreeSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if _, err := GetVecPool(userData); err != nil {
		userData = &t.vp
	}
	err := t.root.Evaluate(pos, dist, userData)
	if err != nil {
		return err
	}
	t.evals += uint64(len(pos))
	return nil
}

// VecPool returns the TreeSDF3's own buffer pool.
func (t *TreeSDF3) VecPool() *VecPool { return &t.vp }

// Evaluations returns the number of positions evaluated so far.
func (t *TreeSDF3) Evaluations() uint64 { return t.evals }

// EvaluateNode evaluates a single node of a tree, which must implement [SDF3].
// Used by node implementations to evaluate their children.
func EvaluateNode(n sdfbuild.Node, pos []ms3.Vec, dist []float32, userData any) error {
	sdf, ok := n.(SDF3)
	if !ok {
		return fmt.Errorf("node %T does not implement SDF3", n)
	}
	return sdf.Evaluate(pos, dist, userData)
}
