package gsdfvm

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfeval"
)

const (
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization or transformation matrix determinants.
	epstol = 6e-7
)

// Flags modify the behavior of a [Builder].
type Flags uint64

const (
	// FlagNoDimensionPanic makes the Builder accumulate parameter errors
	// instead of panicking. Errors are available through [Builder.Err].
	FlagNoDimensionPanic Flags = 1 << iota
)

// Builder wraps all SDF primitive and operation logic generation.
// Provides error handling strategies with panics or error accumulation during shape generation.
// Nodes returned by a Builder are immutable.
type Builder struct {
	flags     Flags
	accumErrs []error
}

func (bld *Builder) Flags() Flags { return bld.flags }

func (bld *Builder) SetFlags(flags Flags) { bld.flags = flags }

// Err returns all accumulated parameter errors joined, or nil.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated errors.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if bld.flags&FlagNoDimensionPanic == 0 {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (bld *Builder) nilsdf(op string, i int) {
	bld.shapeErrorf("nil argument %d to %s", i, op)
}

// checkTransform reports singular local transforms.
func (bld *Builder) checkTransform(shape string, toLocal ms3.Mat4) {
	if math32.Abs(toLocal.Determinant()) < epstol {
		bld.shapeErrorf("singular %s transform", shape)
	}
}

// NewEvaluator returns an [sdfeval.SDF3] that evaluates the tree rooted at
// root directly, without compiling it. All nodes built by [Builder] support
// direct evaluation. Useful as a reference for compiled programs.
func NewEvaluator(root sdfbuild.Node) (*sdfeval.TreeSDF3, error) {
	return sdfeval.NewTreeSDF3(root)
}

func appendVec(b []byte, v ms3.Vec) []byte {
	return sdfbuild.AppendFloats(b, ',', v.X, v.Y, v.Z)
}
