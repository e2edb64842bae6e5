package sdfbuild

import (
	"errors"
	"fmt"
	"strconv"
)

// Node is an element of an SDF operator tree that can be lowered to bytecode.
type Node interface {
	// Category determines how many children the node must have and
	// how the compiler lowers it.
	Category() Category
	// ForEachChild iterates over the node's direct children in evaluation order.
	// Shapes have no children. Unary and domain nodes have one child.
	// Binary nodes have two, commutative nodes two or more.
	ForEachChild(userData any, fn func(userData any, n *Node) error) error
	// Instruction returns the instruction the node emits. Domain nodes return
	// the push instruction; the matching pop is emitted by the compiler.
	Instruction() Instruction
	// AppendNodeName appends a human readable name of the node to b.
	AppendNodeName(b []byte) []byte
}

// StructureError reports a node whose children do not match its category's arity.
type StructureError struct {
	// Node is the name of the offending node as reported by [Node.AppendNodeName].
	Node     string
	Category Category
	Expected int
	// AtLeast is set when Expected is a lower bound.
	AtLeast bool
	Actual  int
	// NilChild is the index of a nil child or -1.
	NilChild int
}

func (e *StructureError) Error() string {
	if e.NilChild >= 0 {
		return fmt.Sprintf("%s node %s: nil child at index %d", e.Category, e.Node, e.NilChild)
	}
	qualifier := ""
	if e.AtLeast {
		qualifier = "at least "
	}
	return fmt.Sprintf("%s node %s has %d children, expected %s%d", e.Category, e.Node, e.Actual, qualifier, e.Expected)
}

var (
	errNilRoot      = errors.New("nil root node")
	ErrKindMismatch = errors.New("instruction kind does not match node category")
)

func nodeName(n Node) string {
	return string(n.AppendNodeName(make([]byte, 0, 32)))
}

// validateNode checks arity, nil children and the emitted instruction of a single node.
func validateNode(n Node) error {
	cat := n.Category()
	want, atLeast := cat.Arity()
	if want < 0 {
		return fmt.Errorf("node %s: invalid category %s", nodeName(n), cat)
	}
	k := n.Instruction().Kind
	if _, err := EncodeOpcode(k); err != nil {
		return fmt.Errorf("node %s: %w", nodeName(n), err)
	}
	kcat := k.Category()
	// Commutative kinds may be used by a strictly binary node.
	okKind := kcat == cat || (cat == CategoryBinary && kcat == CategoryCommutative)
	if !okKind || k == KindPopPosition {
		return fmt.Errorf("node %s: %w: %s node emits %s", nodeName(n), ErrKindMismatch, cat, k)
	}
	nilChild := -1
	got := 0
	n.ForEachChild(nil, func(_ any, child *Node) error {
		if nilChild < 0 && (child == nil || *child == nil) {
			nilChild = got
		}
		got++
		return nil
	})
	if nilChild >= 0 || got < want || (!atLeast && got != want) {
		return &StructureError{
			Node:     nodeName(n),
			Category: cat,
			Expected: want,
			AtLeast:  atLeast,
			Actual:   got,
			NilChild: nilChild,
		}
	}
	return nil
}

// forEachNodeDFS walks the tree depth first calling fnEnter before visiting
// a node's children and fnExit after.
func forEachNodeDFS(n Node, fnEnter, fnExit func(n Node) error) (err error) {
	err = fnEnter(n)
	if err != nil {
		return err
	}
	err = n.ForEachChild(nil, func(_ any, child *Node) error {
		return forEachNodeDFS(*child, fnEnter, fnExit)
	})
	if err != nil {
		return err
	}
	return fnExit(n)
}

// ForEachNode calls fn for every node in the tree in depth first preorder.
// Stops and returns the first error returned by fn.
func ForEachNode(root Node, fn func(n Node) error) error {
	if root == nil {
		return errNilRoot
	}
	return forEachNodeDFS(root, fn, func(Node) error { return nil })
}

func countDirectChildren(n Node) (directChildren int) {
	n.ForEachChild(nil, func(_ any, _ *Node) error {
		directChildren++
		return nil
	})
	return directChildren
}

// XYZBits is a mask selecting any combination of the X, Y and Z axes.
type XYZBits uint8

const (
	xBit XYZBits = 1 << iota
	yBit
	zBit
)

func (xyz XYZBits) X() bool { return xyz&xBit != 0 }
func (xyz XYZBits) Y() bool { return xyz&yBit != 0 }
func (xyz XYZBits) Z() bool { return xyz&zBit != 0 }

func NewXYZBits(x, y, z bool) XYZBits {
	return XYZBits(b2i(x) | b2i(y)<<1 | b2i(z)<<2)
}

// AppendMapped appends the characters of Map whose axis is enabled.
func (xyz XYZBits) AppendMapped(b []byte, Map [3]byte) []byte {
	if xyz.X() {
		b = append(b, Map[0])
	}
	if xyz.Y() {
		b = append(b, Map[1])
	}
	if xyz.Z() {
		b = append(b, Map[2])
	}
	return b
}

func (xyz XYZBits) AppendMapped_xyz(b []byte) []byte {
	return xyz.AppendMapped(b, [3]byte{'x', 'y', 'z'})
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AppendFloat appends v in its shortest representation.
func AppendFloat(b []byte, v float32) []byte {
	return strconv.AppendFloat(b, float64(v), 'g', -1, 32)
}

// AppendFloats appends all values separated by sep.
func AppendFloats(b []byte, sep byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
