package sdfbuild

import (
	"fmt"

	"honnef.co/go/safeish"
)

// Compiler lowers node trees into [Program]s. A Compiler reuses its scratch
// buffers between compilations and is not safe for concurrent use.
type Compiler struct {
	instrs []Instruction
}

// NewCompiler returns a Compiler ready to use.
func NewCompiler() *Compiler {
	return &Compiler{instrs: make([]Instruction, 0, 64)}
}

// Compile lowers the tree rooted at root into a new Program.
func Compile(root Node) (*Program, error) {
	var c Compiler
	return c.Compile(root)
}

// Compile validates the whole tree and lowers it in postorder into a
// Program. A structural problem anywhere in the tree fails the compilation
// with a [*StructureError] and no program is returned.
func (c *Compiler) Compile(root Node) (*Program, error) {
	if root == nil {
		return nil, errNilRoot
	}
	err := forEachNodeDFS(root, validateNode, func(Node) error { return nil })
	if err != nil {
		return nil, err
	}
	c.instrs, err = AppendInstructions(c.instrs[:0], root)
	if err != nil {
		return nil, err
	}
	instrs := c.instrs

	count := len(instrs)
	peak := peakStackDepth(instrs)
	size := 0
	for i := range instrs {
		size += instrs[i].EncodedSize()
	}
	code := make([]byte, 0, size)
	for i := range instrs {
		code, err = AppendEncoded(code, instrs[i])
		if err != nil {
			return nil, err
		}
	}
	if len(code) != size {
		panic(fmt.Sprintf("encoded %d bytes, sized %d", len(code), size))
	}
	return &Program{code: code, ninstr: count, peak: peak}, nil
}

// AppendInstructions appends the lowered instruction sequence of the tree
// rooted at root to dst. The tree is not validated.
func AppendInstructions(dst []Instruction, root Node) ([]Instruction, error) {
	enter := func(n Node) error {
		if n.Category() == CategoryDomain {
			dst = append(dst, n.Instruction())
		}
		return nil
	}
	exit := func(n Node) error {
		switch n.Category() {
		case CategoryShape, CategoryUnary, CategoryBinary:
			dst = append(dst, n.Instruction())
		case CategoryCommutative:
			// N children leave N distances on the stack, each instruction consumes one.
			ins := n.Instruction()
			for i := countDirectChildren(n) - 1; i > 0; i-- {
				dst = append(dst, ins)
			}
		case CategoryDomain:
			dst = append(dst, Instruction{Kind: KindPopPosition})
		default:
			return fmt.Errorf("node %s: invalid category %s", nodeName(n), n.Category())
		}
		return nil
	}
	err := forEachNodeDFS(root, enter, exit)
	return dst, err
}

// peakStackDepth simulates the 4-wide operand stack over instrs and returns
// the maximum height reached, in 4-wide slots.
func peakStackDepth(instrs []Instruction) int {
	height, peak := 0, 0
	for i := range instrs {
		height += instrs[i].StackDelta4x()
		if height < 0 {
			panic(fmt.Sprintf("stack underflow at instruction %d (%s)", i, instrs[i].Kind))
		}
		peak = max(peak, height)
	}
	if height != 4 {
		panic(fmt.Sprintf("program leaves %d words on the 4-wide stack, want 4", height))
	}
	return peak / 4
}

// AppendEncoded appends the encoded record of ins to dst:
// one opcode byte, three padding bytes and the float32 payload in native byte order.
func AppendEncoded(dst []byte, ins Instruction) ([]byte, error) {
	op, err := EncodeOpcode(ins.Kind)
	if err != nil {
		return dst, err
	}
	dst = append(dst, byte(op), 0, 0, 0)
	if n := ins.Kind.NumArgs(); n > 0 {
		dst = append(dst, safeish.SliceCast[[]byte](ins.Args[:n])...)
	}
	return dst, nil
}

// DecodeInstruction decodes the record at the start of code and returns it
// along with its encoded size.
func DecodeInstruction(code []byte) (ins Instruction, size int, err error) {
	if len(code) < recordHeader {
		return ins, 0, fmt.Errorf("short instruction record: %d bytes", len(code))
	}
	k, ok := DecodeOpcode(Opcode(code[0]))
	if !ok {
		return ins, 0, fmt.Errorf("invalid opcode %d", code[0])
	}
	n := k.NumArgs()
	size = recordHeader + 4*n
	if len(code) < size {
		return ins, 0, fmt.Errorf("%s record needs %d bytes, got %d", k, size, len(code))
	}
	ins.Kind = k
	if n > 0 {
		copy(ins.Args[:n], safeish.SliceCast[[]float32](code[recordHeader:size]))
	}
	return ins, size, nil
}
