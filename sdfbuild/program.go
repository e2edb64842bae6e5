package sdfbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Program is a compiled SDF: a sequence of encoded instruction records along
// with the number of instructions and the peak operand stack depth needed to
// run it. Records have no length prefix; each is sized by its opcode.
// A Program is immutable and safe for concurrent use.
type Program struct {
	code   []byte
	ninstr int
	peak   int
}

// Bytes returns the encoded instruction buffer. It must not be modified.
func (p *Program) Bytes() []byte { return p.code }

// InstructionCount returns the number of instructions in the program.
func (p *Program) InstructionCount() int { return p.ninstr }

// PeakStackDepth returns the largest operand stack height reached while
// running the program, in slots. A slot holds one distance, or four when sampling
// four positions at once.
func (p *Program) PeakStackDepth() int { return p.peak }

// AppendInstructions decodes the program and appends its instructions to dst.
func (p *Program) AppendInstructions(dst []Instruction) ([]Instruction, error) {
	code := p.code
	for len(code) > 0 {
		ins, n, err := DecodeInstruction(code)
		if err != nil {
			return dst, err
		}
		dst = append(dst, ins)
		code = code[n:]
	}
	return dst, nil
}

// Disassemble writes a listing of the program with one instruction per line:
// byte offset, opcode, kind name and payload.
func (p *Program) Disassemble(w io.Writer) (int, error) {
	b := make([]byte, 0, 256)
	b = append(b, "; instructions="...)
	b = strconv.AppendInt(b, int64(p.ninstr), 10)
	b = append(b, " peak="...)
	b = strconv.AppendInt(b, int64(p.peak), 10)
	b = append(b, " bytes="...)
	b = strconv.AppendInt(b, int64(len(p.code)), 10)
	b = append(b, '\n')
	ntot, err := w.Write(b)
	if err != nil {
		return ntot, err
	}
	off := 0
	for off < len(p.code) {
		ins, size, err := DecodeInstruction(p.code[off:])
		if err != nil {
			return ntot, fmt.Errorf("offset %d: %w", off, err)
		}
		b = b[:0]
		b = strconv.AppendInt(b, int64(off), 10)
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(p.code[off]), 10)
		b = append(b, ' ')
		b = append(b, ins.Kind.String()...)
		if args := ins.Payload(); len(args) > 0 {
			b = append(b, ' ')
			b = AppendFloats(b, ' ', args...)
		}
		b = append(b, '\n')
		n, err := w.Write(b)
		ntot += n
		if err != nil {
			return ntot, err
		}
		off += size
	}
	return ntot, nil
}

var programMagic = [4]byte{'S', 'D', 'F', 'B'}

const programHeaderSize = 16

// MaxProgramSize is the largest code section [ReadProgram] accepts, in bytes.
const MaxProgramSize = 64 << 20

// WriteTo writes the program in a portable container: a 16 byte little endian
// header (magic, instruction count, peak depth, code length) followed by the code.
// Payload floats are written in native byte order.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var hdr [programHeaderSize]byte
	copy(hdr[:4], programMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(p.ninstr))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(p.peak))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(len(p.code)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	n2, err := w.Write(p.code)
	return int64(n + n2), err
}

var errBadMagic = errors.New("not a compiled SDF program")

// ReadProgram reads a program written by [Program.WriteTo]. The code is fully
// decoded and the header counts are checked against it.
func ReadProgram(r io.Reader) (*Program, error) {
	var hdr [programHeaderSize]byte
	_, err := io.ReadFull(r, hdr[:])
	if err != nil {
		return nil, fmt.Errorf("reading program header: %w", err)
	}
	if [4]byte(hdr[:4]) != programMagic {
		return nil, errBadMagic
	}
	ninstr := int(binary.LittleEndian.Uint32(hdr[4:]))
	peak := int(binary.LittleEndian.Uint32(hdr[8:]))
	size := int64(binary.LittleEndian.Uint32(hdr[12:]))
	if size > MaxProgramSize {
		return nil, fmt.Errorf("program code of %d bytes exceeds limit of %d", size, MaxProgramSize)
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("reading program code: %w", err)
	} else if n != size {
		return nil, fmt.Errorf("reading program code: %w", io.ErrUnexpectedEOF)
	}
	prog := &Program{code: buf.Bytes(), ninstr: ninstr, peak: peak}
	instrs, err := prog.AppendInstructions(nil)
	if err != nil {
		return nil, err
	}
	if len(instrs) != ninstr {
		return nil, fmt.Errorf("header declares %d instructions, decoded %d", ninstr, len(instrs))
	}
	for i := range instrs {
		if err := instrs[i].Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	gotPeak, err := checkStack(instrs)
	if err != nil {
		return nil, err
	} else if gotPeak != peak {
		return nil, fmt.Errorf("header declares peak stack depth %d, program needs %d", peak, gotPeak)
	}
	return prog, nil
}

// checkStack is the non-panicking version of peakStackDepth for programs of external origin.
func checkStack(instrs []Instruction) (peak int, err error) {
	height := 0
	var pushes []int // Stack heights at domain pushes.
	for i := range instrs {
		k := instrs[i].Kind
		switch {
		case k == KindPopPosition:
			// Saved position must be right below a single distance.
			if len(pushes) == 0 || height != pushes[len(pushes)-1]+4 {
				return 0, fmt.Errorf("unbalanced position pop at instruction %d", i)
			}
			pushes = pushes[:len(pushes)-1]
		case k.Category() == CategoryDomain:
			pushes = append(pushes, height)
		}
		height += instrs[i].StackDelta()
		if height < 0 {
			return 0, fmt.Errorf("stack underflow at instruction %d (%s)", i, k)
		}
		peak = max(peak, height)
	}
	if height != 1 {
		return 0, fmt.Errorf("program leaves %d values on the stack, want 1", height)
	}
	return peak, nil
}
