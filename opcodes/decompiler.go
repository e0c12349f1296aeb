package opcodes

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEmptyBytecode is an error that indicates the absence of bytecode.
var ErrEmptyBytecode = errors.New("bytecode is not set or empty bytecode provided")

// Decompiler decompiles bytecode into opcode instructions.
// The bytecode to be decompiled can be set using the SetBytecode() method.
// Decompiling is performed by the Decompile() method. The results can be
// obtained using GetInstructions() and String().
type Decompiler struct {
	ctx          context.Context
	bytecode     []byte
	bytecodeSize uint64
	instructions []Instruction
}

// Instruction represents an opcode instruction. It contains the offset for
// the instruction, the opcode itself and the arguments for the opcode, if
// any.
type Instruction struct {
	Offset int
	OpCode OpCode
	Args   []byte
}

// NewDecompiler creates a new Decompiler instance with the provided context
// and bytecode. The bytecode is not automatically decompiled; Decompile()
// must be called before any information can be retrieved from the
// decompiler.
func NewDecompiler(ctx context.Context, b []byte) *Decompiler {
	return &Decompiler{
		ctx:          ctx,
		bytecode:     b,
		bytecodeSize: uint64(len(b)),
		instructions: []Instruction{},
	}
}

// SetBytecode sets the bytecode that the decompiler should work on. It also
// updates the bytecode size.
func (d *Decompiler) SetBytecode(b []byte) {
	d.bytecode = b
	d.bytecodeSize = uint64(len(b))
}

// GetBytecode returns the bytecode that the decompiler is working on.
func (d *Decompiler) GetBytecode() []byte {
	return d.bytecode
}

// GetBytecodeSize returns the size of the bytecode that the decompiler is
// working on.
func (d *Decompiler) GetBytecodeSize() uint64 {
	return d.bytecodeSize
}

// Decompile decompiles the bytecode into opcode instructions. This must be
// called before any information can be retrieved from the decompiler. It
// returns an error if the bytecode is empty.
func (d *Decompiler) Decompile() error {
	if d.bytecodeSize < 1 {
		return ErrEmptyBytecode
	}

	offset := 0
	for offset < len(d.bytecode) {
		op := OpCode(d.bytecode[offset])
		instruction := Instruction{
			Offset: offset,
			OpCode: op,
			Args:   []byte{},
		}

		if op.IsPush() {
			argSize := int(op) - int(PUSH1) + 1
			if offset+argSize >= len(d.bytecode) {
				break
			}
			instruction.Args = d.bytecode[offset+1 : offset+argSize+1]
			offset += argSize
		}

		d.instructions = append(d.instructions, instruction)
		offset++
	}
	return nil
}

// GetInstructions returns the decompiled opcode instructions.
func (d *Decompiler) GetInstructions() []Instruction {
	return d.instructions
}

// GetJumpDestinations returns every JUMPDEST instruction in the decompiled
// stream.
func (d *Decompiler) GetJumpDestinations() []Instruction {
	var dests []Instruction
	for _, instruction := range d.instructions {
		if instruction.OpCode == JUMPDEST {
			dests = append(dests, instruction)
		}
	}
	return dests
}

// String returns a string representation of the decompiled bytecode as a
// sequence of mnemonics.
func (d *Decompiler) String() string {
	var buf bytes.Buffer

	for _, instr := range d.instructions {
		buf.WriteString(fmt.Sprintf("0x%04x %s", instr.Offset, instr.OpCode.String()))
		if len(instr.Args) > 0 {
			buf.WriteString(" " + common.Bytes2Hex(instr.Args))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}
