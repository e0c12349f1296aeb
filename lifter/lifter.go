// Package lifter adapts real EVM bytecode into the instr.Instruction stream
// the cfg/dataflow core consumes. cfg and dataflow never import this
// package, and it imports neither of them: it depends only on instr and
// opcodes.
//
// Labels are the instruction's hex byte offset within the bytecode (e.g.
// "0x001b"), since EVM instructions have no symbolic names of their own.
package lifter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/txpull/flowcore/instr"
	"github.com/txpull/flowcore/opcodes"
)

// Lift decompiles bytecode and rewrites it as a labeled instruction stream
// suitable for cfg.Build.
//
// Jump targets are resolved using the common compiler-generated pattern of a
// constant PUSH immediately preceding the JUMP/JUMPI that consumes it. This
// is a static approximation: a computed jump target (the destination popped
// from the stack does not come from a directly preceding PUSH) cannot be
// resolved at this level and is conservatively lowered to an Other
// instruction with no target, rather than guessed at. Closing that gap needs
// the full EVM symbolic-stack analysis this package intentionally omits.
func Lift(ctx context.Context, bytecode []byte) ([]instr.Instruction, error) {
	d := opcodes.NewDecompiler(ctx, bytecode)
	if err := d.Decompile(); err != nil {
		return nil, fmt.Errorf("lifter: decompiling bytecode: %w", err)
	}

	raw := d.GetInstructions()
	out := make([]instr.Instruction, 0, len(raw))

	for i, in := range raw {
		lowered := instr.Instruction{
			Label: label(in.Offset),
			Kind:  instr.Assignment,
		}

		switch {
		case in.OpCode == opcodes.JUMP || in.OpCode == opcodes.JUMPI:
			if target, ok := resolveTarget(raw, i); ok {
				lowered.Target = label(target)
				if in.OpCode == opcodes.JUMP {
					lowered.Kind = instr.UnconditionalBranch
				} else {
					lowered.Kind = instr.ConditionalBranch
				}
			} else {
				lowered.Kind = instr.Other
			}
		case in.OpCode.IsHalt():
			lowered.Kind = instr.Return
		default:
			lowered.Kind = instr.Assignment
		}

		out = append(out, lowered)
	}

	zap.L().Debug("lifter: lowered bytecode", zap.Int("bytes", len(bytecode)), zap.Int("instructions", len(out)))

	return out, nil
}

// resolveTarget looks at the instruction immediately preceding raw[i] (the
// JUMP/JUMPI at index i) and, if it is a PUSH, interprets its argument bytes
// as the jump destination offset.
func resolveTarget(raw []opcodes.Instruction, i int) (int, bool) {
	if i == 0 {
		return 0, false
	}
	prev := raw[i-1]
	if !prev.OpCode.IsPush() || len(prev.Args) == 0 {
		return 0, false
	}

	target := 0
	for _, b := range prev.Args {
		target = target<<8 | int(b)
	}

	for _, candidate := range raw {
		if candidate.Offset == target {
			return target, true
		}
	}
	return 0, false
}

func label(offset int) string {
	return fmt.Sprintf("0x%04x", offset)
}
