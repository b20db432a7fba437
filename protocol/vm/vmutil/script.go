package vmutil

import (
	"encoding/binary"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

// AllOfProgram joins condition programs into one program that leaves
// TRUE on the stack iff every condition leaves a true value. Evaluation
// stops at the first false condition. Jumps inside the conditions are
// relocated to their new position.
//
//	<cond1> JUMPIFNOT:$fail <cond2> JUMPIFNOT:$fail ... TRUE JUMP:$end $fail FALSE $end
func AllOfProgram(conds [][]byte) ([]byte, error) {
	b := NewBuilder()
	fail := b.NewJumpTarget()
	end := b.NewJumpTarget()

	for i, cond := range conds {
		relocated, err := Relocate(cond, uint32(b.Len()))
		if err != nil {
			return nil, errors.Wrapf(err, "condition %d", i)
		}
		b.AddRawBytes(relocated)
		b.AddJumpIfNot(fail)
	}

	b.AddOp(vm.OP_TRUE)
	b.AddJump(end)
	b.SetJumpTarget(fail)
	b.AddOp(vm.OP_FALSE)
	b.SetJumpTarget(end)
	return b.Build()
}

// Relocate returns a copy of prog whose jump targets are shifted by offset,
// for placing prog at that offset inside a larger program.
func Relocate(prog []byte, offset uint32) ([]byte, error) {
	insts, err := vm.ParseProgram(prog)
	if err != nil {
		return nil, err
	}

	res := append([]byte(nil), prog...)
	var pc uint32
	for _, inst := range insts {
		if inst.Op == vm.OP_JUMP || inst.Op == vm.OP_JUMPIF || inst.Op == vm.OP_JUMPIFNOT {
			addr := binary.LittleEndian.Uint32(inst.Data)
			binary.LittleEndian.PutUint32(res[pc+1:pc+5], addr+offset)
		}
		pc += inst.Len
	}
	return res, nil
}
