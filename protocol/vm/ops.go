package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

type Op uint8

func (op Op) String() string {
	if ops[op].name == "" {
		return fmt.Sprintf("UNKNOWN%02x", uint8(op))
	}
	return ops[op].name
}

// Family groups opcodes by the kind of work their handlers do.
type Family uint8

const (
	FamilyOther Family = iota
	FamilyComparison
	FamilyLogical
	FamilyBranching
)

func (f Family) String() string {
	switch f {
	case FamilyComparison:
		return "comparison"
	case FamilyLogical:
		return "logical"
	case FamilyBranching:
		return "branching"
	}
	return "other"
}

// Family returns the family op belongs to.
func (op Op) Family() Family {
	return ops[op].family
}

type Instruction struct {
	Op   Op
	Len  uint32
	Data []byte
}

const (
	OP_FALSE       Op = 0x00
	OP_TRUE        Op = 0x01
	OP_PUSHUINT    Op = 0x02
	OP_PUSHSTRING  Op = 0x03
	OP_PUSHADDRESS Op = 0x04
	OP_NOP         Op = 0x05

	OP_EQUAL              Op = 0x10
	OP_NOTEQUAL           Op = 0x11
	OP_LESSTHAN           Op = 0x12
	OP_GREATERTHAN        Op = 0x13
	OP_LESSTHANOREQUAL    Op = 0x14
	OP_GREATERTHANOREQUAL Op = 0x15

	OP_NOT Op = 0x20
	OP_AND Op = 0x21
	OP_OR  Op = 0x22
	OP_XOR Op = 0x23

	OP_JUMP      Op = 0x30
	OP_JUMPIF    Op = 0x31
	OP_JUMPIFNOT Op = 0x32
	OP_VERIFY    Op = 0x33
	OP_FAIL      Op = 0x34

	OP_SWAP  Op = 0x40
	OP_DUP   Op = 0x41
	OP_DROP  Op = 0x42
	OP_DEPTH Op = 0x43

	OP_LOADVAR  Op = 0x48
	OP_SETLOCAL Op = 0x49

	OP_ARRLEN     Op = 0x50
	OP_ARRGET     Op = 0x51
	OP_ARRPUSH    Op = 0x52
	OP_ARRDECLARE Op = 0x53
)

type opInfo struct {
	op     Op
	name   string
	family Family
	fn     func(*virtualMachine) error
}

var (
	ops = [256]opInfo{
		OP_FALSE:       {OP_FALSE, "FALSE", FamilyOther, opFalse},
		OP_TRUE:        {OP_TRUE, "TRUE", FamilyOther, opTrue},
		OP_PUSHUINT:    {OP_PUSHUINT, "PUSHUINT", FamilyOther, opPushUint},
		OP_PUSHSTRING:  {OP_PUSHSTRING, "PUSHSTRING", FamilyOther, opPushString},
		OP_PUSHADDRESS: {OP_PUSHADDRESS, "PUSHADDRESS", FamilyOther, opPushAddress},
		OP_NOP:         {OP_NOP, "NOP", FamilyOther, opNop},

		OP_EQUAL:              {OP_EQUAL, "EQUAL", FamilyComparison, opEqual},
		OP_NOTEQUAL:           {OP_NOTEQUAL, "NOTEQUAL", FamilyComparison, opNotEqual},
		OP_LESSTHAN:           {OP_LESSTHAN, "LESSTHAN", FamilyComparison, opLessThan},
		OP_GREATERTHAN:        {OP_GREATERTHAN, "GREATERTHAN", FamilyComparison, opGreaterThan},
		OP_LESSTHANOREQUAL:    {OP_LESSTHANOREQUAL, "LESSTHANOREQUAL", FamilyComparison, opLessThanOrEqual},
		OP_GREATERTHANOREQUAL: {OP_GREATERTHANOREQUAL, "GREATERTHANOREQUAL", FamilyComparison, opGreaterThanOrEqual},

		OP_NOT: {OP_NOT, "NOT", FamilyLogical, opNot},
		OP_AND: {OP_AND, "AND", FamilyLogical, opAnd},
		OP_OR:  {OP_OR, "OR", FamilyLogical, opOr},
		OP_XOR: {OP_XOR, "XOR", FamilyLogical, opXor},

		OP_JUMP:      {OP_JUMP, "JUMP", FamilyBranching, opJump},
		OP_JUMPIF:    {OP_JUMPIF, "JUMPIF", FamilyBranching, opJumpIf},
		OP_JUMPIFNOT: {OP_JUMPIFNOT, "JUMPIFNOT", FamilyBranching, opJumpIfNot},
		OP_VERIFY:    {OP_VERIFY, "VERIFY", FamilyBranching, opVerify},
		OP_FAIL:      {OP_FAIL, "FAIL", FamilyBranching, opFail},

		OP_SWAP:  {OP_SWAP, "SWAP", FamilyOther, opSwap},
		OP_DUP:   {OP_DUP, "DUP", FamilyOther, opDup},
		OP_DROP:  {OP_DROP, "DROP", FamilyOther, opDrop},
		OP_DEPTH: {OP_DEPTH, "DEPTH", FamilyOther, opDepth},

		OP_LOADVAR:  {OP_LOADVAR, "LOADVAR", FamilyOther, opLoadVar},
		OP_SETLOCAL: {OP_SETLOCAL, "SETLOCAL", FamilyOther, opSetLocal},

		OP_ARRLEN:     {OP_ARRLEN, "ARRLEN", FamilyOther, opArrLen},
		OP_ARRGET:     {OP_ARRGET, "ARRGET", FamilyOther, opArrGet},
		OP_ARRPUSH:    {OP_ARRPUSH, "ARRPUSH", FamilyOther, opArrPush},
		OP_ARRDECLARE: {OP_ARRDECLARE, "ARRDECLARE", FamilyOther, opArrDeclare},
	}

	opsByName map[string]opInfo

	// hasData marks ops followed by a uint16 length and that many data bytes.
	hasData [256]bool

	// isJump marks ops followed by a uint32 target address.
	isJump [256]bool
)

// ParseOp parses the op at position pc in prog, returning the parsed
// instruction (opcode plus any associated data).
func ParseOp(prog []byte, pc uint32) (inst Instruction, err error) {
	if len(prog) > math.MaxInt32 {
		return inst, ErrRange
	}
	l := uint64(len(prog))
	if uint64(pc) >= l {
		return inst, ErrShortProgram
	}

	opcode := Op(prog[pc])
	inst.Op = opcode
	inst.Len = 1
	switch {
	case ops[opcode].fn == nil:
		return inst, ErrUnknownOpcode
	case hasData[opcode]:
		if uint64(pc)+3 > l {
			return inst, ErrShortProgram
		}
		n := binary.LittleEndian.Uint16(prog[pc+1 : pc+3])
		end := uint64(pc) + 3 + uint64(n)
		if end > l {
			return inst, ErrShortProgram
		}
		inst.Len += 2 + uint32(n)
		inst.Data = prog[pc+3 : end]
	case isJump[opcode]:
		end := uint64(pc) + 5
		if end > l {
			return inst, ErrShortProgram
		}
		inst.Len += 4
		inst.Data = prog[pc+1 : end]
	}
	return inst, nil
}

func ParseProgram(prog []byte) ([]Instruction, error) {
	var result []Instruction
	for pc := uint32(0); pc < uint32(len(prog)); { // update pc inside the loop
		inst, err := ParseOp(prog, pc)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
		pc += inst.Len
	}
	return result, nil
}

func init() {
	for _, op := range []Op{OP_PUSHUINT, OP_PUSHSTRING, OP_PUSHADDRESS, OP_LOADVAR, OP_SETLOCAL, OP_ARRLEN, OP_ARRGET, OP_ARRPUSH, OP_ARRDECLARE} {
		hasData[op] = true
	}
	for _, op := range []Op{OP_JUMP, OP_JUMPIF, OP_JUMPIFNOT} {
		isJump[op] = true
	}

	opsByName = make(map[string]opInfo)
	for _, info := range ops {
		if info.fn == nil {
			continue
		}
		opsByName[info.name] = info
	}
}
