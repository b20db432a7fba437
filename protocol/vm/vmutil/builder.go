package vmutil

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

var ErrUnresolvedJump = errors.New("unresolved jump target")

type Builder struct {
	program     []byte
	jumpCounter int

	// Maps a jump target number to its absolute address.
	jumpAddr map[int]uint32

	// Maps a jump target number to the list of places where its
	// absolute address must be filled in once known.
	jumpPlaceholders map[int][]int
}

func NewBuilder() *Builder {
	return &Builder{
		jumpAddr:         make(map[int]uint32),
		jumpPlaceholders: make(map[int][]int),
	}
}

// AddUint adds the shortest instruction pushing n.
func (b *Builder) AddUint(n *uint256.Int) *Builder {
	// at most 32 bytes of data, always encodable
	inst, _ := vm.PushValue(vm.NewUint(n))
	b.program = append(b.program, inst...)
	return b
}

// AddUint64 adds the shortest instruction pushing n.
func (b *Builder) AddUint64(n uint64) *Builder {
	return b.AddUint(new(uint256.Int).SetUint64(n))
}

// AddValue adds an instruction pushing v. It fails with vm.ErrRange when
// v does not fit in one instruction; the program is left unchanged.
func (b *Builder) AddValue(v vm.StackValue) error {
	inst, err := vm.PushValue(v)
	if err != nil {
		return err
	}
	b.program = append(b.program, inst...)
	return nil
}

// AddOpData adds a data-carrying opcode with its operand. It fails with
// vm.ErrRange when data is longer than vm.MaxDataLen; the program is left
// unchanged.
func (b *Builder) AddOpData(op vm.Op, data []byte) error {
	inst, err := vm.PushDataOp(op, data)
	if err != nil {
		return err
	}
	b.program = append(b.program, inst...)
	return nil
}

// AddRawBytes simply appends the given bytes to the program.
func (b *Builder) AddRawBytes(data []byte) *Builder {
	b.program = append(b.program, data...)
	return b
}

// AddOp adds the given opcode to the program.
func (b *Builder) AddOp(op vm.Op) *Builder {
	b.program = append(b.program, byte(op))
	return b
}

// NewJumpTarget allocates a number that can be used as a jump target
// in AddJump, AddJumpIf and AddJumpIfNot. Call SetJumpTarget to associate
// the number with a program location.
func (b *Builder) NewJumpTarget() int {
	b.jumpCounter++
	return b.jumpCounter
}

func (b *Builder) AddJump(target int) *Builder {
	return b.addJump(vm.OP_JUMP, target)
}

func (b *Builder) AddJumpIf(target int) *Builder {
	return b.addJump(vm.OP_JUMPIF, target)
}

func (b *Builder) AddJumpIfNot(target int) *Builder {
	return b.addJump(vm.OP_JUMPIFNOT, target)
}

func (b *Builder) addJump(op vm.Op, target int) *Builder {
	b.AddOp(op)
	b.jumpPlaceholders[target] = append(b.jumpPlaceholders[target], len(b.program))
	b.AddRawBytes([]byte{0, 0, 0, 0})
	return b
}

// SetJumpTarget associates the given jump-target number with the
// current position in the program, so that the next instruction added is
// where jumps using the target land. Setting a target at the end of the
// program makes jumps to it fall off the end.
func (b *Builder) SetJumpTarget(target int) *Builder {
	b.jumpAddr[target] = uint32(len(b.program))
	return b
}

// Len returns the current program length.
func (b *Builder) Len() int {
	return len(b.program)
}

// Build resolves jumps and produces the bytecode of the program. Every
// target used by a jump must have been set with SetJumpTarget.
func (b *Builder) Build() ([]byte, error) {
	for target, placeholders := range b.jumpPlaceholders {
		addr, ok := b.jumpAddr[target]
		if !ok {
			return nil, errors.Wrapf(ErrUnresolvedJump, "target %d", target)
		}
		for _, placeholder := range placeholders {
			binary.LittleEndian.PutUint32(b.program[placeholder:placeholder+4], addr)
		}
	}
	return b.program, nil
}
