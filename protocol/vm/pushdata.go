package vm

import (
	"encoding/binary"
	"math"

	"github.com/holiman/uint256"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

// MaxDataLen is the largest operand a data-carrying instruction can hold.
const MaxDataLen = math.MaxUint16

func opFalse(vm *virtualMachine) error {
	vm.pushBool(false)
	return nil
}

func opTrue(vm *virtualMachine) error {
	vm.pushBool(true)
	return nil
}

func opPushUint(vm *virtualMachine) error {
	if len(vm.data) > 32 {
		return ErrBadValue
	}
	vm.push(NewUint(new(uint256.Int).SetBytes(vm.data)))
	return nil
}

func opPushString(vm *virtualMachine) error {
	vm.push(NewString(string(vm.data)))
	return nil
}

func opPushAddress(vm *virtualMachine) error {
	if len(vm.data) != AddressLength {
		return ErrBadValue
	}
	var a Address
	copy(a[:], vm.data)
	vm.push(NewAddress(a))
	return nil
}

func opNop(vm *virtualMachine) error {
	return nil
}

// PushDataOp encodes op followed by its length-prefixed data. Data longer
// than MaxDataLen fails with ErrRange.
func PushDataOp(op Op, data []byte) ([]byte, error) {
	if len(data) > MaxDataLen {
		return nil, errors.WithDetailf(ErrRange, "operand of %d bytes, limit %d", len(data), MaxDataLen)
	}

	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(data)))
	res := make([]byte, 0, 3+len(data))
	res = append(res, byte(op), l[0], l[1])
	return append(res, data...), nil
}

// PushValue encodes the instruction that pushes v.
func PushValue(v StackValue) ([]byte, error) {
	switch v.tag {
	case TagUint256:
		if v.u.IsZero() {
			return []byte{byte(OP_FALSE)}, nil
		}
		if v.u.IsUint64() && v.u.Uint64() == 1 {
			return []byte{byte(OP_TRUE)}, nil
		}
		return PushDataOp(OP_PUSHUINT, uintBytes(&v.u))
	case TagString:
		return PushDataOp(OP_PUSHSTRING, []byte(v.s))
	case TagAddress:
		return PushDataOp(OP_PUSHADDRESS, v.addr[:])
	}
	return nil, errors.WithDetailf(ErrBadValue, "cannot push %s", v.tag)
}
