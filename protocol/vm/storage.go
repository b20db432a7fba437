package vm

import (
	"encoding/binary"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

func opLoadVar(vm *virtualMachine) error {
	name := string(vm.data)
	v, ok := vm.context.lookup(name)
	if !ok {
		return errors.WithDetailf(ErrUndefinedVariable, "%q", name)
	}

	vm.push(v)
	return nil
}

func opSetLocal(vm *virtualMachine) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}

	vm.context.Locals[string(vm.data)] = v
	return nil
}

func (vm *virtualMachine) arrays() (ArrayStorage, error) {
	if vm.context.Arrays == nil {
		return nil, errors.WithDetail(ErrUnexpected, "no array storage bound to context")
	}
	return vm.context.Arrays, nil
}

func opArrLen(vm *virtualMachine) error {
	arrays, err := vm.arrays()
	if err != nil {
		return err
	}

	n, err := arrays.Len(string(vm.data))
	if err != nil {
		return err
	}

	vm.push(NewUint64(n))
	return nil
}

func opArrGet(vm *virtualMachine) error {
	if len(vm.data) < 8 {
		return ErrBadValue
	}
	arrays, err := vm.arrays()
	if err != nil {
		return err
	}

	index := binary.BigEndian.Uint64(vm.data[:8])
	v, err := arrays.Element(string(vm.data[8:]), index)
	if err != nil {
		return err
	}

	vm.push(v)
	return nil
}

func opArrPush(vm *virtualMachine) error {
	arrays, err := vm.arrays()
	if err != nil {
		return err
	}

	v, err := vm.pop()
	if err != nil {
		return err
	}
	return arrays.Append(string(vm.data), v)
}

// opArrDeclare's data is one element-type byte followed by the array name.
func opArrDeclare(vm *virtualMachine) error {
	if len(vm.data) < 1 {
		return ErrBadValue
	}
	arrays, err := vm.arrays()
	if err != nil {
		return err
	}

	elemType := Tag(vm.data[0])
	if elemType == TagNone || elemType > TagArray {
		return ErrBadValue
	}
	return arrays.Declare(string(vm.data[1:]), elemType)
}

// ArrGetData encodes the data of an ARRGET instruction.
func ArrGetData(name string, index uint64) []byte {
	data := make([]byte, 8, 8+len(name))
	binary.BigEndian.PutUint64(data, index)
	return append(data, name...)
}
