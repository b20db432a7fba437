package vm

import (
	"encoding/binary"
)

func opVerify(vm *virtualMachine) error {
	ok, err := vm.popBool()
	if err != nil {
		return err
	}

	if ok {
		return nil
	}
	return ErrVerifyFailed
}

func opFail(vm *virtualMachine) error {
	return ErrFail
}

func opJump(vm *virtualMachine) error {
	address := binary.LittleEndian.Uint32(vm.data)
	vm.nextPC = address
	return nil
}

func opJumpIf(vm *virtualMachine) error {
	ok, err := vm.popBool()
	if err != nil {
		return err
	}

	if ok {
		vm.nextPC = binary.LittleEndian.Uint32(vm.data)
	}
	return nil
}

func opJumpIfNot(vm *virtualMachine) error {
	ok, err := vm.popBool()
	if err != nil {
		return err
	}

	if !ok {
		vm.nextPC = binary.LittleEndian.Uint32(vm.data)
	}
	return nil
}
