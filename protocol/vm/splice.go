package vm

func opSwap(vm *virtualMachine) error {
	x, y, err := vm.pop2()
	if err != nil {
		return err
	}

	vm.push(y)
	vm.push(x)
	return nil
}

func opDup(vm *virtualMachine) error {
	v, err := vm.context.Stack.Peek()
	if err != nil {
		return err
	}

	vm.push(v)
	return nil
}

func opDrop(vm *virtualMachine) error {
	_, err := vm.pop()
	return err
}

func opDepth(vm *virtualMachine) error {
	vm.push(NewUint64(uint64(vm.context.Stack.Len())))
	return nil
}
