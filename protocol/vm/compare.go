package vm

func opEqual(vm *virtualMachine) error {
	x, y, err := vm.pop2()
	if err != nil {
		return err
	}
	if x.tag != y.tag {
		return TypeMismatch(x.tag, y.tag)
	}

	vm.pushBool(x.Equal(y))
	return nil
}

func opNotEqual(vm *virtualMachine) error {
	x, y, err := vm.pop2()
	if err != nil {
		return err
	}
	if x.tag != y.tag {
		return TypeMismatch(x.tag, y.tag)
	}

	vm.pushBool(!x.Equal(y))
	return nil
}

// doOrdered pops two uint256 operands and pushes f(cmp(x, y)).
// Ordering is undefined for strings and addresses.
func doOrdered(vm *virtualMachine, f func(cmp int) bool) error {
	x, y, err := vm.pop2()
	if err != nil {
		return err
	}

	xn, err := x.AsUint()
	if err != nil {
		return err
	}
	yn, err := y.AsUint()
	if err != nil {
		return err
	}

	vm.pushBool(f(xn.Cmp(yn)))
	return nil
}

func opLessThan(vm *virtualMachine) error {
	return doOrdered(vm, func(cmp int) bool { return cmp < 0 })
}

func opGreaterThan(vm *virtualMachine) error {
	return doOrdered(vm, func(cmp int) bool { return cmp > 0 })
}

func opLessThanOrEqual(vm *virtualMachine) error {
	return doOrdered(vm, func(cmp int) bool { return cmp <= 0 })
}

func opGreaterThanOrEqual(vm *virtualMachine) error {
	return doOrdered(vm, func(cmp int) bool { return cmp >= 0 })
}
