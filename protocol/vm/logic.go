package vm

func opNot(vm *virtualMachine) error {
	b, err := vm.popBool()
	if err != nil {
		return err
	}

	vm.pushBool(!b)
	return nil
}

// doBool pops two boolean operands; both are always evaluated.
func doBool(vm *virtualMachine, f func(x, y bool) bool) error {
	x, y, err := vm.pop2()
	if err != nil {
		return err
	}

	xb, err := x.AsBool()
	if err != nil {
		return err
	}
	yb, err := y.AsBool()
	if err != nil {
		return err
	}

	vm.pushBool(f(xb, yb))
	return nil
}

func opAnd(vm *virtualMachine) error {
	return doBool(vm, func(x, y bool) bool { return x && y })
}

func opOr(vm *virtualMachine) error {
	return doBool(vm, func(x, y bool) bool { return x || y })
}

func opXor(vm *virtualMachine) error {
	return doBool(vm, func(x, y bool) bool { return x != y })
}
