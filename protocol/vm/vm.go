package vm

import (
	"fmt"
	"io"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

// DefaultRunLimit is the instruction budget used when none is configured.
const DefaultRunLimit int64 = 10000

type virtualMachine struct {
	context *Context

	program  []byte // the program currently executing
	nextPC   uint32
	runLimit int64

	// Stores the data parsed out of an opcode. Used as input to
	// data-carrying opcodes.
	data []byte
}

// TraceOut - if non-nil - will receive trace output during
// execution.
var TraceOut io.Writer

// Execute runs prog against ctx and returns the value left on top of the
// stack, or nil when the stack is empty. Every instruction costs one unit
// of runLimit. Stack changes made before a failing instruction are kept;
// callers discard the Context on error.
func Execute(ctx *Context, prog []byte, runLimit int64) (top *StackValue, err error) {
	vm := &virtualMachine{
		context:  ctx,
		program:  prog,
		runLimit: runLimit,
	}

	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = errors.Sub(ErrUnexpected, rErr)
			} else {
				err = errors.Wrap(ErrUnexpected, r)
			}
			top = nil
		}
	}()

	if err = vm.run(); err != nil {
		return nil, wrapErr(err, vm)
	}

	if ctx.Stack.Len() == 0 {
		return nil, nil
	}
	v, err := ctx.Stack.Peek()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Verify runs prog and fails with ErrFalseVMResult unless it leaves a
// truthy value on top of the stack. It returns the unused budget.
func Verify(ctx *Context, prog []byte, runLimit int64) (left int64, err error) {
	vm := &virtualMachine{
		context:  ctx,
		program:  prog,
		runLimit: runLimit,
	}

	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = errors.Sub(ErrUnexpected, rErr)
			} else {
				err = errors.Wrap(ErrUnexpected, r)
			}
		}
	}()

	if err = vm.run(); err == nil && vm.falseResult() {
		err = ErrFalseVMResult
	}
	return vm.runLimit, wrapErr(err, vm)
}

// Truthy interprets an execution result. An empty stack (nil) is false.
func Truthy(v *StackValue) (bool, error) {
	if v == nil {
		return false, nil
	}
	return v.AsBool()
}

// falseResult returns true iff the stack is empty or the top
// item is not a true uint256
func (vm *virtualMachine) falseResult() bool {
	top, err := vm.context.Stack.Peek()
	if err != nil {
		return true
	}
	ok, err := top.AsBool()
	return err != nil || !ok
}

func (vm *virtualMachine) run() error {
	for vm.context.PC = 0; vm.context.PC < uint32(len(vm.program)); { // handle pc updates in step
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *virtualMachine) step() error {
	inst, err := ParseOp(vm.program, vm.context.PC)
	if err != nil {
		return err
	}

	if err = vm.applyCost(1); err != nil {
		return err
	}

	vm.nextPC = vm.context.PC + inst.Len

	if TraceOut != nil {
		fmt.Fprintf(TraceOut, "vm pc %d limit %d %s", vm.context.PC, vm.runLimit, inst.Op)
		if len(inst.Data) > 0 {
			fmt.Fprintf(TraceOut, " %x", inst.Data)
		}
		fmt.Fprint(TraceOut, "\n")
	}

	vm.data = inst.Data
	if err = ops[inst.Op].fn(vm); err != nil {
		return errors.Wrapf(err, "%s at pc %d", inst.Op, vm.context.PC)
	}

	vm.context.PC = vm.nextPC
	if TraceOut != nil {
		items := vm.context.Stack.Items()
		for i := len(items) - 1; i >= 0; i-- {
			fmt.Fprintf(TraceOut, "  stack %d: %s\n", len(items)-1-i, items[i])
		}
	}

	return nil
}

func (vm *virtualMachine) push(v StackValue) {
	vm.context.Stack.Push(v)
}

func (vm *virtualMachine) pushBool(b bool) {
	vm.context.Stack.Push(NewBool(b))
}

func (vm *virtualMachine) pop() (StackValue, error) {
	return vm.context.Stack.Pop()
}

// pop2 pops the right operand then the left one.
func (vm *virtualMachine) pop2() (x, y StackValue, err error) {
	if vm.context.Stack.Len() < 2 {
		return x, y, ErrStackUnderflow
	}
	y, _ = vm.pop()
	x, _ = vm.pop()
	return x, y, nil
}

func (vm *virtualMachine) popBool() (bool, error) {
	v, err := vm.pop()
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

func (vm *virtualMachine) applyCost(n int64) error {
	if n > vm.runLimit {
		vm.runLimit = 0
		return ErrBudgetExceeded
	}

	vm.runLimit -= n
	return nil
}

func wrapErr(err error, vm *virtualMachine) error {
	if err == nil {
		return nil
	}

	dis, errDis := Disassemble(vm.program)
	if errDis != nil {
		dis = "???"
	}

	return errors.Wrap(err, fmt.Sprintf("[prog %x = %s]", vm.program, dis))
}
