package vm

import "github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"

var (
	ErrBadValue          = errors.New("bad value")
	ErrBudgetExceeded    = errors.New("program budget exceeded")
	ErrFalseVMResult     = errors.New("false VM result")
	ErrFail              = errors.New("FAIL executed")
	ErrRange             = errors.New("range error")
	ErrShortProgram      = errors.New("unexpected end of program")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrToken             = errors.New("unrecognized token")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrUnexpected        = errors.New("unexpected error")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrVerifyFailed      = errors.New("VERIFY failed")
)

// TypeMismatch builds an ErrTypeMismatch carrying the expected and actual
// tags both in the message and as error data.
func TypeMismatch(expected, actual Tag) error {
	err := errors.WithDetailf(ErrTypeMismatch, "want %s, got %s", expected, actual)
	return errors.WithData(err, "expected", expected, "actual", actual)
}
