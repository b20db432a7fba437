package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm/vmutil"
)

var ErrBadToken = errors.New("bad token")

var operatorOps = map[string]vm.Op{
	"==":   vm.OP_EQUAL,
	"!=":   vm.OP_NOTEQUAL,
	"<":    vm.OP_LESSTHAN,
	">":    vm.OP_GREATERTHAN,
	"<=":   vm.OP_LESSTHANOREQUAL,
	">=":   vm.OP_GREATERTHANOREQUAL,
	"!":    vm.OP_NOT,
	"and":  vm.OP_AND,
	"or":   vm.OP_OR,
	"xor":  vm.OP_XOR,
	"swap": vm.OP_SWAP,
}

const lengthSuffix = ".length"

var (
	identRE   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	decimalRE = regexp.MustCompile(`^[0-9]+$`)
	addressRE = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	indexRE   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[([0-9]+)\]$`)
)

// Encode translates postfix tokens into a program, one instruction per
// token. The same tokens always produce the same bytes.
func Encode(postfix []string) ([]byte, error) {
	b := vmutil.NewBuilder()
	for i, tok := range postfix {
		if err := encodeToken(b, tok); err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
	}
	return b.Build()
}

func encodeToken(b *vmutil.Builder, tok string) error {
	if op, ok := operatorOps[tok]; ok {
		b.AddOp(op)
		return nil
	}

	switch {
	case tok == "true":
		b.AddOp(vm.OP_TRUE)

	case tok == "false":
		b.AddOp(vm.OP_FALSE)

	case decimalRE.MatchString(tok):
		n, err := vm.ParseUint(tok)
		if err != nil {
			return errors.WithDetailf(err, "literal %s", tok)
		}
		b.AddUint(n)

	case addressRE.MatchString(tok):
		addr, err := vm.ParseAddress(tok)
		if err != nil {
			return err
		}
		return addData(b.AddValue(vm.NewAddress(addr)), tok)

	case len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"':
		return addData(b.AddOpData(vm.OP_PUSHSTRING, []byte(tok[1:len(tok)-1])), tok)

	case strings.HasSuffix(tok, lengthSuffix) && identRE.MatchString(strings.TrimSuffix(tok, lengthSuffix)):
		return addData(b.AddOpData(vm.OP_ARRLEN, []byte(strings.TrimSuffix(tok, lengthSuffix))), tok)

	case indexRE.MatchString(tok):
		m := indexRE.FindStringSubmatch(tok)
		index, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return errors.WithDetailf(ErrBadToken, "index %s out of range", m[2])
		}
		return addData(b.AddOpData(vm.OP_ARRGET, vm.ArrGetData(m[1], index)), tok)

	case identRE.MatchString(tok):
		return addData(b.AddOpData(vm.OP_LOADVAR, []byte(tok)), tok)

	default:
		return errors.WithDetailf(ErrBadToken, "%q", tok)
	}
	return nil
}

// addData turns an operand that does not fit in an instruction into a bad
// token.
func addData(err error, tok string) error {
	if err == nil {
		return nil
	}
	return errors.Sub(ErrBadToken, errors.WithDetailf(err, "token of %d bytes", len(tok)))
}
