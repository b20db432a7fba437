package compiler

import (
	"encoding/binary"
	"strings"

	"golang.org/x/crypto/sha3"

	chainjson "github.com/akiva-capital-holdings/pairwyse-dsl-sub002/encoding/json"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm/vmutil"
)

// Program is a compiled condition, or a set of conditions compiled with
// CompileAll.
type Program struct {
	// Source is the condition text. For CompileAll it holds the
	// conditions one per line.
	Source string `json:"source"`

	// Postfix is the converted token sequence. Empty for CompileAll.
	Postfix []string `json:"postfix,omitempty"`

	// Parts are the individually compiled conditions of CompileAll.
	Parts []*Program `json:"parts,omitempty"`

	// Code is the bytecode run by the VM.
	Code chainjson.HexBytes `json:"body_bytecode"`

	// Opcodes is the disassembly of Code.
	Opcodes string `json:"body_opcodes"`

	// Hash identifies the source text. Identical sources share a hash
	// and compile to identical code.
	Hash chainjson.HexBytes `json:"hash"`
}

// Compile tokenizes, converts and encodes a single condition. An empty
// condition compiles to an empty program, which leaves the stack empty
// and so never satisfies the gate.
func Compile(src string) (*Program, error) {
	postfix, err := Convert(Tokenize(src))
	if err != nil {
		return nil, errors.Wrap(err, "converting to postfix")
	}

	code, err := Encode(postfix)
	if err != nil {
		return nil, errors.Wrap(err, "encoding")
	}

	return newProgram(src, postfix, nil, code, sourceHash("", src))
}

// CompileAll compiles the conditions of one agreement record into a
// single program that is true iff every condition is true. Evaluation
// stops at the first false condition.
func CompileAll(conditions []string) (*Program, error) {
	var (
		parts = make([]*Program, 0, len(conditions))
		codes = make([][]byte, 0, len(conditions))
	)
	for i, cond := range conditions {
		p, err := Compile(cond)
		if err != nil {
			return nil, errors.Wrapf(err, "condition %d", i)
		}
		parts = append(parts, p)

		code := p.Code
		if len(code) == 0 {
			code = []byte{byte(vm.OP_FALSE)}
		}
		codes = append(codes, code)
	}

	code, err := vmutil.AllOfProgram(codes)
	if err != nil {
		return nil, err
	}

	return newProgram(strings.Join(conditions, "\n"), nil, parts, code, ConditionsHash(conditions))
}

func newProgram(src string, postfix []string, parts []*Program, code []byte, hash []byte) (*Program, error) {
	opcodes, err := vm.Disassemble(code)
	if err != nil {
		return nil, errors.Wrap(err, "disassembling")
	}
	return &Program{
		Source:  src,
		Postfix: postfix,
		Parts:   parts,
		Code:    code,
		Opcodes: opcodes,
		Hash:    hash,
	}, nil
}

// ConditionsHash is the Hash of the program CompileAll builds for
// conditions. It does not compile anything.
func ConditionsHash(conditions []string) []byte {
	return sourceHash("all", conditions...)
}

// sourceHash is sha3-256 of a single source. Several sources are hashed
// length-prefixed after a kind marker so they never collide with a
// single one.
func sourceHash(kind string, srcs ...string) []byte {
	if kind == "" && len(srcs) == 1 {
		h := sha3.Sum256([]byte(srcs[0]))
		return h[:]
	}

	h := sha3.New256()
	h.Write([]byte(kind))
	var l [8]byte
	for _, s := range srcs {
		binary.BigEndian.PutUint64(l[:], uint64(len(s)))
		h.Write(l[:])
		h.Write([]byte(s))
	}
	return h.Sum(nil)
}
