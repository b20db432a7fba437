package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

// memArrays is a minimal in-memory ArrayStorage for VM tests.
type memArrays struct {
	slots map[string]memSlot
	elems map[HeadPointer][]StackValue
	next  byte
}

type memSlot struct {
	isArray  bool
	elemType Tag
	head     HeadPointer
}

func newMemArrays() *memArrays {
	return &memArrays{slots: map[string]memSlot{}, elems: map[HeadPointer][]StackValue{}}
}

func (m *memArrays) GetHead(name string) (bool, Tag, HeadPointer, error) {
	s := m.slots[name]
	return s.isArray, s.elemType, s.head, nil
}

func (m *memArrays) SetHead(name string, isArray bool, elemType Tag, head HeadPointer) error {
	m.slots[name] = memSlot{isArray, elemType, head}
	return nil
}

func (m *memArrays) Len(name string) (uint64, error) {
	return uint64(len(m.elems[m.slots[name].head])), nil
}

func (m *memArrays) Element(name string, index uint64) (StackValue, error) {
	elems := m.elems[m.slots[name].head]
	if index >= uint64(len(elems)) {
		return StackValue{}, ErrRange
	}
	return elems[index], nil
}

func (m *memArrays) Append(name string, v StackValue) error {
	s, ok := m.slots[name]
	if !ok {
		if err := m.Declare(name, v.Tag()); err != nil {
			return err
		}
		s = m.slots[name]
	}
	if s.elemType != v.Tag() {
		return TypeMismatch(s.elemType, v.Tag())
	}
	m.elems[s.head] = append(m.elems[s.head], v)
	return nil
}

func (m *memArrays) Declare(name string, elemType Tag) error {
	m.next++
	return m.SetHead(name, true, elemType, HeadPointer{m.next})
}

func mustAssemble(t *testing.T, s string) []byte {
	t.Helper()
	prog, err := Assemble(s)
	if err != nil {
		t.Fatalf("Assemble(%q): %v", s, err)
	}
	return prog
}

func TestExecute(t *testing.T) {
	vars := Variables{
		"amount": NewUint64(500),
		"owner":  NewAddress(Address{0xaa}),
		"name":   NewString("ALICE"),
	}

	cases := []struct {
		prog     string
		wantTop  *StackValue
		wantLen  int
		wantErr  error
		setupArr func(*memArrays)
	}{
		{prog: "", wantTop: nil, wantLen: 0},
		{prog: "10 20 LESSTHANOREQUAL 5 5 EQUAL AND", wantTop: valuePtr(NewUint64(1)), wantLen: 1},
		{prog: "10 5 LESSTHANOREQUAL 1 2 EQUAL OR", wantTop: valuePtr(NewUint64(0)), wantLen: 1},
		{prog: "LOADVAR:amount 100 GREATERTHAN", wantTop: valuePtr(NewUint64(1)), wantLen: 1},
		{prog: "LOADVAR:name 'ALICE' EQUAL", wantTop: valuePtr(NewUint64(1)), wantLen: 1},
		{prog: "LOADVAR:owner 0x00000000000000000000000000000000000000aa EQUAL", wantTop: valuePtr(NewUint64(0)), wantLen: 1},
		{prog: "LOADVAR:missing", wantErr: ErrUndefinedVariable},
		{prog: "7 SETLOCAL:x LOADVAR:x LOADVAR:x EQUAL", wantTop: valuePtr(NewUint64(1)), wantLen: 1},
		{prog: "1 2 JUMPIF:$skip DROP $skip", wantTop: valuePtr(NewUint64(1)), wantLen: 1},
		{prog: "0 JUMPIFNOT:$fail TRUE JUMP:$end $fail FALSE $end", wantTop: valuePtr(NewUint64(0)), wantLen: 1},
		{prog: "EQUAL", wantErr: ErrStackUnderflow},
		{prog: "'a' 1 AND", wantErr: ErrTypeMismatch},
		{prog: "'a' VERIFY", wantErr: ErrTypeMismatch},
		{prog: "ARRLEN:xs", wantTop: valuePtr(NewUint64(0)), wantLen: 1},
		{
			prog:    "ARRDECLARE:xs:uint256 5 ARRPUSH:xs 9 ARRPUSH:xs ARRLEN:xs ARRGET:xs:1",
			wantTop: valuePtr(NewUint64(9)),
			wantLen: 2,
		},
		{
			prog:     "ARRGET:xs:3",
			wantErr:  ErrRange,
			setupArr: func(m *memArrays) { m.Append("xs", NewUint64(1)) },
		},
		{prog: "ARRDECLARE:xs:string 5 ARRPUSH:xs", wantErr: ErrTypeMismatch},
	}

	for i, c := range cases {
		arrays := newMemArrays()
		if c.setupArr != nil {
			c.setupArr(arrays)
		}
		ctx := NewContext(vars, arrays)

		top, err := Execute(ctx, mustAssemble(t, c.prog), 100)
		if errors.Root(err) != c.wantErr {
			t.Errorf("case %d (%s): err = %v want %v", i, c.prog, err, c.wantErr)
			continue
		}
		if c.wantErr != nil {
			continue
		}

		switch {
		case top == nil && c.wantTop != nil, top != nil && c.wantTop == nil:
			t.Errorf("case %d (%s): top = %v want %v", i, c.prog, top, c.wantTop)
		case top != nil && !top.Equal(*c.wantTop):
			t.Errorf("case %d (%s): top = %s want %s", i, c.prog, top, c.wantTop)
		}
		if ctx.Stack.Len() != c.wantLen {
			t.Errorf("case %d (%s): stack len = %d want %d", i, c.prog, ctx.Stack.Len(), c.wantLen)
		}
	}
}

func valuePtr(v StackValue) *StackValue {
	return &v
}

func TestExecuteBudget(t *testing.T) {
	ctx := NewContext(nil, nil)
	_, err := Execute(ctx, mustAssemble(t, "$loop NOP JUMP:$loop"), DefaultRunLimit)
	if errors.Root(err) != ErrBudgetExceeded {
		t.Fatalf("err = %v want %v", err, ErrBudgetExceeded)
	}

	// exactly enough budget for three instructions
	ctx = NewContext(nil, nil)
	if _, err := Execute(ctx, mustAssemble(t, "1 1 EQUAL"), 3); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	ctx = NewContext(nil, nil)
	if _, err := Execute(ctx, mustAssemble(t, "1 1 EQUAL"), 2); errors.Root(err) != ErrBudgetExceeded {
		t.Fatalf("err = %v want %v", err, ErrBudgetExceeded)
	}
}

func TestExecuteUnknownOpcode(t *testing.T) {
	ctx := NewContext(nil, nil)
	_, err := Execute(ctx, []byte{byte(OP_TRUE), 0xee}, 100)
	if errors.Root(err) != ErrUnknownOpcode {
		t.Fatalf("err = %v want %v", err, ErrUnknownOpcode)
	}
	// the push before the bad opcode is not rolled back
	if ctx.Stack.Len() != 1 {
		t.Errorf("stack len = %d want 1", ctx.Stack.Len())
	}
}

func TestExecuteWithoutArrays(t *testing.T) {
	ctx := NewContext(nil, nil)
	_, err := Execute(ctx, mustAssemble(t, "ARRLEN:xs"), 100)
	if errors.Root(err) != ErrUnexpected {
		t.Fatalf("err = %v want %v", err, ErrUnexpected)
	}
}

func TestVerify(t *testing.T) {
	cases := []struct {
		prog     string
		wantLeft int64
		wantErr  error
	}{
		{"1 1 EQUAL", 97, nil},
		{"1 2 EQUAL", 97, ErrFalseVMResult},
		{"", 100, ErrFalseVMResult},
		{"'yes'", 99, ErrFalseVMResult},
		{"FAIL", 99, ErrFail},
	}

	for _, c := range cases {
		left, err := Verify(NewContext(nil, nil), mustAssemble(t, c.prog), 100)
		if errors.Root(err) != c.wantErr {
			t.Errorf("Verify(%s) err = %v want %v", c.prog, err, c.wantErr)
		}
		if left != c.wantLeft {
			t.Errorf("Verify(%s) left = %d want %d", c.prog, left, c.wantLeft)
		}
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v       *StackValue
		want    bool
		wantErr error
	}{
		{nil, false, nil},
		{valuePtr(NewUint64(0)), false, nil},
		{valuePtr(NewUint64(3)), true, nil},
		{valuePtr(NewString("true")), false, ErrTypeMismatch},
	}
	for i, c := range cases {
		got, err := Truthy(c.v)
		if errors.Root(err) != c.wantErr || got != c.want {
			t.Errorf("case %d: Truthy = %v, %v want %v, %v", i, got, err, c.want, c.wantErr)
		}
	}
}

func TestTraceOut(t *testing.T) {
	var buf bytes.Buffer
	TraceOut = &buf
	defer func() { TraceOut = nil }()

	if _, err := Execute(NewContext(nil, nil), mustAssemble(t, "2 3 LESSTHAN"), 100); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"LESSTHAN", "stack 0: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("trace missing %q:\n%s", want, buf.String())
		}
	}
}
