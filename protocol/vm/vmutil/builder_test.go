package vmutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

func TestAddUint64(t *testing.T) {
	cases := []struct {
		num     uint64
		wantHex string
	}{
		{0, "00"},
		{1, "01"},
		{2, "02010002"},
		{255, "020100ff"},
		{256, "0202000100"},
		{65535, "020200ffff"},
		{1 << 63, "0208008000000000000000"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("adding %d", c.num), func(t *testing.T) {
			b := NewBuilder()
			b.AddUint64(c.num)
			prog, err := b.Build()
			if err != nil {
				t.Fatal(err)
			}
			want, err := hex.DecodeString(c.wantHex)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(prog, want) {
				t.Errorf("got %x, want %x", prog, want)
			}
		})
	}
}

func TestAddJump(t *testing.T) {
	cases := []struct {
		name    string
		wantHex string
		fn      func(t *testing.T, b *Builder)
	}{
		{
			"single jump single target not yet defined",
			"300600000005",
			func(t *testing.T, b *Builder) {
				target := b.NewJumpTarget()
				b.AddJump(target)
				b.AddOp(vm.OP_NOP)
				b.SetJumpTarget(target)
			},
		},
		{
			"single jump single target already defined",
			"053000000000",
			func(t *testing.T, b *Builder) {
				target := b.NewJumpTarget()
				b.SetJumpTarget(target)
				b.AddOp(vm.OP_NOP)
				b.AddJump(target)
			},
		},
		{
			"two jumps single target not yet defined",
			"300c00000005320c00000005",
			func(t *testing.T, b *Builder) {
				target := b.NewJumpTarget()
				b.AddJump(target)
				b.AddOp(vm.OP_NOP)
				b.AddJumpIfNot(target)
				b.AddOp(vm.OP_NOP)
				b.SetJumpTarget(target)
			},
		},
		{
			"two jumps, two targets, not yet defined",
			"300c00000005310d0000000505",
			func(t *testing.T, b *Builder) {
				target1 := b.NewJumpTarget()
				b.AddJump(target1)
				b.AddOp(vm.OP_NOP)
				target2 := b.NewJumpTarget()
				b.AddJumpIf(target2)
				b.AddOp(vm.OP_NOP)
				b.SetJumpTarget(target1)
				b.AddOp(vm.OP_NOP)
				b.SetJumpTarget(target2)
			},
		},
		{
			"data op",
			"480300616765",
			func(t *testing.T, b *Builder) {
				if err := b.AddOpData(vm.OP_LOADVAR, []byte("age")); err != nil {
					t.Fatal(err)
				}
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBuilder()
			c.fn(t, b)
			prog, err := b.Build()
			if err != nil {
				t.Fatal(err)
			}
			want, err := hex.DecodeString(c.wantHex)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(prog, want) {
				t.Errorf("got %x, want %x", prog, want)
			}
		})
	}
}

func TestUnresolvedJump(t *testing.T) {
	b := NewBuilder()
	b.AddJump(b.NewJumpTarget())
	if _, err := b.Build(); errors.Root(err) != ErrUnresolvedJump {
		t.Errorf("got %v, want ErrUnresolvedJump", err)
	}
}

func TestAddOpDataLimit(t *testing.T) {
	b := NewBuilder()
	if err := b.AddOpData(vm.OP_PUSHSTRING, bytes.Repeat([]byte{0x01}, vm.MaxDataLen)); err != nil {
		t.Fatalf("data of %d bytes: %v", vm.MaxDataLen, err)
	}
	if b.Len() != 3+vm.MaxDataLen {
		t.Errorf("program length %d, want %d", b.Len(), 3+vm.MaxDataLen)
	}

	err := b.AddOpData(vm.OP_PUSHSTRING, bytes.Repeat([]byte{0x01}, vm.MaxDataLen+1))
	if errors.Root(err) != vm.ErrRange {
		t.Errorf("data of %d bytes: err = %v, want %v", vm.MaxDataLen+1, err, vm.ErrRange)
	}
	if b.Len() != 3+vm.MaxDataLen {
		t.Errorf("failed AddOpData changed the program to %d bytes", b.Len())
	}

	err = b.AddValue(vm.NewString(strings.Repeat("x", vm.MaxDataLen+1)))
	if errors.Root(err) != vm.ErrRange {
		t.Errorf("AddValue err = %v, want %v", err, vm.ErrRange)
	}
}
