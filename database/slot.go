package database

import (
	"encoding/binary"

	"github.com/pborman/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

var ErrCorruptSlot = errors.New("corrupt array slot")

const slotLen = 2 + len(vm.HeadPointer{})

// slot is the head record of a named array. The zero slot is what a
// never-written name reads as.
type slot struct {
	IsArray  bool
	ElemType vm.Tag
	Head     vm.HeadPointer
}

func (s slot) bytes() []byte {
	b := make([]byte, slotLen)
	if s.IsArray {
		b[0] = 1
	}
	b[1] = byte(s.ElemType)
	copy(b[2:], s.Head[:])
	return b
}

func slotFromBytes(b []byte) (slot, error) {
	if b == nil {
		return slot{}, nil
	}
	if len(b) != slotLen || b[0] > 1 {
		return slot{}, errors.WithDetailf(ErrCorruptSlot, "%x", b)
	}

	s := slot{IsArray: b[0] == 1, ElemType: vm.Tag(b[1])}
	copy(s.Head[:], b[2:])
	return s, nil
}

// NewHeadPointer returns a fresh head pointer for name. Redeclaring a name
// yields a new pointer, so elements of the old array are never reachable
// from the new one.
func NewHeadPointer(name string) vm.HeadPointer {
	h := sha3.New256()
	h.Write([]byte(name))
	h.Write(uuid.NewRandom())

	var p vm.HeadPointer
	copy(p[:], h.Sum(nil))
	return p
}

type getter interface {
	Get(key []byte) []byte
}

type setDeleter interface {
	Set(key, value []byte)
	Delete(key []byte)
}

func readSlot(g getter, name string) (slot, error) {
	return slotFromBytes(g.Get(calcHeadKey(name)))
}

func readLen(g getter, s slot) (uint64, error) {
	if !s.IsArray || s.Head.IsNull() {
		return 0, nil
	}

	b := g.Get(calcLenKey(s.Head))
	if b == nil {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, errors.WithDetailf(ErrCorruptSlot, "length %x", b)
	}
	return binary.BigEndian.Uint64(b), nil
}

func readElement(g getter, name string, s slot, index uint64) (vm.StackValue, error) {
	n, err := readLen(g, s)
	if err != nil {
		return vm.StackValue{}, err
	}
	if index >= n {
		return vm.StackValue{}, errors.WithDetailf(vm.ErrRange, "%s[%d] with length %d", name, index, n)
	}

	b := g.Get(calcElemKey(s.Head, index))
	if b == nil {
		return vm.StackValue{}, errors.WithDetailf(ErrCorruptSlot, "%s[%d] missing", name, index)
	}
	return vm.ValueFromBytes(b)
}

func writeSlot(w setDeleter, name string, s slot) {
	w.Set(calcHeadKey(name), s.bytes())
}

// appendValue writes v after the last element of the array held in s,
// declaring the array first when s is not one. It returns the slot in
// effect afterwards.
func appendValue(g getter, w setDeleter, name string, s slot, v vm.StackValue) (slot, error) {
	if !s.IsArray || s.Head.IsNull() {
		s = slot{IsArray: true, ElemType: v.Tag(), Head: NewHeadPointer(name)}
		writeSlot(w, name, s)
	}
	if s.ElemType != v.Tag() {
		return s, errors.Wrapf(vm.TypeMismatch(s.ElemType, v.Tag()), "appending to %s", name)
	}

	n, err := readLen(g, s)
	if err != nil {
		return s, err
	}

	w.Set(calcElemKey(s.Head, n), v.Bytes())
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], n+1)
	w.Set(calcLenKey(s.Head), l[:])
	return s, nil
}

// dropElements deletes the elements and length of the array held in s.
func dropElements(g getter, w setDeleter, s slot) error {
	n, err := readLen(g, s)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		w.Delete(calcElemKey(s.Head, i))
	}
	if !s.Head.IsNull() {
		w.Delete(calcLenKey(s.Head))
	}
	return nil
}
