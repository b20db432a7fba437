package vm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Tag identifies which payload a StackValue currently holds.
type Tag uint8

const (
	TagNone Tag = iota
	TagUint256
	TagString
	TagAddress

	// TagArray is only meaningful as an array element type.
	TagArray
)

var tagNames = map[Tag]string{
	TagNone:    "none",
	TagUint256: "uint256",
	TagString:  "string",
	TagAddress: "address",
	TagArray:   "array",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// AddressLength is the size in bytes of an address payload.
const AddressLength = 20

// Address is an account-like identifier.
type Address [AddressLength]byte

// Hex returns the 0x-prefixed hex form of a.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// ParseAddress reads a 0x-prefixed, 40 digit hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, ErrBadValue
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil || len(b) != AddressLength {
		return a, ErrBadValue
	}
	copy(a[:], b)
	return a, nil
}

// StackValue is a tagged value. Exactly one payload is live at a time,
// selected by the tag; the accessors never convert between payloads.
type StackValue struct {
	tag  Tag
	u    uint256.Int
	s    string
	addr Address
}

func NewUint(n *uint256.Int) StackValue {
	var v StackValue
	v.SetUint(n)
	return v
}

func NewUint64(n uint64) StackValue {
	return NewUint(new(uint256.Int).SetUint64(n))
}

func NewBool(b bool) StackValue {
	if b {
		return NewUint64(1)
	}
	return NewUint64(0)
}

func NewString(s string) StackValue {
	var v StackValue
	v.SetString(s)
	return v
}

func NewAddress(a Address) StackValue {
	var v StackValue
	v.SetAddress(a)
	return v
}

// Tag returns the discriminant of v.
func (v StackValue) Tag() Tag {
	return v.tag
}

// SetUint makes v hold n and drops any other payload.
func (v *StackValue) SetUint(n *uint256.Int) {
	*v = StackValue{tag: TagUint256}
	if n != nil {
		v.u.Set(n)
	}
}

// SetString makes v hold s and drops any other payload.
func (v *StackValue) SetString(s string) {
	*v = StackValue{tag: TagString, s: s}
}

// SetAddress makes v hold a and drops any other payload.
func (v *StackValue) SetAddress(a Address) {
	*v = StackValue{tag: TagAddress, addr: a}
}

// AsUint returns a copy of the uint256 payload.
func (v StackValue) AsUint() (*uint256.Int, error) {
	if v.tag != TagUint256 {
		return nil, TypeMismatch(TagUint256, v.tag)
	}
	return new(uint256.Int).Set(&v.u), nil
}

func (v StackValue) AsString() (string, error) {
	if v.tag != TagString {
		return "", TypeMismatch(TagString, v.tag)
	}
	return v.s, nil
}

func (v StackValue) AsAddress() (Address, error) {
	if v.tag != TagAddress {
		return Address{}, TypeMismatch(TagAddress, v.tag)
	}
	return v.addr, nil
}

// AsBool reads a uint256 payload as a boolean; any non-zero value is true.
func (v StackValue) AsBool() (bool, error) {
	if v.tag != TagUint256 {
		return false, TypeMismatch(TagUint256, v.tag)
	}
	return !v.u.IsZero(), nil
}

// Equal reports whether v and w have the same tag and payload.
func (v StackValue) Equal(w StackValue) bool {
	if v.tag != w.tag {
		return false
	}
	switch v.tag {
	case TagUint256:
		return v.u.Eq(&w.u)
	case TagString:
		return v.s == w.s
	case TagAddress:
		return v.addr == w.addr
	}
	return true
}

func (v StackValue) String() string {
	switch v.tag {
	case TagUint256:
		return v.u.ToBig().String()
	case TagString:
		return fmt.Sprintf("%q", v.s)
	case TagAddress:
		return v.addr.Hex()
	}
	return "<" + v.tag.String() + ">"
}

// Bytes encodes v as one tag byte followed by the payload.
func (v StackValue) Bytes() []byte {
	switch v.tag {
	case TagUint256:
		return append([]byte{byte(TagUint256)}, v.u.Bytes()...)
	case TagString:
		return append([]byte{byte(TagString)}, v.s...)
	case TagAddress:
		return append([]byte{byte(TagAddress)}, v.addr[:]...)
	}
	return []byte{byte(v.tag)}
}

// ValueFromBytes decodes the output of StackValue.Bytes.
func ValueFromBytes(b []byte) (StackValue, error) {
	if len(b) == 0 {
		return StackValue{}, ErrBadValue
	}

	payload := b[1:]
	switch Tag(b[0]) {
	case TagUint256:
		if len(payload) > 32 {
			return StackValue{}, ErrBadValue
		}
		return NewUint(new(uint256.Int).SetBytes(payload)), nil
	case TagString:
		return NewString(string(payload)), nil
	case TagAddress:
		if len(payload) != AddressLength {
			return StackValue{}, ErrBadValue
		}
		var a Address
		copy(a[:], payload)
		return NewAddress(a), nil
	}
	return StackValue{}, ErrBadValue
}

// ParseUint reads a decimal literal that must fit in 256 bits.
func ParseUint(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, ErrBadValue
	}
	n, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrRange
	}
	return n, nil
}

// uintBytes returns the minimal big-endian encoding of n; zero is empty.
func uintBytes(n *uint256.Int) []byte {
	return bytes.TrimLeft(n.Bytes(), "\x00")
}
