package vm

import "encoding/hex"

// HeadPointer locates the first element of a stored array. The zero value
// is the null sentinel.
type HeadPointer [32]byte

// IsNull reports whether p is the null sentinel.
func (p HeadPointer) IsNull() bool {
	return p == HeadPointer{}
}

func (p HeadPointer) String() string {
	return hex.EncodeToString(p[:])
}

// ArrayStorage is a named, typed array store. Reading a name that was
// never written yields the zero slot, not an error.
type ArrayStorage interface {
	GetHead(name string) (isArray bool, elemType Tag, head HeadPointer, err error)
	SetHead(name string, isArray bool, elemType Tag, head HeadPointer) error

	Len(name string) (uint64, error)
	Element(name string, index uint64) (StackValue, error)
	Append(name string, v StackValue) error
	Declare(name string, elemType Tag) error
}
