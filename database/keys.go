package database

import (
	"encoding/binary"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

var (
	// ArrayHeadPrefix is the namespace of array slots, keyed by name.
	ArrayHeadPrefix = []byte("AH:")
	// ArrayLenPrefix is the namespace of array lengths, keyed by head pointer.
	ArrayLenPrefix = []byte("AL:")
	// ArrayElemPrefix is the namespace of array elements, keyed by head
	// pointer and big-endian index.
	ArrayElemPrefix = []byte("AE:")
)

func calcHeadKey(name string) []byte {
	return append(append([]byte{}, ArrayHeadPrefix...), name...)
}

func calcLenKey(head vm.HeadPointer) []byte {
	return append(append([]byte{}, ArrayLenPrefix...), head[:]...)
}

func calcElemKey(head vm.HeadPointer, index uint64) []byte {
	key := make([]byte, 0, len(ArrayElemPrefix)+len(head)+8)
	key = append(key, ArrayElemPrefix...)
	key = append(key, head[:]...)
	var i [8]byte
	binary.BigEndian.PutUint64(i[:], index)
	return append(key, i[:]...)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
