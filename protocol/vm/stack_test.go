package vm

import "testing"

func TestStackLIFO(t *testing.T) {
	s := NewStack()
	values := []StackValue{NewUint64(1), NewString("two"), NewAddress(Address{3})}
	for _, v := range values {
		s.Push(v)
	}

	top, err := s.Peek()
	if err != nil {
		t.Fatal(err)
	}
	if !top.Equal(values[2]) || s.Len() != 3 {
		t.Fatalf("Peek() = %s, len %d", top, s.Len())
	}

	for i := len(values) - 1; i >= 0; i-- {
		got, err := s.Pop()
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(values[i]) {
			t.Errorf("pop %d = %s want %s", i, got, values[i])
		}
	}

	if _, err := s.Pop(); err != ErrStackUnderflow {
		t.Errorf("Pop() on empty err = %v want %v", err, ErrStackUnderflow)
	}
	if _, err := s.Peek(); err != ErrStackUnderflow {
		t.Errorf("Peek() on empty err = %v want %v", err, ErrStackUnderflow)
	}
}

func TestStackItemsIsCopy(t *testing.T) {
	s := NewStack()
	s.Push(NewUint64(1))
	items := s.Items()
	items[0] = NewString("changed")

	top, _ := s.Peek()
	if top.Tag() != TagUint256 {
		t.Errorf("Items() aliases the stack")
	}
}
