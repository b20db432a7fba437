package vm

// Stack is a LIFO sequence of StackValue. The top is the last element.
type Stack struct {
	items []StackValue
}

func NewStack() *Stack {
	return &Stack{items: make([]StackValue, 0, 8)}
}

func (s *Stack) Push(v StackValue) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (StackValue, error) {
	if len(s.items) == 0 {
		return StackValue{}, ErrStackUnderflow
	}

	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, nil
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (StackValue, error) {
	if len(s.items) == 0 {
		return StackValue{}, ErrStackUnderflow
	}
	return s.items[len(s.items)-1], nil
}

func (s *Stack) Len() int {
	return len(s.items)
}

// Items returns a copy of the stack contents, bottom first.
func (s *Stack) Items() []StackValue {
	return append([]StackValue(nil), s.items...)
}
