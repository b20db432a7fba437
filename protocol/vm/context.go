package vm

// Application resolves the identifiers a condition refers to.
type Application interface {
	Variable(name string) (StackValue, bool)
}

// Variables is a fixed set of named values.
type Variables map[string]StackValue

func (v Variables) Variable(name string) (StackValue, bool) {
	val, ok := v[name]
	return val, ok
}

// Context is the environment of one program execution. It is created per
// evaluation attempt and must not be shared by concurrent executions.
type Context struct {
	App    Application
	Arrays ArrayStorage
	Stack  *Stack
	PC     uint32

	// Locals are written by SETLOCAL and shadow App variables.
	Locals map[string]StackValue
}

func NewContext(app Application, arrays ArrayStorage) *Context {
	return &Context{
		App:    app,
		Arrays: arrays,
		Stack:  NewStack(),
		Locals: make(map[string]StackValue),
	}
}

func (c *Context) lookup(name string) (StackValue, bool) {
	if v, ok := c.Locals[name]; ok {
		return v, true
	}
	if c.App == nil {
		return StackValue{}, false
	}
	return c.App.Variable(name)
}
