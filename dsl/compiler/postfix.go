package compiler

import (
	"math"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

var ErrUnbalancedParentheses = errors.New("unbalanced parentheses")

// parenRank is the rank of anything that is not an operator, which keeps
// an open parenthesis on the operator stack until its ")" arrives.
const parenRank = math.MaxInt32

var ranks = map[string]int{
	"!": 1,

	"==": 2,
	"!=": 2,
	"<":  2,
	">":  2,
	"<=": 2,
	">=": 2,

	"swap": 3,
	"and":  3,

	"xor": 4,
	"or":  4,
}

// IsOperator reports whether tok is one of the DSL operators.
func IsOperator(tok string) bool {
	_, ok := ranks[tok]
	return ok
}

// Rank returns the precedence rank of tok. Lower ranks bind tighter.
func Rank(tok string) int {
	if r, ok := ranks[tok]; ok {
		return r
	}
	return parenRank
}

// Convert reorders infix tokens into postfix order. It does no semantic
// checking beyond parenthesis balance; the output holds every input token
// except the parentheses.
func Convert(tokens []string) ([]string, error) {
	var (
		stack []string
		out   = make([]string, 0, len(tokens))
	)

	for i, tok := range tokens {
		switch {
		case tok == "(":
			stack = append(stack, tok)

		case tok == ")":
			for {
				if len(stack) == 0 {
					return nil, errors.WithDetailf(ErrUnbalancedParentheses, "unmatched ) at token %d", i)
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top == "(" {
					break
				}
				out = append(out, top)
			}

		case IsOperator(tok):
			for len(stack) > 0 && Rank(tok) >= Rank(stack[len(stack)-1]) {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)

		default:
			out = append(out, tok)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top == "(" {
			return nil, errors.WithDetail(ErrUnbalancedParentheses, "unclosed (")
		}
		out = append(out, top)
	}
	return out, nil
}
