package compiler

import (
	"strings"
	"unicode"
)

// separator is inserted around parentheses before splitting.
const separator = '\x00'

var islands = strings.NewReplacer(
	"(", string(separator)+"("+string(separator),
	")", string(separator)+")"+string(separator),
)

// Tokenize splits src into tokens. Parentheses are always tokens of their
// own; everything else is a maximal run of non-space characters. An empty
// or blank src yields no tokens.
func Tokenize(src string) []string {
	return strings.FieldsFunc(islands.Replace(src), func(r rune) bool {
		return r == separator || unicode.IsSpace(r)
	})
}
