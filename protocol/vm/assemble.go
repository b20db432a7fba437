package vm

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/holiman/uint256"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

// Assemble converts a string like "5 LOADVAR:x LESSTHAN JUMPIF:$ok FAIL $ok"
// into a program. Decimal literals push uint256 values, 0x-prefixed 40 digit
// hex pushes an address, other 0x-prefixed hex pushes its bytes as a
// uint256 and 'quoted' text pushes a string. Data-carrying ops take their
// operand after a colon: LOADVAR:name, ARRGET:name:index,
// ARRDECLARE:name:type. Jumps name a $label defined elsewhere in the text.
func Assemble(s string) (res []byte, err error) {
	// maps labels to the location each refers to
	locations := make(map[string]uint32)

	// maps unresolved uses of labels to the locations that need to be filled in
	unresolved := make(map[string][]int)

	handleJump := func(op Op, target string) error {
		res = append(res, byte(op))
		l := len(res)

		var fourBytes [4]byte
		res = append(res, fourBytes[:]...)

		if !strings.HasPrefix(target, "$") {
			n, err := strconv.ParseUint(target, 10, 32)
			if err != nil {
				return errors.WithDetailf(ErrToken, "jump target %q", target)
			}
			binary.LittleEndian.PutUint32(res[l:], uint32(n))
			return nil
		}
		if loc, ok := locations[target]; ok {
			binary.LittleEndian.PutUint32(res[l:], loc)
		} else {
			unresolved[target] = append(unresolved[target], l)
		}
		return nil
	}

	push := func(op Op, data []byte) error {
		inst, err := PushDataOp(op, data)
		if err != nil {
			return err
		}
		res = append(res, inst...)
		return nil
	}

	tokens, err := scanAsm(s)
	if err != nil {
		return nil, err
	}

	for _, token := range tokens {
		switch {
		case strings.HasPrefix(token, "'"):
			if err := push(OP_PUSHSTRING, []byte(unquoteAsm(token))); err != nil {
				return nil, err
			}

		case strings.HasPrefix(token, "$"):
			if _, seen := locations[token]; seen {
				return nil, errors.WithDetailf(ErrToken, "label %s redefined", token)
			}
			locations[token] = uint32(len(res))
			for _, l := range unresolved[token] {
				binary.LittleEndian.PutUint32(res[l:], uint32(len(res)))
			}
			delete(unresolved, token)

		case strings.HasPrefix(token, "0x"):
			bytes, err := hex.DecodeString(strings.TrimPrefix(token, "0x"))
			if err != nil {
				return nil, err
			}
			switch {
			case len(bytes) == AddressLength:
				err = push(OP_PUSHADDRESS, bytes)
			case len(bytes) <= 32:
				err = push(OP_PUSHUINT, bytes)
			default:
				return nil, errors.WithDetailf(ErrRange, "%s is wider than 256 bits", token)
			}
			if err != nil {
				return nil, err
			}

		case token[0] >= '0' && token[0] <= '9':
			n, err := ParseUint(token)
			if err != nil {
				return nil, errors.WithDetailf(err, "literal %s", token)
			}
			inst, err := PushValue(NewUint(n))
			if err != nil {
				return nil, err
			}
			res = append(res, inst...)

		default:
			name, arg := token, ""
			if i := strings.Index(token, ":"); i >= 0 {
				name, arg = token[:i], token[i+1:]
			}

			info, ok := opsByName[name]
			if !ok {
				return nil, errors.WithDetailf(ErrToken, "%q", token)
			}

			switch {
			case isJump[info.op]:
				if err := handleJump(info.op, arg); err != nil {
					return nil, err
				}
			case hasData[info.op]:
				data, err := asmData(info.op, arg)
				if err != nil {
					return nil, err
				}
				if err := push(info.op, data); err != nil {
					return nil, errors.Wrapf(err, "%s", name)
				}
			default:
				if arg != "" {
					return nil, errors.WithDetailf(ErrToken, "%s takes no operand", name)
				}
				res = append(res, byte(info.op))
			}
		}
	}

	if len(unresolved) > 0 {
		for label := range unresolved {
			return nil, errors.WithDetailf(ErrToken, "undefined label %s", label)
		}
	}
	return res, nil
}

func asmData(op Op, arg string) ([]byte, error) {
	switch op {
	case OP_ARRGET:
		i := strings.LastIndex(arg, ":")
		if i < 0 {
			return nil, errors.WithDetailf(ErrToken, "ARRGET needs name:index, got %q", arg)
		}
		index, err := strconv.ParseUint(arg[i+1:], 10, 64)
		if err != nil {
			return nil, errors.WithDetailf(ErrToken, "ARRGET index %q", arg[i+1:])
		}
		return ArrGetData(arg[:i], index), nil

	case OP_ARRDECLARE:
		i := strings.LastIndex(arg, ":")
		if i < 0 {
			return nil, errors.WithDetailf(ErrToken, "ARRDECLARE needs name:type, got %q", arg)
		}
		tag, ok := TagByName(arg[i+1:])
		if !ok {
			return nil, errors.WithDetailf(ErrToken, "unknown element type %q", arg[i+1:])
		}
		return append([]byte{byte(tag)}, arg[:i]...), nil

	case OP_PUSHUINT, OP_PUSHSTRING, OP_PUSHADDRESS:
		if !strings.HasPrefix(arg, "0x") {
			return nil, errors.WithDetailf(ErrToken, "%s operand must be hex", op)
		}
		return hex.DecodeString(arg[2:])
	}

	if arg == "" {
		return nil, errors.WithDetailf(ErrToken, "%s needs an operand", op)
	}
	return []byte(arg), nil
}

// TagByName returns the value tag called s. TagNone has no name.
func TagByName(s string) (Tag, bool) {
	for tag, name := range tagNames {
		if name == s && tag != TagNone {
			return tag, true
		}
	}
	return TagNone, false
}

// scanAsm splits assembly text on whitespace, keeping 'quoted strings'
// (with \' and \\ escapes) as single tokens.
func scanAsm(s string) ([]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), len(s)+1)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		start := 0
		for start < len(data) && unicode.IsSpace(rune(data[start])) {
			start++
		}
		if start == len(data) {
			return start, nil, nil
		}

		if data[start] == '\'' {
			for i := start + 1; i < len(data); i++ {
				switch data[i] {
				case '\\':
					i++
				case '\'':
					return i + 1, data[start : i+1], nil
				}
			}
			if atEOF {
				return 0, nil, errors.WithDetail(ErrToken, "unterminated quote")
			}
			return start, nil, nil
		}

		for i := start; i < len(data); i++ {
			if unicode.IsSpace(rune(data[i])) {
				return i, data[start:i], nil
			}
		}
		if atEOF {
			return len(data), data[start:], nil
		}
		return start, nil, nil
	})

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	return tokens, scanner.Err()
}

func quoteAsm(s string) string {
	s = strings.Replace(s, `\`, `\\`, -1)
	return "'" + strings.Replace(s, `'`, `\'`, -1) + "'"
}

func unquoteAsm(token string) string {
	body := token[1 : len(token)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

// Disassemble renders prog in the syntax accepted by Assemble. Jump
// targets are given labels $L0, $L1, ... in address order.
func Disassemble(prog []byte) (string, error) {
	insts, err := ParseProgram(prog)
	if err != nil {
		return "", err
	}

	targets := make(map[uint32]bool)
	for _, inst := range insts {
		if isJump[inst.Op] {
			targets[binary.LittleEndian.Uint32(inst.Data)] = true
		}
	}
	addrs := make([]uint32, 0, len(targets))
	for addr := range targets {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	labels := make(map[uint32]string, len(addrs))
	for i, addr := range addrs {
		labels[addr] = fmt.Sprintf("$L%d", i)
	}

	var (
		strs []string
		pc   uint32
	)
	for _, inst := range insts {
		if label, ok := labels[pc]; ok {
			strs = append(strs, label)
		}
		strs = append(strs, disassembleInst(inst, labels))
		pc += inst.Len
	}
	if label, ok := labels[pc]; ok {
		strs = append(strs, label)
	}
	return strings.Join(strs, " "), nil
}

func disassembleInst(inst Instruction, labels map[uint32]string) string {
	switch {
	case isJump[inst.Op]:
		addr := binary.LittleEndian.Uint32(inst.Data)
		if label, ok := labels[addr]; ok {
			return fmt.Sprintf("%s:%s", inst.Op, label)
		}
		return fmt.Sprintf("%s:%d", inst.Op, addr)

	case inst.Op == OP_PUSHUINT:
		if len(inst.Data) > 32 {
			return fmt.Sprintf("%s:0x%x", inst.Op, inst.Data)
		}
		return NewUint(new(uint256.Int).SetBytes(inst.Data)).String()

	case inst.Op == OP_PUSHSTRING:
		return quoteAsm(string(inst.Data))

	case inst.Op == OP_PUSHADDRESS:
		if len(inst.Data) != AddressLength {
			return fmt.Sprintf("%s:0x%x", inst.Op, inst.Data)
		}
		return fmt.Sprintf("0x%x", inst.Data)

	case inst.Op == OP_ARRGET && len(inst.Data) >= 8:
		return fmt.Sprintf("%s:%s:%d", inst.Op, inst.Data[8:], binary.BigEndian.Uint64(inst.Data[:8]))

	case inst.Op == OP_ARRDECLARE && len(inst.Data) >= 1:
		return fmt.Sprintf("%s:%s:%s", inst.Op, inst.Data[1:], Tag(inst.Data[0]))

	case hasData[inst.Op]:
		return fmt.Sprintf("%s:%s", inst.Op, inst.Data)
	}
	return inst.Op.String()
}
