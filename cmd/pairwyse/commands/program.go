package commands

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

func init() {
	RootCmd.AddCommand(assembleCmd)
	RootCmd.AddCommand(disassembleCmd)
}

var assembleCmd = &cobra.Command{
	Use:   "asm <assembly>...",
	Short: "Assemble opcode text into bytecode",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prog, err := vm.Assemble(strings.Join(args, " "))
		exitOnError(err, ErrLocalParse)
		jww.FEEDBACK.Printf("%x\n", prog)
	},
}

var disassembleCmd = &cobra.Command{
	Use:   "disasm <hex>",
	Short: "Disassemble bytecode into opcode text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prog, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		exitOnError(err, ErrLocalParse)

		text, err := vm.Disassemble(prog)
		exitOnError(err, ErrLocalParse)
		jww.FEEDBACK.Println(text)
	},
}
