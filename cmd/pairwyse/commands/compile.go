package commands

import (
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/dsl/compiler"
)

var (
	compileJSON bool
	compilePostfix  bool
)

func init() {
	compileCmd.Flags().BoolVar(&compileJSON, "json", false, "print the compiled program as JSON")
	compileCmd.Flags().BoolVar(&compilePostfix, "postfix", false, "print the postfix token sequence only")
	RootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile <file>...",
	Short: "Compile conditions to bytecode",
	Long: `Compile each file (or - for stdin) as one condition. Several files are
joined into a program that holds only when all of them hold.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		srcs, err := readSources(args)
		exitOnError(err, ErrLocalParse)

		if compilePostfix {
			for _, src := range srcs {
				postfix, err := compiler.Convert(compiler.Tokenize(src))
				exitOnError(err, ErrLocalParse)
				jww.FEEDBACK.Println(strings.Join(postfix, " "))
			}
			return
		}

		var prog *compiler.Program
		if len(srcs) == 1 {
			prog, err = compiler.Compile(srcs[0])
		} else {
			prog, err = compiler.CompileAll(srcs)
		}
		exitOnError(err, ErrLocalParse)

		if compileJSON {
			printJSON(prog)
			return
		}
		jww.FEEDBACK.Printf("%x\n", []byte(prog.Code))
	},
}
