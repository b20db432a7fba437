package commands

import (
	"os"

	"github.com/pborman/uuid"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/agreement"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

var (
	evalVars  []string
	evalTrace bool
)

func init() {
	evalCmd.Flags().StringArrayVar(&evalVars, "var", nil, "application variable as name=value (repeatable)")
	evalCmd.Flags().BoolVar(&evalTrace, "vmtrace", false, "print every executed instruction and the stack after it")
	RootCmd.AddCommand(evalCmd)
}

type evalResult struct {
	Verdict bool     `json:"verdict"`
	Stack   []string `json:"stack"`
}

var evalCmd = &cobra.Command{
	Use:   "eval <file>...",
	Short: "Evaluate conditions without changing any array",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		srcs, err := readSources(args)
		exitOnError(err, ErrLocalParse)

		app, err := parseVars(evalVars)
		exitOnError(err, ErrLocalParse)

		store, closeStore, err := openStore()
		exitOnError(err, ErrLocalExe)
		defer closeStore()

		if evalTrace {
			vm.TraceOut = os.Stdout
		}

		gate := agreement.NewGate(store, config)
		rec := &agreement.Record{ID: uuid.New(), Conditions: srcs}
		ok, vmctx, err := gate.Evaluate(rec, app)
		if err != nil {
			jww.ERROR.Println(err)
			closeStore()
			os.Exit(ErrLocalExe)
		}

		res := &evalResult{Verdict: ok}
		for _, v := range vmctx.Stack.Items() {
			res.Stack = append(res.Stack, v.String())
		}
		printJSON(res)

		if !ok {
			closeStore()
			os.Exit(ErrRejected)
		}
	},
}
