package commands

import (
	"context"
	stdjson "encoding/json"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/agreement"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/log"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/version"
)

var (
	runVars    []string
	runLogFile bool
)

func init() {
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "application variable as name=value (repeatable)")
	runCmd.Flags().BoolVar(&runLogFile, "log-file", false, "write logs to the log directory instead of the console")
	RootCmd.AddCommand(runCmd)
}

// recordsFile is the document read by the run command.
type recordsFile struct {
	Version string              `json:"version"`
	Records []*agreement.Record `json:"records"`
}

type runResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func loadRecords(path string) (*recordsFile, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := &recordsFile{}
	if err := stdjson.Unmarshal(b, f); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	if err := version.Check(f.Version); err != nil {
		return nil, errors.Wrapf(err, "records file %s", path)
	}
	return f, nil
}

var runCmd = &cobra.Command{
	Use:   "run <records.json> [id]...",
	Short: "Execute agreement records whose conditions hold",
	Long: `Execute the records of an agreement file. Each record runs at most once
per data directory; records whose conditions do not hold are reported and
left for a later run. Without ids every record is tried in id order.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if runLogFile {
			exitOnError(log.InitLogFile(config), ErrLocalExe)
		}

		f, err := loadRecords(args[0])
		exitOnError(err, ErrLocalParse)

		app, err := parseVars(runVars)
		exitOnError(err, ErrLocalParse)

		store, closeStore, err := openStore()
		exitOnError(err, ErrLocalExe)
		defer closeStore()

		gate := agreement.NewGate(store, config)
		for _, rec := range f.Records {
			if err := gate.AddRecord(rec); err != nil {
				closeStore()
				exitOnError(err, ErrLocalParse)
			}
		}

		ids := args[1:]
		if len(ids) == 0 {
			for _, rec := range gate.Records() {
				ids = append(ids, rec.ID)
			}
		}

		code := Success
		results := make([]*runResult, 0, len(ids))
		for _, id := range ids {
			res := &runResult{ID: id, Status: "executed"}
			_, err := gate.ExecuteByID(context.Background(), id, app, nil)
			switch errors.Root(err) {
			case nil:
			case agreement.ErrAlreadyExecuted:
				res.Status = "already executed"
			case agreement.ErrConditionNotMet:
				res.Status = "condition not met"
				if code == Success {
					code = ErrRejected
				}
			default:
				res.Status = "failed"
				res.Error = err.Error()
				code = ErrLocalExe
			}
			results = append(results, res)
		}

		printJSON(results)
		if code != Success {
			closeStore()
			os.Exit(code)
		}
	},
}
