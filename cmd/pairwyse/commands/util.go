package commands

import (
	stdjson "encoding/json"
	"io/ioutil"
	"os"
	"regexp"
	"strings"

	jww "github.com/spf13/jwalterweatherman"
	dbm "github.com/tendermint/tmlibs/db"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/database"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

const (
	// Success indicates the command completed.
	Success = iota
	// ErrLocalExe indicates the command failed.
	ErrLocalExe
	// ErrLocalParse indicates an argument or input file could not be parsed.
	ErrLocalParse
	// ErrRejected indicates a condition was evaluated and did not hold.
	ErrRejected
)

var (
	decimalRE = regexp.MustCompile(`^[0-9]+$`)
	addressRE = regexp.MustCompile(`^0[xX][0-9a-fA-F]{40}$`)
)

func exitOnError(err error, code int) {
	if err == nil {
		return
	}
	jww.ERROR.Println(err)
	os.Exit(code)
}

func printJSON(data interface{}) {
	b, err := stdjson.MarshalIndent(data, "", "  ")
	exitOnError(err, ErrLocalParse)
	jww.FEEDBACK.Println(string(b))
}

// readSource returns the contents of path, or of stdin when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		b, err := ioutil.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := ioutil.ReadFile(path)
	return string(b), err
}

func readSources(paths []string) ([]string, error) {
	srcs := make([]string, 0, len(paths))
	for _, path := range paths {
		src, err := readSource(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// parseValue reads a value the way conditions write literals: decimal
// numbers are uint256, 0x followed by 40 hex digits is an address and
// anything else (optionally double quoted) is a string.
func parseValue(s string) (vm.StackValue, error) {
	switch {
	case decimalRE.MatchString(s):
		n, err := vm.ParseUint(s)
		if err != nil {
			return vm.StackValue{}, err
		}
		return vm.NewUint(n), nil

	case addressRE.MatchString(s):
		a, err := vm.ParseAddress(s)
		if err != nil {
			return vm.StackValue{}, err
		}
		return vm.NewAddress(a), nil

	case len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return vm.NewString(s[1 : len(s)-1]), nil
	}
	return vm.NewString(s), nil
}

// parseVars turns name=value assignments into application variables.
func parseVars(assignments []string) (vm.Variables, error) {
	vars := make(vm.Variables, len(assignments))
	for _, a := range assignments {
		i := strings.IndexByte(a, '=')
		if i <= 0 {
			return nil, errors.WithDetailf(vm.ErrBadValue, "variable %q is not name=value", a)
		}

		v, err := parseValue(a[i+1:])
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s", a[:i])
		}
		vars[a[:i]] = v
	}
	return vars, nil
}

// openStore opens the array store of the configured backend. The returned
// func releases it.
func openStore() (*database.Store, func(), error) {
	switch config.DBBackend {
	case "memdb":
		return database.NewStore(dbm.NewMemDB()), func() {}, nil

	case "", "leveldb", "goleveldb":
		db, err := dbm.NewGoLevelDB("arrays", config.DBDir())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening %s", config.DBDir())
		}
		return database.NewStore(db), db.Close, nil
	}
	return nil, nil, errors.New("unknown db_backend " + config.DBBackend)
}
