package commands

import (
	"strconv"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/database"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

func init() {
	arrayCmd.AddCommand(arrayDeclareCmd)
	arrayCmd.AddCommand(arrayPushCmd)
	arrayCmd.AddCommand(arrayGetCmd)
	arrayCmd.AddCommand(arrayHeadCmd)
	arrayCmd.AddCommand(arrayListCmd)
	arrayCmd.AddCommand(arrayRemoveCmd)
	RootCmd.AddCommand(arrayCmd)
}

var arrayCmd = &cobra.Command{
	Use:   "array",
	Short: "Inspect and edit the named arrays conditions read",
}

// withStore runs fn against the opened store and exits on failure.
func withStore(fn func(store *database.Store) error) {
	store, closeStore, err := openStore()
	exitOnError(err, ErrLocalExe)

	err = fn(store)
	closeStore()
	exitOnError(err, ErrLocalExe)
}

var arrayDeclareCmd = &cobra.Command{
	Use:   "declare <name> <uint256|string|address>",
	Short: "Create an empty array, dropping any previous one of that name",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tag, ok := vm.TagByName(args[1])
		if !ok || tag == vm.TagArray {
			exitOnError(errors.WithDetailf(vm.ErrBadValue, "element type %q", args[1]), ErrLocalParse)
		}
		withStore(func(store *database.Store) error {
			return store.Declare(args[0], tag)
		})
	},
}

var arrayPushCmd = &cobra.Command{
	Use:   "push <name> <value>...",
	Short: "Append values to an array",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		values := make([]vm.StackValue, 0, len(args)-1)
		for _, arg := range args[1:] {
			v, err := parseValue(arg)
			exitOnError(err, ErrLocalParse)
			values = append(values, v)
		}

		withStore(func(store *database.Store) error {
			for _, v := range values {
				if err := store.Append(args[0], v); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var arrayGetCmd = &cobra.Command{
	Use:   "get <name> <index>",
	Short: "Print one element of an array",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := strconv.ParseUint(args[1], 10, 64)
		exitOnError(err, ErrLocalParse)

		withStore(func(store *database.Store) error {
			v, err := store.Element(args[0], index)
			if err != nil {
				return err
			}
			jww.FEEDBACK.Println(v.String())
			return nil
		})
	},
}

type headInfo struct {
	Name     string `json:"name"`
	IsArray  bool   `json:"is_array"`
	ElemType string `json:"elem_type"`
	Head     string `json:"head"`
	Length   uint64 `json:"length"`
}

var arrayHeadCmd = &cobra.Command{
	Use:   "head <name>",
	Short: "Print the storage slot of a name",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(func(store *database.Store) error {
			isArray, elemType, head, err := store.GetHead(args[0])
			if err != nil {
				return err
			}
			n, err := store.Len(args[0])
			if err != nil {
				return err
			}
			printJSON(&headInfo{
				Name:     args[0],
				IsArray:  isArray,
				ElemType: elemType.String(),
				Head:     head.String(),
				Length:   n,
			})
			return nil
		})
	},
}

var arrayListCmd = &cobra.Command{
	Use:   "list [name]",
	Short: "List array names, or the elements of one array",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(func(store *database.Store) error {
			if len(args) == 0 {
				for _, name := range store.Names() {
					jww.FEEDBACK.Println(name)
				}
				return nil
			}

			values, err := store.Elements(args[0])
			if err != nil {
				return err
			}
			for i, v := range values {
				jww.FEEDBACK.Printf("%d\t%s\n", i, v)
			}
			return nil
		})
	},
}

var arrayRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete an array and its elements",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(func(store *database.Store) error {
			return store.Remove(args[0])
		})
	},
}
