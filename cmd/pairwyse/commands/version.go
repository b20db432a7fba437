package commands

import (
	"runtime"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pairwyse",
	Run: func(cmd *cobra.Command, args []string) {
		jww.FEEDBACK.Printf("pairwyse v%s %s/%s\n", version.Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
