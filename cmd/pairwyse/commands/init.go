package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
)

var initFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the home directory",
	Run:   initFiles,
}

func init() {
	RootCmd.AddCommand(initFilesCmd)
}

func initFiles(cmd *cobra.Command, args []string) {
	cfg.EnsureRoot(config.RootDir)
	log.WithField("home", config.RootDir).Info("Initialized pairwyse")
}
