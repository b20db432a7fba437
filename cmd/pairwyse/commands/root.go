package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/log"
)

var (
	config = cfg.DefaultConfig()
)

// RootCmd is the pairwyse root command. Every other command is attached
// to it in the init functions of this package.
var RootCmd = &cobra.Command{
	Use:   "pairwyse",
	Short: "Compile and run agreement conditions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(config); err != nil {
			return err
		}
		config.SetRoot(config.RootDir)
		cfg.CommonConfig = config
		return log.SetLevel(config.LogLevel)
	},
}
