package main

import (
	"github.com/tendermint/tmlibs/cli"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/cmd/pairwyse/commands"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
)

func main() {
	cmd := cli.PrepareBaseCmd(commands.RootCmd, "PAIRWYSE", config.DefaultDataDir())
	cmd.Execute()
}
