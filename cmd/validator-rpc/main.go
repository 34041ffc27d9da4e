package main

import (
	"os"
	"path/filepath"

	"github.com/DOIDFoundation/validator-rpc/cmd/validator-rpc/commands"

	"github.com/cometbft/cometbft/libs/cli"
)

func main() {
	cmd := cli.PrepareBaseCmd(commands.RootCmd, "VRPC", os.ExpandEnv(filepath.Join("$HOME", ".validator-rpc")))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
