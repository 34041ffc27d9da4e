package commands

import (
	"os"

	"github.com/DOIDFoundation/validator-rpc/config"
	"github.com/DOIDFoundation/validator-rpc/flags"
	"github.com/cometbft/cometbft/libs/cli"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logger  = log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	verbose bool
)

// RootCmd is the root command for validator-rpc. It is called once in the
// main function.
var RootCmd = &cobra.Command{
	Use:          "validator-rpc",
	Short:        "JSON-RPC client of a validator node",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		viper.AddConfigPath(".")
		if viper.GetBool(flags.Trace) {
			logger = log.NewTracingLogger(logger)
		}

		logger, err = cmtflags.ParseLogLevel(viper.GetString(flags.Log_Level), logger.With("module", "main"), cmd.Flag(flags.Log_Level).DefValue)
		return err
	},
}

func init() {
	config.SetDefaults()

	pf := RootCmd.PersistentFlags()
	pf.String(flags.Log_Level, "error", "level of logging, can be debug, info, error, none or comma-separated list of module:level pairs with an optional *:level pair (* means all other modules). e.g. 'ws:debug,*:error'")
	pf.String(flags.RPC_HTTP, config.DefaultConfig.HTTPAddress, "HTTP endpoint of the node")
	pf.String(flags.RPC_WS, config.DefaultConfig.WSAddress, "websocket endpoint of the node")
	pf.Duration(flags.RPC_Timeout, config.DefaultConfig.Timeout, "how long to wait for a reply")
	pf.String(flags.Metrics_Addr, config.DefaultConfig.Metrics.ListenAddress, "serve prometheus metrics on this address, e.g. 127.0.0.1:9090")
	pf.String(flags.Metrics_Namespace, config.DefaultConfig.Metrics.Namespace, "namespace of the prometheus metrics")
	pf.Int(flags.Cache_Size, config.DefaultConfig.CacheSize, "number of accounts kept while watching")

	RootCmd.AddCommand(
		HealthCmd,
		AccountCmd,
		BlockhashCmd,
		SlotCmd,
		SendTxCmd,
		WatchSignatureCmd,
		WatchAccountCmd,
		WatchSlotsCmd,
		VersionCmd,
		cli.NewCompletionCmd(RootCmd, true),
	)
}
