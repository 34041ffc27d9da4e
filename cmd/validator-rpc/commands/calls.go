package commands

import (
	"fmt"

	"github.com/DOIDFoundation/validator-rpc/rpc"
	"github.com/DOIDFoundation/validator-rpc/types"
	"github.com/spf13/cobra"
)

var (
	commitment    string
	skipPreflight bool
)

// HealthCmd checks whether the node is healthy.
var HealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.GetHealth{}
		if err := call(req); err != nil {
			return err
		}
		if !req.Healthy() {
			return fmt.Errorf("node is unhealthy")
		}
		fmt.Println("ok")
		return nil
	},
}

// AccountCmd prints the state of an account.
var AccountCmd = &cobra.Command{
	Use:   "account <pubkey>",
	Short: "Show an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.GetAccountInfo{Account: args[0], Commitment: types.Commitment(commitment)}
		if err := call(req); err != nil {
			return err
		}
		if !req.Found() {
			return fmt.Errorf("account %s not found", args[0])
		}
		return printJSON(req.Info())
	},
}

// BlockhashCmd prints a recent blockhash.
var BlockhashCmd = &cobra.Command{
	Use:   "blockhash",
	Short: "Show a recent blockhash",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.GetRecentBlockhash{Commitment: types.Commitment(commitment)}
		if err := call(req); err != nil {
			return err
		}
		return printJSON(req.Blockhash())
	},
}

// SlotCmd prints the current slot.
var SlotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Show the current slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.GetSlot{Commitment: types.Commitment(commitment)}
		if err := call(req); err != nil {
			return err
		}
		fmt.Println(req.Slot())
		return nil
	},
}

// SendTxCmd submits a signed transaction.
var SendTxCmd = &cobra.Command{
	Use:   "send-tx <base64>",
	Short: "Submit a signed, base64 encoded transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.SendTransaction{
			Transaction:   args[0],
			SkipPreflight: skipPreflight,
			Commitment:    types.Commitment(commitment),
		}
		if err := call(req); err != nil {
			for _, line := range req.Logs() {
				logger.Error("simulation", "log", line)
			}
			return err
		}
		fmt.Println(req.Signature())
		return nil
	},
}

func addCommitmentFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&commitment, "commitment", "", "commitment level: processed, confirmed or finalized")
}

func init() {
	for _, cmd := range []*cobra.Command{AccountCmd, BlockhashCmd, SlotCmd, SendTxCmd, WatchSignatureCmd, WatchAccountCmd} {
		addCommitmentFlag(cmd)
	}
	SendTxCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip the preflight simulation")
}
