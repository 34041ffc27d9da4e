package commands

import (
	"fmt"

	"github.com/DOIDFoundation/validator-rpc/config"
	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpc"
	"github.com/DOIDFoundation/validator-rpc/types"
	"github.com/spf13/cobra"
)

const printer = "cli"

// WatchSignatureCmd waits for a transaction to be confirmed.
var WatchSignatureCmd = &cobra.Command{
	Use:   "watch-signature <signature>",
	Short: "Wait until a transaction reaches its commitment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		events.SignatureConfirmed.Subscribe(printer, func(status types.SignatureStatus) {
			printJSON(status)
		})
		defer events.SignatureConfirmed.Unsubscribe(printer).Wait()

		req := &rpc.SignatureSubscribe{
			Signature:  args[0],
			Commitment: types.Commitment(commitment),
			Feed:       events.SignatureConfirmed,
		}
		if err := watch(cfg, req, (*rpc.SignatureSubscribe).Confirmed); err != nil {
			return err
		}
		if err := req.Status().Err; err != "" {
			return fmt.Errorf("transaction failed: %s", err)
		}
		return nil
	},
}

// WatchAccountCmd prints an account every time it changes.
var WatchAccountCmd = &cobra.Command{
	Use:   "watch-account <pubkey>",
	Short: "Print the state of an account whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		cache, err := rpc.NewAccountCache(cfg.CacheSize)
		if err != nil {
			return err
		}
		// States older than the cached one are stale and not printed.
		events.AccountChanged.Subscribe(printer, func(info types.AccountInfo) {
			if cache.Update(info) {
				printJSON(info)
			}
		})
		defer events.AccountChanged.Unsubscribe(printer).Wait()

		// The first state comes from getAccountInfo, later ones from the
		// subscription.
		initial := &rpc.GetAccountInfo{
			Account:    args[0],
			Commitment: types.Commitment(commitment),
			Feed:       events.AccountChanged,
		}
		if err := call(initial); err != nil {
			return err
		}
		req := &rpc.AccountSubscribe{
			Account:    args[0],
			Commitment: types.Commitment(commitment),
			Feed:       events.AccountChanged,
		}
		return watch(cfg, req, nil)
	},
}

// WatchSlotsCmd prints every slot processed by the node.
var WatchSlotsCmd = &cobra.Command{
	Use:   "watch-slots",
	Short: "Print every slot processed by the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		events.SlotChanged.Subscribe(printer, func(slot types.SlotInfo) {
			printJSON(slot)
		})
		defer events.SlotChanged.Unsubscribe(printer).Wait()

		count, err := cmd.Flags().GetUint64("count")
		if err != nil {
			return err
		}
		var until func(*rpc.SlotSubscribe) bool
		if count > 0 {
			until = func(r *rpc.SlotSubscribe) bool { return r.Notifications() >= count }
		}
		return watch(cfg, &rpc.SlotSubscribe{Feed: events.SlotChanged}, until)
	},
}

func init() {
	WatchSlotsCmd.Flags().Uint64("count", 0, "stop after this many slots, 0 watches forever")
}
