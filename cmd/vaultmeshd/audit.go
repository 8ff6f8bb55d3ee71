package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/core"
)

var auditCmd = &cobra.Command{Use: "audit", Short: "walk the CashNote spend DAG to verify provenance"}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <cashnote-hex>",
	Short: "walk a CashNote's ancestor spends back to Genesis",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerifyHandler,
}

var auditFollowCmd = &cobra.Command{
	Use:   "follow <spend-address-hex>",
	Short: "walk forward from a spend to find descendant UTXOs",
	Args:  cobra.ExactArgs(1),
	RunE:  auditFollowHandler,
}

func auditVerifyHandler(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("decode cash note: %w", err)
	}
	var cn core.CashNote
	if err := core.DecodeCashNoteRLP(raw, &cn); err != nil {
		return err
	}

	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	sw, client, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout()*8)
	defer cancel()
	result, err := core.VerifySpend(ctx, client, cn)
	if err != nil {
		return fmt.Errorf("verify spend: %s", protocolErrMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reached genesis: %v\n", result.ReachedGenesis)
	fmt.Fprintf(cmd.OutOrStdout(), "generations walked: %d\n", result.Generations)
	fmt.Fprintf(cmd.OutOrStdout(), "spends visited: %d\n", result.Visited)
	return nil
}

func auditFollowHandler(cmd *cobra.Command, args []string) error {
	addr, err := core.ParseNetworkAddress(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	sw, client, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout()*8)
	defer cancel()
	rec, err := client.GetRecord(ctx, addr, core.DefaultGetConfig())
	if err != nil {
		return fmt.Errorf("get spend: %s", protocolErrMessage(err))
	}
	start, err := rec.AsSpend()
	if err != nil {
		return err
	}

	findRoyalties, _ := cmd.Flags().GetBool("find-royalties")
	var wallet core.RoyaltyWallet
	if findRoyalties {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		ws, err := core.LoadWalletStore(dir)
		if err != nil {
			return fmt.Errorf("find royalties: %w", err)
		}
		wallet = ws
	}

	result, err := core.FollowSpend(ctx, client, start, findRoyalties, wallet)
	if err != nil {
		return fmt.Errorf("follow spend: %s", protocolErrMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "royalties redeemed: %d\n", result.RoyaltiesRedeemed)
	for _, pub := range result.RedeemedUniquePubkeys {
		fmt.Fprintf(cmd.OutOrStdout(), "redeemed royalty key: %s\n", hex.EncodeToString(pub))
	}
	for _, u := range result.UTXOs {
		fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return nil
}

func init() {
	auditFollowCmd.Flags().Bool("find-royalties", false, "best-effort redeem network-royalty outputs into the configured wallet along the way")
	auditCmd.AddCommand(auditVerifyCmd, auditFollowCmd)
}
