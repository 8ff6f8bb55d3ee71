package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/core"
)

var registerCmd = &cobra.Command{Use: "register", Short: "read and write owner-keyed CRDT registers"}

var registerWriteCmd = &cobra.Command{
	Use:   "write <meta> <value>",
	Short: "append a new op to a register, fetching and merging the current state first",
	Args:  cobra.ExactArgs(2),
	RunE:  registerWriteHandler,
}

var registerGetCmd = &cobra.Command{
	Use:   "get <meta>",
	Short: "fetch a register and print its current tips",
	Args:  cobra.ExactArgs(1),
	RunE:  registerGetHandler,
}

func registerOwner(cmd *cobra.Command) (core.MainSecretKey, error) {
	return mainSecretKeyFromFlags(cmd)
}

func registerGetHandler(cmd *cobra.Command, args []string) error {
	meta := args[0]
	msk, err := registerOwner(cmd)
	if err != nil {
		return err
	}
	pub, err := msk.PublicKey()
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

	addr := core.RegisterAddress(meta, pub.Ed25519)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout())
	defer cancel()
	rec, err := client.GetRecord(ctx, addr, core.DefaultGetConfig())
	if err != nil {
		return fmt.Errorf("get register: %s", protocolErrMessage(err))
	}
	reg, err := rec.AsRegister()
	if err != nil {
		return err
	}
	for _, tip := range reg.Tips() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tip.Hash(), string(tip.Value))
	}
	return nil
}

func registerWriteHandler(cmd *cobra.Command, args []string) error {
	meta, value := args[0], args[1]
	msk, err := registerOwner(cmd)
	if err != nil {
		return err
	}
	pub, err := msk.PublicKey()
	if err != nil {
		return err
	}
	identity := msk.IdentityKeypair()

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

	addr := core.RegisterAddress(meta, pub.Ed25519)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout())
	defer cancel()

	reg := core.Register{Meta: meta, Owner: pub.Ed25519}
	if existing, err := client.GetRecord(ctx, addr, core.DefaultGetConfig()); err == nil {
		if merged, mergeErr := existing.AsRegister(); mergeErr == nil {
			reg = merged
		}
	}

	op := core.SignRegisterOp(identity, tipsAsParents(reg), []byte(value))
	if err := reg.Write(op); err != nil {
		return err
	}

	rec, err := core.NewRegisterRecord(reg)
	if err != nil {
		return err
	}
	if err := client.PutRecord(ctx, rec, core.DefaultPutConfig()); err != nil {
		return fmt.Errorf("put register: %s", protocolErrMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote op %s to register %s\n", op.Hash(), addr)
	return nil
}

func tipsAsParents(reg core.Register) []core.Hash {
	tips := reg.Tips()
	parents := make([]core.Hash, 0, len(tips))
	for _, t := range tips {
		parents = append(parents, t.Hash())
	}
	return parents
}

func init() {
	registerWriteCmd.Flags().String("mnemonic", "", "recovery mnemonic owning the register (or set VAULTMESH_MNEMONIC)")
	registerGetCmd.Flags().String("mnemonic", "", "recovery mnemonic owning the register (or set VAULTMESH_MNEMONIC)")
	registerCmd.AddCommand(registerWriteCmd, registerGetCmd)
}
