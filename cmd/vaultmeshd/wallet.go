package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/core"
)

var walletCmd = &cobra.Command{Use: "wallet", Short: "manage a watch-only wallet directory and its CashNotes"}

func walletDir(cmd *cobra.Command) (string, error) {
	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Wallet.Dir, nil
}

// mainSecretKeyFromFlags loads the spending key from --mnemonic or the
// VAULTMESH_MNEMONIC environment variable. WalletStore never holds this key
// on disk (see core/wallet_store.go), so any command that signs a spend
// must be handed the mnemonic out of band, matching a watch-only wallet's
// split between balance tracking and spending authority.
func mainSecretKeyFromFlags(cmd *cobra.Command) (core.MainSecretKey, error) {
	mnemonic, _ := cmd.Flags().GetString("mnemonic")
	if mnemonic == "" {
		mnemonic = os.Getenv("VAULTMESH_MNEMONIC")
	}
	if mnemonic == "" {
		return core.MainSecretKey{}, fmt.Errorf("no mnemonic supplied: pass --mnemonic or set VAULTMESH_MNEMONIC")
	}
	return core.NewMainSecretKeyFromMnemonic(mnemonic, "")
}

var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "generate a new wallet identity and initialize its wallet directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		msk, mnemonic, err := core.GenerateMainSecretKey()
		if err != nil {
			return err
		}
		pub, err := msk.PublicKey()
		if err != nil {
			return err
		}
		if _, err := core.CreateWalletStore(dir, pub); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wallet initialized at %s\n", dir)
		fmt.Fprintf(cmd.OutOrStdout(), "address (ed25519): %s\n", hex.EncodeToString(pub.Ed25519))
		fmt.Fprintf(cmd.OutOrStdout(), "address (x25519):  %s\n", hex.EncodeToString(pub.X25519[:]))
		fmt.Fprintln(cmd.OutOrStdout(), "recovery mnemonic (write this down, it is never stored on disk):")
		fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "print this wallet's main public key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		ws, err := core.LoadWalletStore(dir)
		if err != nil {
			return err
		}
		pub := ws.Owner()
		fmt.Fprintf(cmd.OutOrStdout(), "ed25519: %s\n", hex.EncodeToString(pub.Ed25519))
		fmt.Fprintf(cmd.OutOrStdout(), "x25519:  %s\n", hex.EncodeToString(pub.X25519[:]))
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "print the wallet's total available balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		ws, err := core.LoadWalletStore(dir)
		if err != nil {
			return err
		}
		bal, err := ws.Balance()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bal)
		return nil
	},
}

var walletGenesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "mint the network genesis CashNote into this wallet (test/bootstrap networks only)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		ws, err := core.LoadWalletStore(dir)
		if err != nil {
			return err
		}
		cn, err := core.NewGenesisCashNote(ws.Owner())
		if err != nil {
			return err
		}
		n, err := ws.Deposit([]core.CashNote{cn})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deposited %d genesis note(s) worth %d\n", n, core.GenesisAmount)
		return nil
	},
}

var walletReceiveCmd = &cobra.Command{
	Use:   "receive <cashnote-hex>",
	Short: "deposit a hex-encoded CashNote received out of band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := walletDir(cmd)
		if err != nil {
			return err
		}
		ws, err := core.LoadWalletStore(dir)
		if err != nil {
			return err
		}
		cn, err := decodeCashNoteHex(args[0])
		if err != nil {
			return err
		}
		n, err := ws.Deposit([]core.CashNote{cn})
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "note not owned by this wallet or already held: nothing deposited")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deposited 1 note")
		return nil
	},
}

var walletSendCmd = &cobra.Command{
	Use:   "send <recipient-ed25519-hex> <recipient-x25519-hex> <amount>",
	Short: "spend CashNotes to a recipient's main public key and publish the spends to the network",
	Args:  cobra.ExactArgs(3),
	RunE:  walletSendHandler,
}

func decodeCashNoteHex(s string) (core.CashNote, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return core.CashNote{}, fmt.Errorf("decode cash note: %w", err)
	}
	var cn core.CashNote
	if err := core.DecodeCashNoteRLP(raw, &cn); err != nil {
		return core.CashNote{}, err
	}
	return cn, nil
}

func walletSendHandler(cmd *cobra.Command, args []string) error {
	recipientEd, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("recipient ed25519 key: %w", err)
	}
	recipientXRaw, err := hex.DecodeString(args[1])
	if err != nil || len(recipientXRaw) != 32 {
		return fmt.Errorf("recipient x25519 key must be 32 bytes hex")
	}
	amount, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	var recipientX [32]byte
	copy(recipientX[:], recipientXRaw)
	recipient := core.MainPubkey{Ed25519: recipientEd, X25519: recipientX}

	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	msk, err := mainSecretKeyFromFlags(cmd)
	if err != nil {
		return err
	}
	ws, err := core.LoadWalletStore(cfg.Wallet.Dir)
	if err != nil {
		return err
	}

	outCN, changeCN, signed, err := core.BuildTransfer(msk, ws, recipient, amount)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	sw, client, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout()*4)
	defer cancel()
	for _, ss := range signed {
		rec, err := core.NewSpendRecord(ss)
		if err != nil {
			return err
		}
		if err := client.PutRecord(ctx, rec, core.DefaultPutConfig()); err != nil {
			return fmt.Errorf("publish spend: %s", protocolErrMessage(err))
		}
		if err := ws.MarkSpent(ss.Spend.UniquePubkey); err != nil {
			return err
		}
	}
	if changeCN != nil {
		if _, err := ws.Deposit([]core.CashNote{*changeCN}); err != nil {
			return err
		}
	}
	if err := ws.RecordPaymentTransaction(outCN.ParentTx); err != nil {
		return err
	}

	encoded, err := core.EncodeCashNoteRLP(outCN)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "send this CashNote to the recipient out of band:")
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
	return nil
}

func init() {
	walletSendCmd.Flags().String("mnemonic", "", "recovery mnemonic authorizing the spend (or set VAULTMESH_MNEMONIC)")
	walletCmd.AddCommand(walletInitCmd, walletAddressCmd, walletBalanceCmd, walletGenesisCmd, walletReceiveCmd, walletSendCmd)
}
