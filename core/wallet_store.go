package core

// WalletStore: an on-disk keyless wallet directory. Grounded on
// sn_transfers/src/wallet/watch_only.rs's WatchOnlyWallet: a main public
// key file, one file per held CashNote, a keyless wallet file tracking
// available_cash_notes and payment_transactions, and an exclusive file
// lock guarding the lock -> reload -> mutate -> store cycle so two
// processes sharing a wallet directory never interleave writes.
// gofrs/flock (used for the lockfile itself, not a teacher dependency but
// one the wider pack's node implementations pull in for the same purpose)
// stands in for the original's OS-level advisory lock on a fixed lock
// file path.
//
// The wallet file itself is encoding/json rather than RLP: it holds Go
// maps (available_cash_notes: unique_pubkey -> amount, and a payment
// transaction log keyed similarly), and go-ethereum's rlp package has no
// support for encoding map types. Every other on-disk shape here (the main
// pubkey, individual cash-note files) keeps RLP since those are plain
// structs crossing the same canonical-encoding boundary as wire records.

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gofrs/flock"
)

const (
	walletLockFile     = "wallet.lock"
	walletPubkeyFile   = "main_pubkey"
	walletCashNotesDir = "cash_notes"
	walletFile         = "wallet"
	walletLockTimeout  = 5 * time.Second
)

// WalletStore is a handle onto a wallet directory. It holds no secret
// material in memory beyond what the caller supplies per call: deposits
// only need the owner's MainPubkey to decide whether a CashNote belongs to
// this wallet, matching watch_only.rs's "watch only" design where the
// store itself never needs the spending key.
type WalletStore struct {
	dir   string
	owner MainPubkey
}

// keylessWallet is the on-disk shape of the wallet file (base spec §3,
// §4.D): the set of currently-spendable CashNotes by unique pubkey, and a
// log of payment transactions. It never holds a cash note's full byte
// content — that lives under cash_notes/, which MarkSpent never deletes
// from (§4.D: "mark_notes_as_spent removes entries from
// available_cash_notes but does not delete on-disk cash-note files").
type keylessWallet struct {
	AvailableCashNotes  map[string]uint64      `json:"available_cash_notes"`
	PaymentTransactions map[string]Transaction `json:"payment_transactions"`
}

func emptyKeylessWallet() keylessWallet {
	return keylessWallet{
		AvailableCashNotes:  make(map[string]uint64),
		PaymentTransactions: make(map[string]Transaction),
	}
}

func readKeylessWallet(path string) (keylessWallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyKeylessWallet(), nil
		}
		return keylessWallet{}, fmt.Errorf("read wallet: %w", err)
	}
	kw := emptyKeylessWallet()
	if err := json.Unmarshal(raw, &kw); err != nil {
		return keylessWallet{}, fmt.Errorf("decode wallet: %w", err)
	}
	if kw.AvailableCashNotes == nil {
		kw.AvailableCashNotes = make(map[string]uint64)
	}
	if kw.PaymentTransactions == nil {
		kw.PaymentTransactions = make(map[string]Transaction)
	}
	return kw, nil
}

func writeKeylessWallet(path string, kw keylessWallet) error {
	b, err := json.MarshalIndent(kw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// CreateWalletStore initializes a new wallet directory for owner. Fails if
// a main_pubkey file already exists there.
func CreateWalletStore(dir string, owner MainPubkey) (*WalletStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, walletCashNotesDir), 0o755); err != nil {
		return nil, fmt.Errorf("wallet store: %w", err)
	}
	pubkeyPath := filepath.Join(dir, walletPubkeyFile)
	if _, err := os.Stat(pubkeyPath); err == nil {
		return nil, fmt.Errorf("wallet store: %s already initialized", dir)
	}
	if err := writeMainPubkey(pubkeyPath, owner); err != nil {
		return nil, err
	}
	if err := writeKeylessWallet(filepath.Join(dir, walletFile), emptyKeylessWallet()); err != nil {
		return nil, err
	}
	return &WalletStore{dir: dir, owner: owner}, nil
}

// LoadWalletStore opens an existing wallet directory.
func LoadWalletStore(dir string) (*WalletStore, error) {
	owner, err := readMainPubkey(filepath.Join(dir, walletPubkeyFile))
	if err != nil {
		return nil, err
	}
	return &WalletStore{dir: dir, owner: owner}, nil
}

// Owner returns the wallet's main public key.
func (w *WalletStore) Owner() MainPubkey { return w.owner }

func writeMainPubkey(path string, pk MainPubkey) error {
	b, err := rlp.EncodeToBytes(pk)
	if err != nil {
		return fmt.Errorf("encode main pubkey: %w", err)
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(b)), 0o644)
}

func readMainPubkey(path string) (MainPubkey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MainPubkey{}, fmt.Errorf("read main pubkey: %w", err)
	}
	b, err := hex.DecodeString(string(raw))
	if err != nil {
		return MainPubkey{}, fmt.Errorf("decode main pubkey: %w", err)
	}
	var pk MainPubkey
	if err := rlp.DecodeBytes(b, &pk); err != nil {
		return MainPubkey{}, fmt.Errorf("decode main pubkey: %w", err)
	}
	return pk, nil
}

// withLock acquires the wallet's exclusive file lock, runs fn, and always
// releases the lock afterward. Every mutating operation goes through this
// so concurrent writers (two CLI invocations, a daemon and a CLI) never
// race on the wallet file or the cash-note files.
func (w *WalletStore) withLock(fn func() error) error {
	lockPath := filepath.Join(w.dir, walletLockFile)
	fl := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), walletLockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("wallet lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("wallet lock: timed out waiting for %s", lockPath)
	}
	defer fl.Unlock()
	return fn()
}

func cashNotePath(dir string, uniquePubkey ed25519.PublicKey) string {
	return filepath.Join(dir, walletCashNotesDir, hex.EncodeToString(uniquePubkey)+".cashnote")
}

// Deposit stores cn if it is owned by this wallet (cn.MainPubkey matches
// the wallet's owner) and adds it to the available set. CashNotes
// addressed to a different wallet are silently skipped rather than
// rejected, matching watch_only.rs's deposit semantics: accepting a batch
// of notes where only some belong to you is the common case (e.g.
// scanning a shared transaction), not an error.
//
// A cash-note file already present on disk is treated as "already seen"
// and skipped entirely, whether it is currently available or was already
// marked spent: MarkSpent never deletes that file, so re-depositing the
// same bytes must not resurrect a spent note into the available set.
func (w *WalletStore) Deposit(notes []CashNote) (deposited int, err error) {
	err = w.withLock(func() error {
		walletPath := filepath.Join(w.dir, walletFile)
		kw, rerr := readKeylessWallet(walletPath)
		if rerr != nil {
			return rerr
		}
		changed := false
		for _, cn := range notes {
			if !cn.MainPubkey.Ed25519.Equal(w.owner.Ed25519) {
				continue
			}
			if err := cn.Verify(); err != nil {
				continue
			}
			path := cashNotePath(w.dir, cn.UniquePubkey)
			if _, statErr := os.Stat(path); statErr == nil {
				continue // already seen (held or previously spent): idempotent
			}
			b, encErr := rlp.EncodeToBytes(cn)
			if encErr != nil {
				return fmt.Errorf("encode cash note: %w", encErr)
			}
			if writeErr := os.WriteFile(path, b, 0o644); writeErr != nil {
				return fmt.Errorf("store cash note: %w", writeErr)
			}
			value, verr := cn.Value()
			if verr != nil {
				return verr
			}
			kw.AvailableCashNotes[hex.EncodeToString(cn.UniquePubkey)] = value
			changed = true
			deposited++
		}
		if !changed {
			return nil
		}
		return writeKeylessWallet(walletPath, kw)
	})
	return deposited, err
}

// AvailableCashNotes returns every CashNote currently in the wallet's
// available set (base spec §4.D's available_cash_notes), read off disk.
func (w *WalletStore) AvailableCashNotes() ([]CashNote, error) {
	kw, err := readKeylessWallet(filepath.Join(w.dir, walletFile))
	if err != nil {
		return nil, err
	}
	notes := make([]CashNote, 0, len(kw.AvailableCashNotes))
	for key := range kw.AvailableCashNotes {
		pub, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("available cash notes: %w", err)
		}
		raw, err := os.ReadFile(cashNotePath(w.dir, ed25519.PublicKey(pub)))
		if err != nil {
			return nil, fmt.Errorf("read cash note %s: %w", key, err)
		}
		var cn CashNote
		if err := rlp.DecodeBytes(raw, &cn); err != nil {
			return nil, fmt.Errorf("decode cash note %s: %w", key, err)
		}
		notes = append(notes, cn)
	}
	return notes, nil
}

// Balance sums the value of every CashNote in the available set.
func (w *WalletStore) Balance() (uint64, error) {
	kw, err := readKeylessWallet(filepath.Join(w.dir, walletFile))
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, v := range kw.AvailableCashNotes {
		total += v
	}
	return total, nil
}

// MarkSpent removes a CashNote from the available set once its spend has
// been accepted by the network, so it cannot be offered as an input twice
// from this wallet. It does not delete the on-disk cash-note file itself
// (base spec §4.D): that file is retained as the wallet's own record of
// what it once held, and Deposit's idempotency check depends on it still
// being there.
func (w *WalletStore) MarkSpent(uniquePubkey ed25519.PublicKey) error {
	return w.withLock(func() error {
		walletPath := filepath.Join(w.dir, walletFile)
		kw, err := readKeylessWallet(walletPath)
		if err != nil {
			return err
		}
		delete(kw.AvailableCashNotes, hex.EncodeToString(uniquePubkey))
		return writeKeylessWallet(walletPath, kw)
	})
}

// RecordPaymentTransaction logs tx in the wallet file's
// payment_transactions map, keyed by tx's own canonical hash — the
// closest analogue this offline send flow has to the content address a
// chunk payment would key on — so a wallet can recall what it has already
// paid out even after the CashNotes that funded it are marked spent.
func (w *WalletStore) RecordPaymentTransaction(tx Transaction) error {
	return w.withLock(func() error {
		walletPath := filepath.Join(w.dir, walletFile)
		kw, err := readKeylessWallet(walletPath)
		if err != nil {
			return err
		}
		kw.PaymentTransactions[tx.Hash().String()] = tx
		return writeKeylessWallet(walletPath, kw)
	})
}
