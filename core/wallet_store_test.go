package core

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestWalletStoreDepositAndBalance(t *testing.T) {
	dir := t.TempDir()
	ownerMsk, _, err := GenerateMainSecretKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ownerPub, err := ownerMsk.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	ws, err := CreateWalletStore(dir, ownerPub)
	if err != nil {
		t.Fatalf("create wallet store: %v", err)
	}

	cn, err := NewGenesisCashNote(ownerPub)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	n, err := ws.Deposit([]CashNote{cn})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 note deposited, got %d", n)
	}

	// Depositing the same note again must be a silent no-op.
	n, err = ws.Deposit([]CashNote{cn})
	if err != nil {
		t.Fatalf("re-deposit: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected idempotent re-deposit to add nothing, got %d", n)
	}

	bal, err := ws.Balance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != GenesisAmount {
		t.Fatalf("expected balance %d, got %d", GenesisAmount, bal)
	}
}

func TestWalletStoreSkipsNonOwnedCashNotes(t *testing.T) {
	dir := t.TempDir()
	ownerMsk, _, _ := GenerateMainSecretKey()
	ownerPub, _ := ownerMsk.PublicKey()
	ws, err := CreateWalletStore(dir, ownerPub)
	if err != nil {
		t.Fatalf("create wallet store: %v", err)
	}

	otherMsk, _, _ := GenerateMainSecretKey()
	otherPub, _ := otherMsk.PublicKey()
	foreignCN, err := NewGenesisCashNote(otherPub)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	n, err := ws.Deposit([]CashNote{foreignCN})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected non-owned cash note to be silently skipped, got %d deposited", n)
	}
	notes, err := ws.AvailableCashNotes()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected no notes held, got %d", len(notes))
	}
}

func TestWalletStoreMarkSpentKeepsFile(t *testing.T) {
	dir := t.TempDir()
	ownerMsk, _, _ := GenerateMainSecretKey()
	ownerPub, _ := ownerMsk.PublicKey()
	ws, err := CreateWalletStore(dir, ownerPub)
	if err != nil {
		t.Fatalf("create wallet store: %v", err)
	}
	cn, _ := NewGenesisCashNote(ownerPub)
	if _, err := ws.Deposit([]CashNote{cn}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	path := filepath.Join(dir, walletCashNotesDir, hex.EncodeToString(cn.UniquePubkey)+".cashnote")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cash note file to exist before mark spent: %v", err)
	}

	if err := ws.MarkSpent(cn.UniquePubkey); err != nil {
		t.Fatalf("mark spent: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cash note file to survive MarkSpent (base spec §4.D), got: %v", err)
	}

	bal, err := ws.Balance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 0 {
		t.Fatalf("expected balance 0 after mark spent, got %d", bal)
	}

	notes, err := ws.AvailableCashNotes()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected no available notes after mark spent, got %d", len(notes))
	}
}

func TestWalletStoreReload(t *testing.T) {
	dir := t.TempDir()
	ownerMsk, _, _ := GenerateMainSecretKey()
	ownerPub, _ := ownerMsk.PublicKey()
	ws, err := CreateWalletStore(dir, ownerPub)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cn, _ := NewGenesisCashNote(ownerPub)
	if _, err := ws.Deposit([]CashNote{cn}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	reloaded, err := LoadWalletStore(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bal, err := reloaded.Balance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != GenesisAmount {
		t.Fatalf("expected reloaded wallet to see deposited balance, got %d", bal)
	}
}
