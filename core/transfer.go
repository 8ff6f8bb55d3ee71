package core

// Transaction and CashNote: the value-conservation core of the Chaumian
// cash layer. Grounded on sn_transfers' cashnotes model, re-expressed with
// Ed25519 signing (core/hdwallet.go) instead of BLS, and RLP (record.go)
// instead of bincode for canonical hashing.

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Input references a CashNote a Transaction consumes, by its unique public
// key and the amount it carried.
type Input struct {
	UniquePubkey ed25519.PublicKey
	Amount       uint64
}

// Output creates a new CashNote addressed to a recipient under a fresh
// DerivationIndex, carrying the given amount.
type Output struct {
	UniquePubkey ed25519.PublicKey
	Amount       uint64
}

// Transaction moves value from Inputs to Outputs. It is valid only if the
// input and output amounts balance exactly (I-VALUE-CONSERVATION).
type Transaction struct {
	Inputs  []Input
	Outputs []Output
}

// Hash returns the canonical RLP hash of tx, used as the linkage target
// for audits walking the CashNote DAG. A Spend's signature covers
// Spend.Hash, whose encoding includes the full ParentTx and SpentTx.
func (tx Transaction) Hash() Hash {
	b, err := rlp.EncodeToBytes(tx)
	if err != nil {
		// Transaction contains only fixed-width fields and slices thereof;
		// RLP encoding of such a value cannot fail.
		panic(fmt.Sprintf("transaction encode: %v", err))
	}
	return HashBytes(b)
}

// InputSum returns the sum of all input amounts.
func (tx Transaction) InputSum() uint64 {
	var sum uint64
	for _, in := range tx.Inputs {
		sum += in.Amount
	}
	return sum
}

// OutputSum returns the sum of all output amounts.
func (tx Transaction) OutputSum() uint64 {
	var sum uint64
	for _, out := range tx.Outputs {
		sum += out.Amount
	}
	return sum
}

// IsBalanced reports whether input and output amounts match exactly.
// Genesis transactions (no inputs) are exempt by construction: see
// IsGenesisSpend.
func (tx Transaction) IsBalanced() bool {
	return tx.InputSum() == tx.OutputSum()
}

// OutputFor returns the Output in tx matching uniquePubkey, if any.
func (tx Transaction) OutputFor(uniquePubkey ed25519.PublicKey) (Output, bool) {
	for _, out := range tx.Outputs {
		if out.UniquePubkey.Equal(uniquePubkey) {
			return out, true
		}
	}
	return Output{}, false
}

// InputFor returns the Input in tx matching uniquePubkey, if any.
func (tx Transaction) InputFor(uniquePubkey ed25519.PublicKey) (Input, bool) {
	for _, in := range tx.Inputs {
		if in.UniquePubkey.Equal(uniquePubkey) {
			return in, true
		}
	}
	return Input{}, false
}

// VerifyAgainstInputsSpent checks that spends collectively cover every one
// of tx's inputs, each with a matching UniquePubkey and Amount, and that
// each individual SignedSpend itself verifies. Grounded on
// sn_transfers::Transaction::verify_against_inputs_spent, the check
// sn_client/src/audit/mod.rs's verify_spend runs on every generation
// before recursing further: it is not enough for each ancestor spend to be
// internally consistent (SignedSpend.Verify already checks that); the set
// of ancestor spends fetched for tx must actually account for every input
// tx claims, with no input left unaccounted for and no extra spend that
// doesn't belong to tx.
func (tx Transaction) VerifyAgainstInputsSpent(spends []SignedSpend) error {
	if len(spends) != len(tx.Inputs) {
		return fmt.Errorf("verify against inputs spent: expected %d spends for tx %s, got %d",
			len(tx.Inputs), tx.Hash(), len(spends))
	}
	seen := make(map[string]bool, len(spends))
	for _, sp := range spends {
		if err := sp.Verify(); err != nil {
			return err
		}
		in, ok := tx.InputFor(sp.Spend.UniquePubkey)
		if !ok || in.Amount != sp.Spend.Amount {
			return NewInvalidSpendValue(sp.Address())
		}
		key := string(sp.Spend.UniquePubkey)
		if seen[key] {
			return NewInvalidSpendValue(sp.Address())
		}
		seen[key] = true
	}
	for _, in := range tx.Inputs {
		if !seen[string(in.UniquePubkey)] {
			return NewMissingSpendRecord(SpendAddress(in.UniquePubkey))
		}
	}
	return nil
}

// CashNote is a bearer note: whoever holds the Ed25519 private key
// matching UniquePubkey can spend it. ParentTx is the transaction whose
// output minted this note; ParentSpends are the SignedSpends of that
// transaction's own inputs, carried as the first hop of ancestor audit
// evidence so a recipient can immediately verify one generation back
// without a network round trip.
type CashNote struct {
	UniquePubkey    ed25519.PublicKey
	MainPubkey      MainPubkey
	DerivationIndex DerivationIndex
	ParentTx        Transaction
	ParentSpends    []SignedSpend
}

// Value returns the amount this CashNote carries, read off its own output
// entry in ParentTx.
func (cn CashNote) Value() (uint64, error) {
	out, ok := cn.ParentTx.OutputFor(cn.UniquePubkey)
	if !ok {
		return 0, fmt.Errorf("cash note: unique pubkey not found in parent transaction outputs")
	}
	return out.Amount, nil
}

// Verify checks that a CashNote is internally consistent: its unique
// pubkey actually matches the derivation claimed against MainPubkey and
// DerivationIndex, and every parent spend is itself well-formed. It does
// not check the parent spends are genuine on the network; that is
// audit.go's job.
func (cn CashNote) Verify() error {
	wantPub, err := DeriveUniquePubkey(cn.MainPubkey, cn.DerivationIndex)
	if err != nil {
		return fmt.Errorf("derive unique pubkey: %w", err)
	}
	if !wantPub.Equal(cn.UniquePubkey) {
		return NewPubKeyMismatch("cash note unique pubkey does not match derivation")
	}
	if _, err := cn.Value(); err != nil {
		return err
	}
	for i, ps := range cn.ParentSpends {
		if err := ps.Verify(); err != nil {
			return fmt.Errorf("parent spend %d: %w", i, err)
		}
	}
	return nil
}
