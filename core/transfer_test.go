package core

import "testing"

func TestTransactionBalance(t *testing.T) {
	ownerMsk, _, _ := GenerateMainSecretKey()
	ownerPub, _ := ownerMsk.PublicKey()
	idx, _ := RandomDerivationIndex()
	pub, err := DeriveUniquePubkey(ownerPub, idx)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	tx := Transaction{
		Inputs:  []Input{{UniquePubkey: pub, Amount: 10}},
		Outputs: []Output{{UniquePubkey: pub, Amount: 10}},
	}
	if !tx.IsBalanced() {
		t.Fatalf("expected balanced transaction")
	}

	tx.Outputs[0].Amount = 9
	if tx.IsBalanced() {
		t.Fatalf("expected unbalanced transaction to be detected")
	}
}

func TestVerifyAgainstInputsSpent(t *testing.T) {
	cn, msk := buildSpendableCashNote(t)
	idx := cn.DerivationIndex
	key, _ := DeriveUniqueKeypair(msk, idx)
	value, _ := cn.Value()

	recipientMsk, _, _ := GenerateMainSecretKey()
	recipientPub, _ := recipientMsk.PublicKey()
	outIdx, _ := RandomDerivationIndex()
	outPub, _ := DeriveUniquePubkey(recipientPub, outIdx)

	tx := Transaction{
		Inputs:  []Input{{UniquePubkey: cn.UniquePubkey, Amount: value}},
		Outputs: []Output{{UniquePubkey: outPub, Amount: value}},
	}
	spend := Spend{
		UniquePubkey: cn.UniquePubkey,
		Amount:       value,
		ParentTx:     cn.ParentTx,
		SpentTx:      tx,
	}
	signed, err := SignSpend(key, spend)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := tx.VerifyAgainstInputsSpent([]SignedSpend{signed}); err != nil {
		t.Fatalf("expected tx to verify against its one real input spend: %v", err)
	}

	if err := tx.VerifyAgainstInputsSpent(nil); err == nil {
		t.Fatalf("expected verification to fail when no spends cover the tx's input")
	}

	otherMsk, _, _ := GenerateMainSecretKey()
	otherPub, _ := otherMsk.PublicKey()
	otherCN, err := NewGenesisCashNote(otherPub)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	otherKey, _ := DeriveUniqueKeypair(otherMsk, otherCN.DerivationIndex)
	otherValue, _ := otherCN.Value()
	unrelatedSpend := Spend{
		UniquePubkey: otherCN.UniquePubkey,
		Amount:       otherValue,
		ParentTx:     otherCN.ParentTx,
		SpentTx: Transaction{
			Inputs:  []Input{{UniquePubkey: otherCN.UniquePubkey, Amount: otherValue}},
			Outputs: []Output{{UniquePubkey: outPub, Amount: otherValue}},
		},
	}
	unrelatedSigned, err := SignSpend(otherKey, unrelatedSpend)
	if err != nil {
		t.Fatalf("sign unrelated: %v", err)
	}
	if err := tx.VerifyAgainstInputsSpent([]SignedSpend{unrelatedSigned}); err == nil {
		t.Fatalf("expected verification to fail when the supplied spend doesn't cover tx's input")
	}
}

func TestCashNoteVerify(t *testing.T) {
	ownerMsk, _, _ := GenerateMainSecretKey()
	ownerPub, _ := ownerMsk.PublicKey()
	cn, err := NewGenesisCashNote(ownerPub)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if err := cn.Verify(); err != nil {
		t.Fatalf("verify genesis cash note: %v", err)
	}
	value, err := cn.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if value != GenesisAmount {
		t.Fatalf("expected genesis amount, got %d", value)
	}

	// Tamper with the unique pubkey so it no longer matches the claimed
	// derivation: Verify must catch this.
	other, _, _ := GenerateMainSecretKey()
	otherPub, _ := other.PublicKey()
	badIdx, _ := RandomDerivationIndex()
	badPub, _ := DeriveUniquePubkey(otherPub, badIdx)
	cn.UniquePubkey = badPub
	if err := cn.Verify(); err == nil {
		t.Fatalf("expected verify to fail after tampering with unique pubkey")
	}
}
