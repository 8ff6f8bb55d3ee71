package core

import (
	"crypto/ed25519"
	"testing"
)

func TestComputeChunkProofDeterministic(t *testing.T) {
	content := []byte("proof me")
	p1 := ComputeChunkProof(content, 42)
	p2 := ComputeChunkProof(content, 42)
	if p1.Hash != p2.Hash {
		t.Fatalf("chunk proof must be deterministic for a fixed nonce")
	}
	p3 := ComputeChunkProof(content, 43)
	if p1.Hash == p3.Hash {
		t.Fatalf("different nonces must yield different proofs")
	}
}

func TestMergeSplitRecordsRegisterUnion(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	op1 := SignRegisterOp(priv, nil, []byte("a"))
	op2 := SignRegisterOp(priv, []Hash{op1.Hash()}, []byte("b"))

	regA := Register{Meta: "m", Owner: pub, Ops: []RegisterOp{op1}}
	regB := Register{Meta: "m", Owner: pub, Ops: []RegisterOp{op1, op2}}
	recA, _ := NewRegisterRecord(regA)
	recB, _ := NewRegisterRecord(regB)

	replies := map[Hash]Record{
		recA.ContentHash(): recA,
		recB.ContentHash(): recB,
	}
	merged, err := MergeSplitRecords(replies)
	if err != nil {
		t.Fatalf("merge split records: %v", err)
	}
	reg, err := merged.AsRegister()
	if err != nil {
		t.Fatalf("as register: %v", err)
	}
	if len(reg.Ops) != 2 {
		t.Fatalf("expected merged register to contain both ops, got %d", len(reg.Ops))
	}
}

func TestMergeSplitRecordsDetectsDoubleSpend(t *testing.T) {
	cn, msk := buildSpendableCashNote(t)
	idx := cn.DerivationIndex
	key, _ := DeriveUniqueKeypair(msk, idx)
	value, _ := cn.Value()

	recipient1Msk, _, _ := GenerateMainSecretKey()
	recipient1Pub, _ := recipient1Msk.PublicKey()
	idx1, _ := RandomDerivationIndex()
	outPub1, _ := DeriveUniquePubkey(recipient1Pub, idx1)

	recipient2Msk, _, _ := GenerateMainSecretKey()
	recipient2Pub, _ := recipient2Msk.PublicKey()
	idx2, _ := RandomDerivationIndex()
	outPub2, _ := DeriveUniquePubkey(recipient2Pub, idx2)

	spendA := Spend{
		UniquePubkey: cn.UniquePubkey,
		Amount:       value,
		ParentTx:     cn.ParentTx,
		SpentTx: Transaction{
			Inputs:  []Input{{UniquePubkey: cn.UniquePubkey, Amount: value}},
			Outputs: []Output{{UniquePubkey: outPub1, Amount: value}},
		},
	}
	spendB := spendA
	spendB.SpentTx = Transaction{
		Inputs:  []Input{{UniquePubkey: cn.UniquePubkey, Amount: value}},
		Outputs: []Output{{UniquePubkey: outPub2, Amount: value}},
	}

	signedA, err := SignSpend(key, spendA)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	signedB, err := SignSpend(key, spendB)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}

	recA, _ := NewSpendRecord(signedA)
	recB, _ := NewSpendRecord(signedB)
	replies := map[Hash]Record{
		recA.ContentHash(): recA,
		recB.ContentHash(): recB,
	}
	_, err = MergeSplitRecords(replies)
	if err == nil {
		t.Fatalf("expected double spend to be detected")
	}
	if kind, ok := Classify(err); !ok || kind != KindDoubleSpend {
		t.Fatalf("expected KindDoubleSpend, got %v ok=%v", kind, ok)
	}
}
