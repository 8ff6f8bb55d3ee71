package core

import (
	"crypto/ed25519"
	"testing"
)

func TestChunkRecordRoundTrip(t *testing.T) {
	content := []byte("hello vaultmesh")
	rec, err := NewChunkRecord(content)
	if err != nil {
		t.Fatalf("new chunk record: %v", err)
	}
	if rec.Address != ChunkAddress(content) {
		t.Fatalf("chunk record address mismatch")
	}

	encoded, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRecord(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := decoded.AsChunk()
	if err != nil {
		t.Fatalf("as chunk: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("round-tripped chunk content mismatch")
	}
}

func TestRecordKindMismatch(t *testing.T) {
	content := []byte("data")
	rec, _ := NewChunkRecord(content)
	if _, err := rec.AsRegister(); err == nil {
		t.Fatalf("expected kind mismatch error reading chunk record as register")
	}
}

func TestChunkWithPaymentRecord(t *testing.T) {
	content := []byte("paid chunk")
	rec, err := NewChunkWithPaymentRecord(content, nil)
	if err != nil {
		t.Fatalf("new chunk with payment: %v", err)
	}
	got, err := rec.AsChunk()
	if err != nil {
		t.Fatalf("as chunk: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("chunk with payment content mismatch")
	}
	wrapper, err := rec.AsChunkWithPayment()
	if err != nil {
		t.Fatalf("as chunk with payment: %v", err)
	}
	if string(wrapper.Content) != string(content) {
		t.Fatalf("wrapper content mismatch")
	}
}

func TestSpendRecordRoundTrip(t *testing.T) {
	cn, msk := buildSpendableCashNote(t)
	idx := cn.DerivationIndex
	key, _ := DeriveUniqueKeypair(msk, idx)
	value, _ := cn.Value()

	recipientMsk, _, _ := GenerateMainSecretKey()
	recipientPub, _ := recipientMsk.PublicKey()
	outIdx, _ := RandomDerivationIndex()
	outPub, _ := DeriveUniquePubkey(recipientPub, outIdx)

	spend := Spend{
		UniquePubkey: cn.UniquePubkey,
		Amount:       value,
		ParentTx:     cn.ParentTx,
		SpentTx: Transaction{
			Inputs:  []Input{{UniquePubkey: cn.UniquePubkey, Amount: value}},
			Outputs: []Output{{UniquePubkey: outPub, Amount: value}},
		},
	}
	signed, err := SignSpend(key, spend)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec, err := NewSpendRecord(signed)
	if err != nil {
		t.Fatalf("new spend record: %v", err)
	}
	if rec.Address != SpendAddress(cn.UniquePubkey) {
		t.Fatalf("spend record address mismatch")
	}

	got, err := rec.AsSpend()
	if err != nil {
		t.Fatalf("as spend: %v", err)
	}
	if got.Spend.Hash() != signed.Spend.Hash() {
		t.Fatalf("round-tripped spend mismatch")
	}

	spends, err := rec.AsSpends()
	if err != nil {
		t.Fatalf("as spends: %v", err)
	}
	if len(spends) != 1 {
		t.Fatalf("expected single-entry spend record, got %d", len(spends))
	}
}

func TestMergeSpendRecordAccumulatesDoubleSpendEvidence(t *testing.T) {
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

	signedA, _ := SignSpend(key, spendA)
	signedB, _ := SignSpend(key, spendB)
	recA, _ := NewSpendRecord(signedA)
	recB, _ := NewSpendRecord(signedB)

	// A holder stores recA first, then later receives recB for the same
	// address: both must survive, not overwrite one another.
	merged, err := MergeSpendRecord(&recA, recB)
	if err != nil {
		t.Fatalf("merge spend record: %v", err)
	}
	spends, err := merged.AsSpends()
	if err != nil {
		t.Fatalf("as spends: %v", err)
	}
	if len(spends) != 2 {
		t.Fatalf("expected merged record to carry both conflicting spends, got %d", len(spends))
	}

	if _, err := merged.AsSpend(); err == nil {
		t.Fatalf("expected AsSpend to report double spend for a multi-entry record")
	} else if kind, ok := Classify(err); !ok || kind != KindDoubleSpend {
		t.Fatalf("expected KindDoubleSpend, got %v ok=%v", kind, ok)
	}

	// Merging the same incoming record again must not duplicate entries.
	mergedAgain, err := MergeSpendRecord(&merged, recB)
	if err != nil {
		t.Fatalf("merge again: %v", err)
	}
	spendsAgain, err := mergedAgain.AsSpends()
	if err != nil {
		t.Fatalf("as spends again: %v", err)
	}
	if len(spendsAgain) != 2 {
		t.Fatalf("expected re-merge to stay deduplicated at 2, got %d", len(spendsAgain))
	}
}

func TestRegisterRecordRoundTrip(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	op := SignRegisterOp(priv, nil, []byte("v"))
	reg := Register{Meta: "m", Owner: pub, Ops: []RegisterOp{op}}

	rec, err := NewRegisterRecord(reg)
	if err != nil {
		t.Fatalf("new register record: %v", err)
	}
	if rec.Address != reg.Address() {
		t.Fatalf("register record address mismatch")
	}
	decoded, err := rec.AsRegister()
	if err != nil {
		t.Fatalf("as register: %v", err)
	}
	if len(decoded.Ops) != 1 || string(decoded.Ops[0].Value) != "v" {
		t.Fatalf("round-tripped register content mismatch")
	}
}
