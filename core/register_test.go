package core

import (
	"crypto/ed25519"
	"testing"
)

func TestRegisterWriteAndMerge(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	reg := Register{Meta: "profile", Owner: pub}

	op1 := SignRegisterOp(priv, nil, []byte("v1"))
	if err := reg.Write(op1); err != nil {
		t.Fatalf("write op1: %v", err)
	}
	op2 := SignRegisterOp(priv, []Hash{op1.Hash()}, []byte("v2"))
	if err := reg.Write(op2); err != nil {
		t.Fatalf("write op2: %v", err)
	}

	tips := reg.Tips()
	if len(tips) != 1 || string(tips[0].Value) != "v2" {
		t.Fatalf("expected single tip v2, got %+v", tips)
	}

	// A replica that only saw op1 must converge to the same tip after
	// merging in the replica that also has op2, regardless of order.
	replicaA := Register{Meta: "profile", Owner: pub, Ops: []RegisterOp{op1}}
	if err := replicaA.Merge(reg); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(replicaA.Tips()) != 1 || string(replicaA.Tips()[0].Value) != "v2" {
		t.Fatalf("replica did not converge to v2 tip")
	}
}

func TestRegisterMergeRejectsInvalidSignature(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	otherPub, otherPriv, _ := ed25519.GenerateKey(nil)
	_ = otherPub

	reg := Register{Meta: "profile", Owner: pub}
	forged := SignRegisterOp(otherPriv, nil, []byte("forged"))

	other := Register{Meta: "profile", Owner: pub, Ops: []RegisterOp{forged}}
	if err := reg.Merge(other); err != nil {
		t.Fatalf("merge itself should not error: %v", err)
	}
	if len(reg.Ops) != 0 {
		t.Fatalf("forged op signed by a different key must be discarded, not merged")
	}
}

func TestRegisterMergeIdempotent(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	op := SignRegisterOp(priv, nil, []byte("x"))
	r := Register{Meta: "m", Owner: pub, Ops: []RegisterOp{op}}
	dup := Register{Meta: "m", Owner: pub, Ops: []RegisterOp{op}}
	if err := r.Merge(dup); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(r.Ops) != 1 {
		t.Fatalf("merge of identical op sets must not duplicate, got %d ops", len(r.Ops))
	}
}
