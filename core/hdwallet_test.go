package core

import (
	"crypto/ed25519"
	"testing"
)

func TestGenerateMainSecretKeyRoundTrip(t *testing.T) {
	msk, mnemonic, err := GenerateMainSecretKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if mnemonic == "" {
		t.Fatalf("expected non-empty mnemonic")
	}
	recovered, err := NewMainSecretKeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("recover: %v", err)
	}

	pub1, err := msk.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	pub2, err := recovered.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if !pub1.Ed25519.Equal(pub2.Ed25519) || pub1.X25519 != pub2.X25519 {
		t.Fatalf("recovered key does not match original")
	}
}

func TestDeriveUniqueKeypairMatchesSenderDerivedPubkey(t *testing.T) {
	msk, _, err := GenerateMainSecretKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub, err := msk.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	idx, err := RandomDerivationIndex()
	if err != nil {
		t.Fatalf("index: %v", err)
	}

	senderComputed, err := DeriveUniquePubkey(pub, idx)
	if err != nil {
		t.Fatalf("sender derive: %v", err)
	}
	recipientKey, err := DeriveUniqueKeypair(msk, idx)
	if err != nil {
		t.Fatalf("recipient derive: %v", err)
	}
	recipientPub := recipientKey.Public().(ed25519.PublicKey)
	if !senderComputed.Equal(recipientPub) {
		t.Fatalf("sender-derived pubkey does not match recipient-derived keypair's public half")
	}
}

func TestIdentityKeypairMatchesMainPubkey(t *testing.T) {
	msk, _, err := GenerateMainSecretKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub, err := msk.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	identity := msk.IdentityKeypair()
	if !identity.Public().(ed25519.PublicKey).Equal(pub.Ed25519) {
		t.Fatalf("identity keypair's public half does not match MainPubkey.Ed25519")
	}
}
