package core

// Spend and SignedSpend: the evidence a network node stores once a
// CashNote is consumed. Grounded on sn_transfers/src/cashnotes/signed_spend.rs's
// verify() method, translated from BLS signatures over a bincode-serialised
// payload to Ed25519 signatures over an RLP-hashed one.

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// SpendReason optionally tags why a CashNote was spent (plain transfer,
// network royalty, etc). Empty for an ordinary transfer.
type SpendReason string

// Spend records that the CashNote identified by UniquePubkey has been
// consumed as an input to SpentTx, which itself must balance and whose
// claimed input amount must match what ParentTx actually minted.
//
// NetworkRoyalties names, by derivation index into SpentTx's outputs,
// which outputs (if any) are network-royalty payments rather than
// ordinary transfer/change outputs (base spec §3's
// "network_royalties: [derivation_index]"). An audit walking forward from
// this spend (follow_spend) uses it to find which descendant outputs to
// attempt best-effort redemption on, rather than guessing from Reason.
type Spend struct {
	UniquePubkey     ed25519.PublicKey
	Reason           SpendReason
	Amount           uint64
	ParentTx         Transaction
	SpentTx          Transaction
	NetworkRoyalties []DerivationIndex
}

// Hash returns the canonical RLP hash of the spend, the payload that
// DerivedKeySig signs.
func (s Spend) Hash() Hash {
	b, err := rlp.EncodeToBytes(s)
	if err != nil {
		panic(fmt.Sprintf("spend encode: %v", err))
	}
	return HashBytes(b)
}

// SignedSpend pairs a Spend with the Ed25519 signature of the one-time key
// it names, proving the holder of that key authorized the spend.
type SignedSpend struct {
	Spend         Spend
	DerivedKeySig []byte
}

// SignSpend signs spend with the one-time private key matching
// spend.UniquePubkey.
func SignSpend(key ed25519.PrivateKey, spend Spend) (SignedSpend, error) {
	pub := key.Public().(ed25519.PublicKey)
	if !pub.Equal(spend.UniquePubkey) {
		return SignedSpend{}, fmt.Errorf("sign spend: key does not match spend unique pubkey")
	}
	h := spend.Hash()
	sig := ed25519.Sign(key, h[:])
	return SignedSpend{Spend: spend, DerivedKeySig: sig}, nil
}

// Verify checks internal consistency of a single SignedSpend:
//   - the signature is valid for Spend.UniquePubkey
//   - SpentTx balances (I-VALUE-CONSERVATION)
//   - UniquePubkey appears in SpentTx's inputs with the claimed Amount
//   - ParentTx minted UniquePubkey with that same Amount
//
// It does not check that ParentTx or SpentTx are themselves anchored on
// the network, nor that no other SignedSpend exists for the same address
// (double-spend detection spans multiple records and is handled by
// verify.go).
func (ss SignedSpend) Verify() error {
	s := ss.Spend
	if len(s.UniquePubkey) != ed25519.PublicKeySize {
		return NewInvalidSpendSignature(SpendAddress(s.UniquePubkey))
	}
	h := s.Hash()
	if !ed25519.Verify(s.UniquePubkey, h[:], ss.DerivedKeySig) {
		return NewInvalidSpendSignature(SpendAddress(s.UniquePubkey))
	}
	if !s.SpentTx.IsBalanced() {
		return NewInvalidSpendValue(SpendAddress(s.UniquePubkey))
	}
	in, ok := s.SpentTx.InputFor(s.UniquePubkey)
	if !ok || in.Amount != s.Amount {
		return NewInvalidSpendValue(SpendAddress(s.UniquePubkey))
	}
	out, ok := s.ParentTx.OutputFor(s.UniquePubkey)
	if !ok || out.Amount != s.Amount {
		return NewInvalidSpendValue(SpendAddress(s.UniquePubkey))
	}
	return nil
}

// Address returns the NetworkAddress this spend is stored under.
func (ss SignedSpend) Address() NetworkAddress {
	return SpendAddress(ss.Spend.UniquePubkey)
}

// IsGenesisSpend reports whether s spends a Genesis-minted CashNote,
// i.e. its ParentTx has no inputs. Audits terminate successfully upon
// reaching such a spend (or the CashNote it consumes, if unspent).
func (s Spend) IsGenesisSpend() bool {
	return len(s.ParentTx.Inputs) == 0
}
