package core

// Network royalty redemption: a best-effort side channel a descendant-spend
// walk can opportunistically run. Grounded on
// sn_client/src/audit/mod.rs's redeem_royalties: a fixed, network-wide
// royalty public key (NETWORK_ROYALTIES_PK) receives a cut of certain
// spends, named on the spend itself by Spend.NetworkRoyalties, and anyone
// holding that key's secret can reconstruct and deposit those outputs
// without the sender ever routing them there directly. This is a
// proof-of-concept redemption path, same as the original: it never blocks
// the primary UTXO walk on failure.

import (
	"fmt"
	"sync"
)

var (
	royaltyOnce sync.Once
	royaltyMsk  MainSecretKey
	royaltyPub  MainPubkey
)

// royaltyIdentity lazily derives the protocol-wide network-royalty keypair
// from a fixed seed, the same sync.Once + deterministic-seed pattern
// genesis.go uses for ProtocolGenesisCashNote: every node must agree on the
// same public key for a spend's NetworkRoyalties-tagged outputs to resolve
// to anything.
func royaltyIdentity() (MainSecretKey, MainPubkey) {
	royaltyOnce.Do(func() {
		seed := HashBytes([]byte("vaultmesh/network-royalty/v1"))
		royaltyMsk = deriveMainSecretKeyFromSeed(seed[:])
		pub, err := royaltyMsk.PublicKey()
		if err != nil {
			panic(fmt.Sprintf("network royalty identity: %v", err))
		}
		royaltyPub = pub
	})
	return royaltyMsk, royaltyPub
}

// NetworkRoyaltyMainPubkey returns the protocol-wide public key that
// network-royalty outputs are addressed to.
func NetworkRoyaltyMainPubkey() MainPubkey {
	_, pub := royaltyIdentity()
	return pub
}

// NetworkRoyaltySecretKey returns the protocol-wide secret key that can
// spend network-royalty outputs, for a node acting as the royalty
// collector itself rather than merely auditing on its behalf.
func NetworkRoyaltySecretKey() MainSecretKey {
	msk, _ := royaltyIdentity()
	return msk
}

// CashNoteRedemption names a royalty-tagged output by the derivation index
// it was paid under and the address of the spend whose SpentTx carries it:
// the minimal data a holder of the royalty key needs to reconstruct and
// claim the CashNote, mirroring sn_transfers::CashNoteRedemption.
type CashNoteRedemption struct {
	DerivationIndex DerivationIndex
	SpendAddress    NetworkAddress
}

// RedeemRoyalty reconstructs and verifies the CashNote a network-royalty
// output names, given the SignedSpend whose SpentTx minted it and the
// derivation index it was paid under. It does not touch the network
// itself: FollowSpend's walk already holds sp from its own descendant
// fetch, so redemption is pure local reconstruction plus verification.
func RedeemRoyalty(sp SignedSpend, idx DerivationIndex) (CashNote, error) {
	pub := NetworkRoyaltyMainPubkey()
	uniquePub, err := DeriveUniquePubkey(pub, idx)
	if err != nil {
		return CashNote{}, fmt.Errorf("redeem royalty: %w", err)
	}
	if _, ok := sp.Spend.SpentTx.OutputFor(uniquePub); !ok {
		return CashNote{}, fmt.Errorf("redeem royalty: no matching output in spend's transaction")
	}
	cn := CashNote{
		UniquePubkey:    uniquePub,
		MainPubkey:      pub,
		DerivationIndex: idx,
		ParentTx:        sp.Spend.SpentTx,
		ParentSpends:    []SignedSpend{sp},
	}
	if err := cn.Verify(); err != nil {
		return CashNote{}, fmt.Errorf("redeem royalty: %w", err)
	}
	return cn, nil
}

// RoyaltyWallet is the subset of *WalletStore a royalty redemption needs:
// just enough to deposit a reconstructed CashNote, so audit.go's
// FollowSpend doesn't need to import a concrete wallet type.
type RoyaltyWallet interface {
	Deposit(notes []CashNote) (int, error)
}
