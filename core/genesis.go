package core

// Genesis CashNote: the single network-wide root every CashNote's ancestry
// must eventually trace back to. Grounded on sn_client/src/audit/mod.rs's
// treatment of the genesis transaction as the BFS termination condition
// (a ParentTx with no inputs is definitionally valid and needs no further
// ancestor fetch), and on sn_transfers::GENESIS_CASHNOTE being a single
// hard-coded constant rather than something minted per test run: real
// networks all trace back to the *same* genesis pubkey, not an arbitrary
// one picked at runtime.

import "sync"

// GenesisAmount is the total value minted at network genesis.
const GenesisAmount uint64 = 1_000_000_000_000

var (
	genesisOnce sync.Once
	genesisMsk  MainSecretKey
	genesisPub  MainPubkey
)

// genesisIdentity lazily derives the network's single protocol-wide
// genesis keypair from a fixed seed, so every node agrees on the same
// GenesisMainPubkey without needing to ship it as a literal byte constant.
func genesisIdentity() (MainSecretKey, MainPubkey) {
	genesisOnce.Do(func() {
		seed := HashBytes([]byte("vaultmesh/genesis/v1"))
		genesisMsk = deriveMainSecretKeyFromSeed(seed[:])
		pub, err := genesisMsk.PublicKey()
		if err != nil {
			panic("genesis identity: " + err.Error())
		}
		genesisPub = pub
	})
	return genesisMsk, genesisPub
}

// GenesisMainPubkey returns the protocol's single hard-coded genesis
// identity's public key, the owner of ProtocolGenesisCashNote.
func GenesisMainPubkey() MainPubkey {
	_, pub := genesisIdentity()
	return pub
}

// GenesisMainSecretKey returns the protocol's hard-coded genesis secret
// key. Real networks guard this far more carefully than this function
// does; it exists so test and bootstrap tooling can mint and immediately
// spend from the one true genesis note without a separate key-exchange
// step.
func GenesisMainSecretKey() MainSecretKey {
	msk, _ := genesisIdentity()
	return msk
}

// ProtocolGenesisCashNote mints the network's single canonical genesis
// CashNote, owned by GenesisMainPubkey. Unlike NewGenesisCashNote (which
// takes an arbitrary owner and a fresh random derivation index, useful for
// tests that each want their own isolated genesis), every call to this
// function derives the exact same CashNote: same owner, same derivation
// index, same UniquePubkey. A real network has exactly one genesis note;
// this is it.
func ProtocolGenesisCashNote() (CashNote, error) {
	owner := GenesisMainPubkey()
	idx := DerivationIndex(HashBytes([]byte("vaultmesh/genesis-output/v1")))
	uniquePub, err := DeriveUniquePubkey(owner, idx)
	if err != nil {
		return CashNote{}, err
	}
	tx := Transaction{
		Inputs: nil,
		Outputs: []Output{
			{UniquePubkey: uniquePub, Amount: GenesisAmount},
		},
	}
	return CashNote{
		UniquePubkey:    uniquePub,
		MainPubkey:      owner,
		DerivationIndex: idx,
		ParentTx:        tx,
		ParentSpends:    nil,
	}, nil
}

// NewGenesisCashNote mints the network's root CashNote, owned by owner.
// Its ParentTx has no inputs, so IsGenesisSpend reports true for any Spend
// consuming it and audits terminate there.
func NewGenesisCashNote(owner MainPubkey) (CashNote, error) {
	idx, err := RandomDerivationIndex()
	if err != nil {
		return CashNote{}, err
	}
	uniquePub, err := DeriveUniquePubkey(owner, idx)
	if err != nil {
		return CashNote{}, err
	}
	tx := Transaction{
		Inputs: nil,
		Outputs: []Output{
			{UniquePubkey: uniquePub, Amount: GenesisAmount},
		},
	}
	return CashNote{
		UniquePubkey:    uniquePub,
		MainPubkey:      owner,
		DerivationIndex: idx,
		ParentTx:        tx,
		ParentSpends:    nil,
	}, nil
}

// IsGenesisCashNote reports whether cn is itself the network genesis note
// (no inputs in its parent transaction and no parent spends attached).
func IsGenesisCashNote(cn CashNote) bool {
	return len(cn.ParentTx.Inputs) == 0 && len(cn.ParentSpends) == 0
}
