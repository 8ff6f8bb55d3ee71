package core

// Key derivation for per-CashNote "unique" keypairs.
//
// Adapted from wallet.go's HD derivation path: instead of a single
// BIP32-style chain derived from one secret, every CashNote gets its own
// one-time keypair so spends can't be linked to a wallet's main identity.
// The underlying curve arithmetic is X25519 ECDH (golang.org/x/crypto's
// curve25519, already pulled in for the wallet's other key handling)
// rather than bls_derivation's BLS12-381 point addition: ECDH gives the
// same property the protocol needs (a sender can compute the recipient's
// one-time public key from the recipient's main public key and a fresh
// random index, while only the recipient's main secret key can recover the
// matching private key) without requiring a pairing-friendly curve stack.
//
// MainSecretKey additionally carries a bip39 mnemonic-derived seed
// (tyler-smith/go-bip39) so wallets can be backed up as a recovery phrase,
// matching wallet.go's existing HD-wallet ergonomics.

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/curve25519"
)

// DerivationIndex is the per-output nonce a sender picks to address a new
// CashNote to a recipient's main public key without any interaction.
type DerivationIndex [32]byte

// RandomDerivationIndex draws a fresh index from the system CSPRNG.
func RandomDerivationIndex() (DerivationIndex, error) {
	var idx DerivationIndex
	if _, err := rand.Read(idx[:]); err != nil {
		return idx, fmt.Errorf("derivation index: %w", err)
	}
	return idx, nil
}

// MainPubkey is a wallet's long-lived public identity: an Ed25519 signing
// key and an X25519 key-agreement key sharing the same seed material.
type MainPubkey struct {
	Ed25519 ed25519.PublicKey
	X25519  [32]byte
}

// MainSecretKey is a wallet's long-lived private identity.
type MainSecretKey struct {
	ed25519Seed [32]byte
	x25519Priv  [32]byte
}

// NewMainSecretKeyFromMnemonic derives a MainSecretKey from a BIP-39
// mnemonic, the same recovery-phrase flow wallet.go exposes for its HD
// chain.
func NewMainSecretKeyFromMnemonic(mnemonic, passphrase string) (MainSecretKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return MainSecretKey{}, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return deriveMainSecretKeyFromSeed(seed), nil
}

// GenerateMainSecretKey creates a fresh random wallet identity and returns
// it alongside the mnemonic that recovers it.
func GenerateMainSecretKey() (MainSecretKey, string, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return MainSecretKey{}, "", fmt.Errorf("entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return MainSecretKey{}, "", fmt.Errorf("mnemonic: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")
	return deriveMainSecretKeyFromSeed(seed), mnemonic, nil
}

func deriveMainSecretKeyFromSeed(seed []byte) MainSecretKey {
	var msk MainSecretKey
	edSeed := hmacSum(seed, []byte("vaultmesh/ed25519-main"))
	x25519Seed := hmacSum(seed, []byte("vaultmesh/x25519-main"))
	copy(msk.ed25519Seed[:], edSeed)
	copy(msk.x25519Priv[:], x25519Seed)
	clampScalar(&msk.x25519Priv)
	return msk
}

func hmacSum(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

func clampScalar(s *[32]byte) {
	s[0] &= 248
	s[31] &= 127
	s[31] |= 64
}

// IdentityKeypair returns msk's long-lived Ed25519 signing key, the one
// Register ops are signed with (as opposed to a CashNote's one-time
// DeriveUniqueKeypair key).
func (msk MainSecretKey) IdentityKeypair() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(msk.ed25519Seed[:])
}

// PublicKey derives the MainPubkey corresponding to msk.
func (msk MainSecretKey) PublicKey() (MainPubkey, error) {
	edPriv := ed25519.NewKeyFromSeed(msk.ed25519Seed[:])
	var x25519Pub [32]byte
	pub, err := curve25519.X25519(msk.x25519Priv[:], curve25519.Basepoint)
	if err != nil {
		return MainPubkey{}, fmt.Errorf("x25519 basepoint mult: %w", err)
	}
	copy(x25519Pub[:], pub)
	return MainPubkey{Ed25519: edPriv.Public().(ed25519.PublicKey), X25519: x25519Pub}, nil
}

// sharedSecretSender computes the ECDH shared secret a sender uses to
// address an output to recipientPub, keyed under a fresh DerivationIndex
// acting as the ephemeral scalar.
func sharedSecretSender(idx DerivationIndex, recipientPub MainPubkey) ([]byte, error) {
	scalar := idx
	clampScalar((*[32]byte)(&scalar))
	shared, err := curve25519.X25519(scalar[:], recipientPub.X25519[:])
	if err != nil {
		return nil, fmt.Errorf("ecdh (sender): %w", err)
	}
	return shared, nil
}

// sharedSecretRecipient computes the same shared secret from the
// recipient's side: X25519 basepoint-mult of idx gives the sender's
// ephemeral public point, which the recipient combines with their own
// x25519 secret.
func sharedSecretRecipient(msk MainSecretKey, idx DerivationIndex) ([]byte, error) {
	ephemeralPub, err := curve25519.X25519(idx[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("ephemeral pub: %w", err)
	}
	shared, err := curve25519.X25519(msk.x25519Priv[:], ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh (recipient): %w", err)
	}
	return shared, nil
}

func derivedEd25519SeedFromShared(shared []byte) [32]byte {
	var seed [32]byte
	copy(seed[:], hmacSum(shared, []byte("vaultmesh/unique-keypair")))
	return seed
}

// DeriveUniquePubkey computes the one-time Ed25519 public key a CashNote
// addressed to recipientPub under idx will use. Only recipientPub and idx
// are needed, so the sender never touches the recipient's secret key.
func DeriveUniquePubkey(recipientPub MainPubkey, idx DerivationIndex) (ed25519.PublicKey, error) {
	shared, err := sharedSecretSender(idx, recipientPub)
	if err != nil {
		return nil, err
	}
	seed := derivedEd25519SeedFromShared(shared)
	return ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey), nil
}

// DeriveUniqueKeypair reconstructs the owner's one-time signing key for a
// CashNote addressed to them under idx. Requires the owner's MainSecretKey.
func DeriveUniqueKeypair(msk MainSecretKey, idx DerivationIndex) (ed25519.PrivateKey, error) {
	shared, err := sharedSecretRecipient(msk, idx)
	if err != nil {
		return nil, err
	}
	seed := derivedEd25519SeedFromShared(shared)
	return ed25519.NewKeyFromSeed(seed[:]), nil
}
