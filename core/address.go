package core

// Address & key model: 256-bit NetworkAddress derivation, XOR distance and
// close-group selection over that space.
//
// Generalised from kademlia.go's 160-bit SHA-1-truncated bucket index: the
// SAFE-style network keeps peer IDs and content addresses in the same
// 256-bit SHA-256 space, so distances and close groups below operate on the
// full digest instead of a truncated 20-byte prefix.

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	sha256 "github.com/minio/sha256-simd"
)

// CloseGroupSize is the number of peers, ranked by XOR distance, that are
// collectively responsible for storing a record addressed to a given key.
const CloseGroupSize = 8

// NetworkAddress is a 256-bit identifier living in the same metric space as
// peer IDs.
type NetworkAddress [32]byte

// PeerID mirrors a libp2p peer ID in its string form. Kept as a plain string
// (rather than importing peer.ID everywhere) so packages that only need
// distance arithmetic don't need to depend on libp2p.
type PeerID string

// Hash is a generic 256-bit content hash, used for transaction and
// operation hashes throughout the transfer and register models.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// HashBytes returns the SHA-256 digest of data as a Hash.
func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

func (a NetworkAddress) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether the address is the all-zero value (used as a
// sentinel for "no address" in a few call sites rather than a pointer).
func (a NetworkAddress) IsZero() bool { return a == NetworkAddress{} }

// ParseNetworkAddress parses the hex string produced by NetworkAddress.String.
func ParseNetworkAddress(s string) (NetworkAddress, error) {
	var addr NetworkAddress
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != len(addr) {
		return addr, fmt.Errorf("parse address: expected %d bytes, got %d", len(addr), len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// ChunkAddress derives the content address of an immutable chunk: the
// SHA-256 digest of its bytes.
func ChunkAddress(content []byte) NetworkAddress {
	return NetworkAddress(sha256.Sum256(content))
}

// RegisterAddress derives the address of a Register from its metadata and
// owner public key: hash(meta || owner_public_key).
func RegisterAddress(meta string, owner ed25519.PublicKey) NetworkAddress {
	h := sha256.New()
	h.Write([]byte(meta))
	h.Write(owner)
	var out NetworkAddress
	copy(out[:], h.Sum(nil))
	return out
}

// SpendAddress derives the address of a Spend from the UniquePubkey of the
// CashNote it consumes.
func SpendAddress(uniquePubkey ed25519.PublicKey) NetworkAddress {
	var out NetworkAddress
	copy(out[:], sha256.Sum256(uniquePubkey)[:])
	return out
}

// peerAddress hashes a PeerID into the same 256-bit space as content
// addresses so distance comparisons are well defined between the two.
func peerAddress(id PeerID) NetworkAddress {
	return NetworkAddress(sha256.Sum256([]byte(id)))
}

// XorDistance returns the XOR distance between two network addresses as a
// big.Int, matching kademlia.go's distance() but over the full 32 bytes
// instead of a 20-byte truncation.
func XorDistance(a, b NetworkAddress) *big.Int {
	var diff [32]byte
	for i := range diff {
		diff[i] = a[i] ^ b[i]
	}
	return new(big.Int).SetBytes(diff[:])
}

// CloseGroup returns the n peers (n defaults to CloseGroupSize when count<=0)
// from candidates that are XOR-closest to target, sorted nearest-first.
// This is the selection rule used by the DHT client facade to pick put/get
// targets and is the 256-bit generalisation of kademlia.go's Nearest().
func CloseGroup(target NetworkAddress, candidates []PeerID, count int) []PeerID {
	if count <= 0 {
		count = CloseGroupSize
	}
	type ranked struct {
		id   PeerID
		dist *big.Int
	}
	ranked_ := make([]ranked, len(candidates))
	for i, c := range candidates {
		ranked_[i] = ranked{id: c, dist: XorDistance(peerAddress(c), target)}
	}
	sort.Slice(ranked_, func(i, j int) bool {
		return ranked_[i].dist.Cmp(ranked_[j].dist) < 0
	})
	if len(ranked_) > count {
		ranked_ = ranked_[:count]
	}
	out := make([]PeerID, len(ranked_))
	for i, r := range ranked_ {
		out[i] = r.id
	}
	return out
}

// IsInCloseGroup reports whether peer is among the CloseGroupSize peers
// nearest to target within candidates.
func IsInCloseGroup(peer PeerID, target NetworkAddress, candidates []PeerID) bool {
	for _, p := range CloseGroup(target, candidates, CloseGroupSize) {
		if p == peer {
			return true
		}
	}
	return false
}

// MajorityThreshold is ceil(CloseGroupSize/2) + 1, the tie-break rule for
// Quorum::Majority.
func MajorityThreshold() int {
	return (CloseGroupSize+1)/2 + 1
}

func validateAddress(label string, a NetworkAddress) error {
	if a.IsZero() {
		return fmt.Errorf("%s: zero network address", label)
	}
	return nil
}
