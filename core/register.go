package core

// Register: an owner-keyed CRDT op-DAG. Grounded on the base spec's
// Register module and implemented as a pure op-union merge, the simplest
// CRDT shape the verification engine's split/merge logic (verify.go) needs:
// two replicas of the same register always merge to the same state
// regardless of arrival order, because merge is just set union over
// signature-verified ops.

import (
	"crypto/ed25519"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// RegisterOp is one entry in a register's op-DAG: a value written by the
// owner, causally dependent on a set of prior op hashes (its parents).
type RegisterOp struct {
	Parents   []Hash
	Value     []byte
	Signature []byte
}

// Hash returns the content hash identifying this op, used both as the DAG
// node id and as the parent reference of ops that causally follow it.
func (op RegisterOp) Hash() Hash {
	b, err := rlp.EncodeToBytes(struct {
		Parents []Hash
		Value   []byte
	}{op.Parents, op.Value})
	if err != nil {
		panic(fmt.Sprintf("register op encode: %v", err))
	}
	return HashBytes(b)
}

// signingPayload is what the owner's signature covers: the op's identity
// hash, so the signature can't be replayed onto a different value or
// parent set.
func (op RegisterOp) signingPayload() []byte {
	h := op.Hash()
	return h[:]
}

// Verify checks op's signature against owner.
func (op RegisterOp) Verify(owner ed25519.PublicKey) bool {
	return ed25519.Verify(owner, op.signingPayload(), op.Signature)
}

// SignRegisterOp signs a new op authored by key over parents/value.
func SignRegisterOp(key ed25519.PrivateKey, parents []Hash, value []byte) RegisterOp {
	op := RegisterOp{Parents: append([]Hash(nil), parents...), Value: value}
	payload := op.signingPayload()
	op.Signature = ed25519.Sign(key, payload)
	return op
}

// Register is a CRDT: an owner public key plus the set of signature-valid
// ops seen so far, addressed by RegisterAddress(meta, owner).
type Register struct {
	Meta  string
	Owner ed25519.PublicKey
	Ops   []RegisterOp
}

// Address returns the NetworkAddress this register is stored under.
func (r Register) Address() NetworkAddress {
	return RegisterAddress(r.Meta, r.Owner)
}

// opKey canonicalizes an op for deduplication in Ops slices (map keys
// can't be RLP structs directly).
func opKey(op RegisterOp) Hash { return op.Hash() }

// Write appends a new, owner-signed op to the register, validating the
// signature before accepting it. Orphan ops (whose parents aren't yet
// present) are accepted anyway: causal ordering is advisory for storage,
// not enforced by Write, matching the base spec's op-DAG model where
// out-of-order arrival across the network is expected and handled by
// Merge rather than rejected at write time.
func (r *Register) Write(op RegisterOp) error {
	if !op.Verify(r.Owner) {
		return fmt.Errorf("register op: invalid signature")
	}
	key := opKey(op)
	for _, existing := range r.Ops {
		if opKey(existing) == key {
			return nil
		}
	}
	r.Ops = append(r.Ops, op)
	return nil
}

// Merge unions other's ops into r, discarding anything whose signature
// doesn't verify against the shared owner key, and deduplicating by op
// hash. This is the entire CRDT: merge is commutative, associative and
// idempotent because it is exactly set union over a content-addressed
// set, so any two divergent replicas converge to the same register no
// matter how many times or in what order they're merged.
func (r *Register) Merge(other Register) error {
	if !r.Owner.Equal(other.Owner) || r.Meta != other.Meta {
		return fmt.Errorf("register merge: owner/meta mismatch")
	}
	seen := make(map[Hash]struct{}, len(r.Ops))
	for _, op := range r.Ops {
		seen[opKey(op)] = struct{}{}
	}
	for _, op := range other.Ops {
		if !op.Verify(r.Owner) {
			continue
		}
		k := opKey(op)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		r.Ops = append(r.Ops, op)
	}
	sortOps(r.Ops)
	return nil
}

// sortOps gives Ops a deterministic order (by hash) so two independently
// merged registers that end up holding the same op set also produce
// byte-identical RLP encodings — required for the DHT client's
// network-echo verification to treat them as equal.
func sortOps(ops []RegisterOp) {
	sort.Slice(ops, func(i, j int) bool {
		hi, hj := opKey(ops[i]), opKey(ops[j])
		for b := 0; b < len(hi); b++ {
			if hi[b] != hj[b] {
				return hi[b] < hj[b]
			}
		}
		return false
	})
}

// Tips returns the ops in r that are not referenced as a parent by any
// other op, i.e. the current frontier of the op-DAG. Most registers used
// as simple last-writer-style values read Tips()[0].Value when len==1;
// concurrent writers produce multiple tips the application must resolve.
func (r Register) Tips() []RegisterOp {
	referenced := make(map[Hash]struct{})
	for _, op := range r.Ops {
		for _, p := range op.Parents {
			referenced[p] = struct{}{}
		}
	}
	var tips []RegisterOp
	for _, op := range r.Ops {
		if _, ok := referenced[opKey(op)]; !ok {
			tips = append(tips, op)
		}
	}
	sortOps(tips)
	return tips
}
