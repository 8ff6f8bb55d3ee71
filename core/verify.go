package core

// Verification engine: the three policies a put can apply before
// reporting success, plus the split-record resolution a get falls back to
// when the close group disagrees. Grounded on core/storage.go's use of
// content hashing as a cache key (for ChunkProof) and on
// sn_client/src/audit/mod.rs's split_utxos_and_spends /
// sn_transfers/src/cashnotes/signed_spend.rs (for how a Spend-kind split
// resolves to either a genuine double-spend or stale-replica noise).

import (
	"encoding/binary"
)

// ChunkProof is a nonce-bound commitment to a chunk's bytes: a holder that
// can answer hash(chunk_bytes||nonce) for a fresh nonce must actually have
// the bytes, not just a note that it once held them.
type ChunkProof struct {
	Nonce uint64
	Hash  Hash
}

// ComputeChunkProof builds the expected ChunkProof for content under nonce.
func ComputeChunkProof(content []byte, nonce uint64) ChunkProof {
	buf := make([]byte, len(content)+8)
	copy(buf, content)
	binary.BigEndian.PutUint64(buf[len(content):], nonce)
	return ChunkProof{Nonce: nonce, Hash: HashBytes(buf)}
}

// MergeSplitRecords resolves a set of divergent same-address replies.
// Register records merge via CRDT union: every replica is folded into one
// register keeping only ops whose signature verifies under the owner key,
// a replica that fails to decode or names a different owner/meta is
// skipped, and RegisterNotFound is returned only if no replica is left. Chunk and
// ChunkWithPayment records should never legitimately differ (the address
// already is the content hash), so any divergence there is reported back
// to the caller as an unresolvable split. Spend records that differ at the
// same address are a genuine double-spend: MergeSplitRecords returns that
// as a distinguished error rather than a generic split so callers can
// react specifically (e.g. an audit halting ancestor verification).
func MergeSplitRecords(replies map[Hash]Record) (Record, error) {
	if len(replies) == 0 {
		return Record{}, NewNetworkError("no replies to merge")
	}
	if len(replies) == 1 {
		for _, r := range replies {
			return r, nil
		}
	}

	var kind RecordKind
	var addr NetworkAddress
	first := true
	for _, r := range replies {
		if first {
			kind = r.Kind
			addr = r.Address
			first = false
			continue
		}
		if r.Kind != kind {
			return Record{}, NewRecordKindMismatch(kind)
		}
	}

	switch kind {
	case RecordKindRegister:
		var merged *Register
		for _, r := range replies {
			reg, err := r.AsRegister()
			if err != nil {
				continue
			}
			if merged == nil {
				merged = &Register{Meta: reg.Meta, Owner: reg.Owner}
			}
			if err := merged.Merge(reg); err != nil {
				continue
			}
		}
		if merged == nil {
			return Record{}, NewRegisterNotFound(addr)
		}
		return NewRegisterRecord(*merged)

	case RecordKindSpend:
		spends := make([]SignedSpend, 0, len(replies))
		for _, r := range replies {
			sp, err := r.AsSpend()
			if err != nil {
				return Record{}, err
			}
			spends = append(spends, sp)
		}
		return Record{}, NewDoubleSpend(addr, spends[0], spends[1])

	default:
		resultMap := make(map[string]Record, len(replies))
		for h, r := range replies {
			resultMap[h.String()] = r
		}
		return Record{}, NewSplitRecord(resultMap, nil)
	}
}
