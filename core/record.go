package core

// Record is the tagged envelope that travels over the wire and sits in the
// chunk/record store: every kind of data the network moves (chunks,
// registers, spends, and payment-wrapped chunk puts) is carried as a Record
// so the DHT client facade and verification engine can stay kind-agnostic.
//
// Grounded on ledger.go's use of github.com/ethereum/go-ethereum/rlp for
// canonical, deterministic encoding: RLP is used here instead of JSON
// because byte-identical re-encoding is load-bearing for ChunkProof and for
// detecting split records (divergent replicas must compare equal only when
// their *decoded* content is equal, and RLP's canonical form makes the
// encoded bytes a reliable proxy for that).

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// RecordKind discriminates the payload carried by a Record.
type RecordKind uint8

const (
	RecordKindChunk RecordKind = iota
	RecordKindChunkWithPayment
	RecordKindSpend
	RecordKindRegister
)

func (k RecordKind) String() string {
	switch k {
	case RecordKindChunk:
		return "Chunk"
	case RecordKindChunkWithPayment:
		return "ChunkWithPayment"
	case RecordKindSpend:
		return "Spend"
	case RecordKindRegister:
		return "Register"
	default:
		return "Unknown"
	}
}

// Record is the canonical, RLP-encodable envelope stored and replicated by
// the close group. Value holds the kind-specific payload: the raw Chunk
// bytes, or the RLP encoding of a Register snapshot, a []SignedSpend, or a
// ChunkPayment wrapper; callers decode it via the matching As* helper.
type Record struct {
	Kind    RecordKind
	Address NetworkAddress
	Value   []byte
}

// ContentHash returns the hash of the record's encoded value, used as the
// disambiguator key when multiple replicas disagree (split record).
func (r Record) ContentHash() Hash {
	return HashBytes(r.Value)
}

// EncodeRecord RLP-encodes r for wire transmission or disk storage.
func EncodeRecord(r Record) ([]byte, error) {
	b, err := rlp.EncodeToBytes(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// DecodeRecord decodes bytes produced by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// NewChunkRecord wraps raw immutable chunk bytes into a Record addressed by
// their content hash.
func NewChunkRecord(content []byte) (Record, error) {
	addr := ChunkAddress(content)
	return Record{Kind: RecordKindChunk, Address: addr, Value: append([]byte(nil), content...)}, nil
}

// AsChunk unwraps a Chunk record back to raw bytes, verifying the kind tag.
func (r Record) AsChunk() ([]byte, error) {
	if r.Kind != RecordKindChunk && r.Kind != RecordKindChunkWithPayment {
		return nil, NewRecordKindMismatch(RecordKindChunk)
	}
	if r.Kind == RecordKindChunkWithPayment {
		var wrapper ChunkPayment
		if err := rlp.DecodeBytes(r.Value, &wrapper); err != nil {
			return nil, fmt.Errorf("decode chunk payment wrapper: %w", err)
		}
		return wrapper.Content, nil
	}
	return r.Value, nil
}

// ChunkPayment wraps a chunk together with the SignedSpend(s) that pay for
// its storage. Only used on the put path: a close-group member accepts the
// chunk only after every attached SignedSpend passes Verify (whom the
// spends pay is not checked), then re-stores it as a plain Chunk record so
// subsequent gets don't carry payment weight forever.
type ChunkPayment struct {
	Content []byte
	Payment []SignedSpend
}

// NewChunkWithPaymentRecord builds a put-only ChunkWithPayment record.
func NewChunkWithPaymentRecord(content []byte, payment []SignedSpend) (Record, error) {
	addr := ChunkAddress(content)
	val, err := rlp.EncodeToBytes(ChunkPayment{Content: content, Payment: payment})
	if err != nil {
		return Record{}, fmt.Errorf("encode chunk payment: %w", err)
	}
	return Record{Kind: RecordKindChunkWithPayment, Address: addr, Value: val}, nil
}

// AsChunkWithPayment unwraps the full ChunkPayment including attached
// spends, for the close-group member that must validate payment before
// accepting the chunk.
func (r Record) AsChunkWithPayment() (ChunkPayment, error) {
	if r.Kind != RecordKindChunkWithPayment {
		return ChunkPayment{}, NewRecordKindMismatch(RecordKindChunkWithPayment)
	}
	var wrapper ChunkPayment
	if err := rlp.DecodeBytes(r.Value, &wrapper); err != nil {
		return ChunkPayment{}, fmt.Errorf("decode chunk payment: %w", err)
	}
	return wrapper, nil
}

// NewRegisterRecord wraps a Register snapshot into a Record addressed by
// its owner-derived RegisterAddress.
func NewRegisterRecord(reg Register) (Record, error) {
	val, err := rlp.EncodeToBytes(reg)
	if err != nil {
		return Record{}, fmt.Errorf("encode register: %w", err)
	}
	return Record{Kind: RecordKindRegister, Address: reg.Address(), Value: val}, nil
}

// AsRegister unwraps a Register record.
func (r Record) AsRegister() (Register, error) {
	if r.Kind != RecordKindRegister {
		return Register{}, NewRecordKindMismatch(RecordKindRegister)
	}
	var reg Register
	if err := rlp.DecodeBytes(r.Value, &reg); err != nil {
		return Register{}, fmt.Errorf("decode register: %w", err)
	}
	return reg, nil
}

// NewSpendRecord wraps a SignedSpend into a Record addressed by the
// UniquePubkey of the CashNote it consumes. The wire payload is a
// []SignedSpend (base spec §6: "Spend = Vec<SignedSpend>") even for a
// fresh record carrying only one entry, so a holder that later receives a
// second, conflicting spend for the same key can accumulate it onto the
// same record instead of overwriting the first — see MergeSpendRecord.
func NewSpendRecord(spend SignedSpend) (Record, error) {
	val, err := rlp.EncodeToBytes([]SignedSpend{spend})
	if err != nil {
		return Record{}, fmt.Errorf("encode spend: %w", err)
	}
	return Record{Kind: RecordKindSpend, Address: SpendAddress(spend.Spend.UniquePubkey), Value: val}, nil
}

// AsSpends unwraps every SignedSpend a Spend record carries. A holder that
// has observed a double spend for this address stores both here rather
// than discarding one, preserving the evidence for audits and clients.
func (r Record) AsSpends() ([]SignedSpend, error) {
	if r.Kind != RecordKindSpend {
		return nil, NewRecordKindMismatch(RecordKindSpend)
	}
	var spends []SignedSpend
	if err := rlp.DecodeBytes(r.Value, &spends); err != nil {
		return nil, fmt.Errorf("decode spend: %w", err)
	}
	if len(spends) == 0 {
		return nil, fmt.Errorf("decode spend: empty spend record")
	}
	return spends, nil
}

// AsSpend unwraps a Spend record's single SignedSpend. If the record
// carries more than one (double-spend evidence accumulated by
// MergeSpendRecord), it returns a DoubleSpend error naming the first two
// as evidence rather than silently picking one.
func (r Record) AsSpend() (SignedSpend, error) {
	spends, err := r.AsSpends()
	if err != nil {
		return SignedSpend{}, err
	}
	if len(spends) > 1 {
		return SignedSpend{}, NewDoubleSpend(r.Address, spends[0], spends[1])
	}
	return spends[0], nil
}

// MergeSpendRecord folds incoming (a freshly-received Spend record) into
// existing (what this holder already stores at the same address, if
// anything), accumulating distinct SignedSpends rather than overwriting.
// Grounded on base spec §6's requirement that a Spend record preserve
// double-spend evidence on read: a second, conflicting spend for the same
// UniquePubkey must still be retrievable alongside the first.
func MergeSpendRecord(existing *Record, incoming Record) (Record, error) {
	if incoming.Kind != RecordKindSpend {
		return Record{}, NewRecordKindMismatch(RecordKindSpend)
	}
	incomingSpends, err := incoming.AsSpends()
	if err != nil {
		return Record{}, err
	}
	if existing == nil {
		return incoming, nil
	}
	existingSpends, err := existing.AsSpends()
	if err != nil {
		return Record{}, err
	}

	merged := append([]SignedSpend(nil), existingSpends...)
	for _, sp := range incomingSpends {
		found := false
		for _, have := range merged {
			if have.Spend.Hash() == sp.Spend.Hash() {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, sp)
		}
	}

	val, err := rlp.EncodeToBytes(merged)
	if err != nil {
		return Record{}, fmt.Errorf("encode spend: %w", err)
	}
	return Record{Kind: RecordKindSpend, Address: incoming.Address, Value: val}, nil
}
