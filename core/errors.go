package core

// Error taxonomy: stable, JSON-serializable variants that cross the network
// boundary. Grounded on sn_protocol/src/error.rs's variant set, translated
// from thiserror-derived enum variants into a small sum-of-structs with a
// Kind discriminant so each variant keeps its own payload instead of
// collapsing into one generic "code+message" error.

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the wire error taxonomy.
type Kind int

const (
	KindNetwork Kind = iota
	KindRecordNotFound
	KindSplitRecord
	KindRecordKindMismatch
	KindInvalidSpendSignature
	KindInvalidSpendValue
	KindTransactionHashMismatch
	KindDoubleSpend
	KindRegisterNotFound
	KindChunkDoesNotExist
	KindPubKeyMismatch
	KindConnectionTimeout
	KindMissingSpendRecord
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "Network"
	case KindRecordNotFound:
		return "RecordNotFound"
	case KindSplitRecord:
		return "SplitRecord"
	case KindRecordKindMismatch:
		return "RecordKindMismatch"
	case KindInvalidSpendSignature:
		return "InvalidSpendSignature"
	case KindInvalidSpendValue:
		return "InvalidSpendValue"
	case KindTransactionHashMismatch:
		return "TransactionHashMismatch"
	case KindDoubleSpend:
		return "DoubleSpend"
	case KindRegisterNotFound:
		return "RegisterNotFound"
	case KindChunkDoesNotExist:
		return "ChunkDoesNotExist"
	case KindPubKeyMismatch:
		return "PubKeyMismatch"
	case KindConnectionTimeout:
		return "ConnectionTimeout"
	case KindMissingSpendRecord:
		return "MissingSpendRecord"
	default:
		return "Unknown"
	}
}

// ProtocolError is the common shape of every wire-crossing error variant.
// Each constructor below fills Kind plus whichever payload fields apply;
// unused payload fields are left at their zero value.
type ProtocolError struct {
	KindVal     Kind                `json:"kind"`
	Message     string              `json:"message"`
	Address     *NetworkAddress     `json:"address,omitempty"`
	Expected    *RecordKind         `json:"expected,omitempty"`
	Duration    time.Duration       `json:"duration,omitempty"`
	SplitResult map[string]Record   `json:"split_result,omitempty"`
	SplitPeers  map[string][]PeerID `json:"split_peers,omitempty"`
	SpendA      *SignedSpend        `json:"spend_a,omitempty"`
	SpendB      *SignedSpend        `json:"spend_b,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.KindVal, e.Message)
	}
	return e.KindVal.String()
}

// Kind returns the error's discriminant, for callers that want to switch on
// category without a type assertion.
func (e *ProtocolError) Kind() Kind { return e.KindVal }

func NewNetworkError(message string) *ProtocolError {
	return &ProtocolError{KindVal: KindNetwork, Message: message}
}

func NewRecordNotFound(addr NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindRecordNotFound, Address: &addr, Message: "record not found"}
}

// NewSplitRecord reports divergent replicas for the same key, carrying the
// content-hash -> (Record, holders) map named in base spec §7.
func NewSplitRecord(resultMap map[string]Record, peers map[string][]PeerID) *ProtocolError {
	return &ProtocolError{
		KindVal:     KindSplitRecord,
		Message:     "split record",
		SplitResult: resultMap,
		SplitPeers:  peers,
	}
}

func NewRecordKindMismatch(expected RecordKind) *ProtocolError {
	return &ProtocolError{KindVal: KindRecordKindMismatch, Expected: &expected, Message: "record kind mismatch"}
}

func NewInvalidSpendSignature(uniquePubkey NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindInvalidSpendSignature, Address: &uniquePubkey, Message: "invalid spend signature"}
}

func NewInvalidSpendValue(uniquePubkey NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindInvalidSpendValue, Address: &uniquePubkey, Message: "invalid spend value"}
}

func NewTransactionHashMismatch(expected, actual Hash) *ProtocolError {
	return &ProtocolError{
		KindVal: KindTransactionHashMismatch,
		Message: fmt.Sprintf("expected %s got %s", expected, actual),
	}
}

func NewDoubleSpend(addr NetworkAddress, a, b SignedSpend) *ProtocolError {
	return &ProtocolError{KindVal: KindDoubleSpend, Address: &addr, SpendA: &a, SpendB: &b, Message: "double spend detected"}
}

func NewRegisterNotFound(addr NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindRegisterNotFound, Address: &addr, Message: "register not found"}
}

func NewChunkDoesNotExist(addr NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindChunkDoesNotExist, Address: &addr, Message: "chunk does not exist"}
}

func NewPubKeyMismatch(path string) *ProtocolError {
	return &ProtocolError{KindVal: KindPubKeyMismatch, Message: path}
}

func NewConnectionTimeout(d time.Duration) *ProtocolError {
	return &ProtocolError{KindVal: KindConnectionTimeout, Duration: d, Message: "connection timeout"}
}

func NewMissingSpendRecord(addr NetworkAddress) *ProtocolError {
	return &ProtocolError{KindVal: KindMissingSpendRecord, Address: &addr, Message: "missing spend record (utxo)"}
}

// Classify extracts the Kind from err if it is (or wraps) a *ProtocolError,
// returning ok=false otherwise.
func Classify(err error) (Kind, bool) {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return 0, false
	}
	return pe.KindVal, true
}

// AsJSON serializes a ProtocolError for the wire; every variant round-trips
// through its exported fields without custom marshaling.
func (e *ProtocolError) AsJSON() ([]byte, error) {
	return json.Marshal(e)
}
