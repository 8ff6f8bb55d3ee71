package core

// Ambient tunables for the DHT client facade: quorum policy, timeouts and
// retry budget. Mirrors the shape of kademlia.go/network.go's Config struct
// but scoped to the put/get path instead of libp2p bootstrap options.

import "time"

// QuorumKind selects how many close-group replicas must agree before a
// put/get is considered settled.
type QuorumKind int

const (
	QuorumOne QuorumKind = iota
	QuorumMajority
	QuorumAll
	QuorumN
)

// Quorum pairs a QuorumKind with its N parameter (only meaningful for
// QuorumN).
type Quorum struct {
	Kind QuorumKind
	N    int
}

// Threshold returns the number of matching replicas required to satisfy q
// out of groupSize candidates.
func (q Quorum) Threshold(groupSize int) int {
	switch q.Kind {
	case QuorumOne:
		return 1
	case QuorumAll:
		return groupSize
	case QuorumN:
		if q.N > groupSize {
			return groupSize
		}
		return q.N
	case QuorumMajority:
		fallthrough
	default:
		return MajorityThreshold()
	}
}

const (
	// DefaultConnectionTimeout bounds a single peer dial/request.
	DefaultConnectionTimeout = 10 * time.Second
	// DefaultInactivityTimeout is the default GetConfig.InactivityWindow.
	// Client does not read that field: a get or put is bounded only by
	// ConnTimeout per peer request and by the caller's context.
	DefaultInactivityTimeout = 30 * time.Second
	// DefaultPutRetries is the number of put reattempts on transient
	// network errors before surfacing a NetworkError.
	DefaultPutRetries = 3
	// DefaultBackoff is the base retry backoff; attempt i waits
	// DefaultBackoff * 2^i.
	DefaultBackoff = 200 * time.Millisecond
)

// VerificationPolicy controls what a put does after writing to the close
// group, before returning success to the caller.
type VerificationPolicy int

const (
	// VerifyNone returns as soon as the quorum threshold of acks is met.
	VerifyNone VerificationPolicy = iota
	// VerifyNetworkEcho re-fetches the record from the close group and
	// compares it byte-for-byte against what was stored.
	VerifyNetworkEcho
	// VerifyChunkProof challenges each holder with a fresh nonce and
	// checks hash(chunk_bytes||nonce), detecting holders that claim to
	// store a chunk without actually holding its bytes.
	VerifyChunkProof
)

// PutConfig parameterizes a single put operation.
type PutConfig struct {
	Quorum      Quorum
	Verify      VerificationPolicy
	Retries     int
	Backoff     time.Duration
	ConnTimeout time.Duration
}

// DefaultPutConfig matches base spec's default put behaviour: majority
// quorum, no extra verification pass, bounded retries.
func DefaultPutConfig() PutConfig {
	return PutConfig{
		Quorum:      Quorum{Kind: QuorumMajority},
		Verify:      VerifyNone,
		Retries:     DefaultPutRetries,
		Backoff:     DefaultBackoff,
		ConnTimeout: DefaultConnectionTimeout,
	}
}

// GetConfig parameterizes a single get operation.
type GetConfig struct {
	Quorum           Quorum
	EscalateOnSplit  bool
	ConnTimeout      time.Duration
	InactivityWindow time.Duration
}

// DefaultGetConfig matches base spec's default get behaviour: Quorum::One
// (a cached record is returned without a network read) with
// EscalateOnSplit set, so a network read queries every close-group peer
// and divergent replicas are detected and merged.
func DefaultGetConfig() GetConfig {
	return GetConfig{
		Quorum:           Quorum{Kind: QuorumOne},
		EscalateOnSplit:  true,
		ConnTimeout:      DefaultConnectionTimeout,
		InactivityWindow: DefaultInactivityTimeout,
	}
}
