package core

// Client is the DHT client facade: the one piece of code every other
// component (wallet, audit engine, CLI) calls to put or get a Record.
// Grounded on core/network.go for the swarm collaborator shape and
// core/kademlia.go for close-group/XOR-nearest peer selection; reattempt
// backoff and the Quorum policy are base-spec §4.E unchanged. The local
// hot-path cache uses github.com/hashicorp/golang-lru/v2, mirroring
// core/storage.go's on-disk LRU but sized for recently-seen Records
// instead of gateway-fetched bytes.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Transport is the low-level peer-addressable operations a concrete swarm
// implementation (swarm.go) provides. Client composes Transport with
// close-group selection, quorum accounting and retry/backoff to implement
// the full DHTNetwork surface.
type Transport interface {
	ClosePeers(ctx context.Context, target NetworkAddress) ([]PeerID, error)
	SendPut(ctx context.Context, peer PeerID, rec Record) error
	SendGet(ctx context.Context, peer PeerID, addr NetworkAddress) (Record, error)
	SendChunkProofChallenge(ctx context.Context, peer PeerID, addr NetworkAddress, nonce uint64) (Hash, error)
	Subscribe(topic string) (<-chan GossipMessage, error)
	Publish(topic string, msg []byte) error
	Unsubscribe(topic string) error
}

// GossipMessage is a single pubsub delivery.
type GossipMessage struct {
	Topic string
	Data  []byte
	From  PeerID
}

// DHTNetwork is the full surface every component downstream of the
// network (wallet, audit engine, CLI) depends on. Client below is the
// reference implementation; tests substitute a fake.
type DHTNetwork interface {
	PutRecord(ctx context.Context, rec Record, cfg PutConfig) error
	GetRecord(ctx context.Context, key NetworkAddress, cfg GetConfig) (Record, error)
	GetClosestPeers(ctx context.Context, addr NetworkAddress, includeSelf bool) ([]PeerID, error)
	VerifyChunkExistence(ctx context.Context, addr NetworkAddress, nonce uint64, expected ChunkProof, q Quorum, reattempt bool) error
	SubscribeTopic(topic string) (<-chan GossipMessage, error)
	PublishTopic(topic string, msg []byte) error
	UnsubscribeTopic(topic string) error
}

const defaultRecordCacheSize = 4096

// Client implements DHTNetwork over a Transport.
type Client struct {
	transport Transport
	cache     *lru.Cache[NetworkAddress, Record]
	log       *logrus.Logger
}

// NewClient builds a Client. cacheSize<=0 uses defaultRecordCacheSize.
func NewClient(t Transport, cacheSize int, log *logrus.Logger) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = defaultRecordCacheSize
	}
	cache, err := lru.New[NetworkAddress, Record](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("dht client: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{transport: t, cache: cache, log: log}, nil
}

var _ DHTNetwork = (*Client)(nil)

func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// PutRecord stores rec across the close group for rec.Address, retrying
// with exponential backoff until cfg.Quorum's threshold is met or retries
// are exhausted.
func (c *Client) PutRecord(ctx context.Context, rec Record, cfg PutConfig) error {
	opID := uuid.New().String()
	peers, err := c.transport.ClosePeers(ctx, rec.Address)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("close peers: %v", err))
	}
	if len(peers) > CloseGroupSize {
		peers = peers[:CloseGroupSize]
	}
	threshold := cfg.Quorum.Threshold(len(peers))

	var acked int
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		acked = 0
		for _, p := range peers {
			reqCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
			err := c.transport.SendPut(reqCtx, p, rec)
			cancel()
			if err != nil {
				c.log.WithField("op", opID).Debugf("dht put: peer %s failed: %v", p, err)
				continue
			}
			acked++
		}
		if acked >= threshold {
			break
		}
		if attempt < cfg.Retries {
			select {
			case <-time.After(backoffDelay(cfg.Backoff, attempt)):
			case <-ctx.Done():
				return NewNetworkError("put cancelled")
			}
		}
	}
	if acked < threshold {
		return NewNetworkError(fmt.Sprintf("put: only %d/%d replicas acked (need %d)", acked, len(peers), threshold))
	}

	switch cfg.Verify {
	case VerifyNetworkEcho:
		got, err := c.GetRecord(ctx, rec.Address, GetConfig{Quorum: Quorum{Kind: QuorumOne}, ConnTimeout: cfg.ConnTimeout})
		if err != nil {
			return fmt.Errorf("put verify (network echo): %w", err)
		}
		if got.ContentHash() != rec.ContentHash() {
			return NewNetworkError("put verify: echoed record does not match")
		}
	case VerifyChunkProof:
		content, err := rec.AsChunk()
		if err != nil {
			return err
		}
		nonce := uint64(time.Now().UnixNano())
		proof := ComputeChunkProof(content, nonce)
		if err := c.VerifyChunkExistence(ctx, rec.Address, nonce, proof, cfg.Quorum, true); err != nil {
			return fmt.Errorf("put verify (chunk proof): %w", err)
		}
	}

	c.cache.Add(rec.Address, rec)
	return nil
}

// GetRecord fetches the record at key, escalating to the full close group
// when the first responder's Quorum is not One, or when replicas
// disagree and cfg.EscalateOnSplit requests resolution.
func (c *Client) GetRecord(ctx context.Context, key NetworkAddress, cfg GetConfig) (Record, error) {
	if cfg.Quorum.Kind == QuorumOne {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	peers, err := c.transport.ClosePeers(ctx, key)
	if err != nil {
		return Record{}, NewNetworkError(fmt.Sprintf("close peers: %v", err))
	}
	if len(peers) > CloseGroupSize {
		peers = peers[:CloseGroupSize]
	}

	replies := make(map[Hash]Record)
	for _, p := range peers {
		reqCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
		rec, err := c.transport.SendGet(reqCtx, p, key)
		cancel()
		if err != nil {
			continue
		}
		replies[rec.ContentHash()] = rec

		if cfg.Quorum.Kind == QuorumOne && !cfg.EscalateOnSplit {
			c.cache.Add(key, rec)
			return rec, nil
		}
	}

	if len(replies) == 0 {
		return Record{}, NewRecordNotFound(key)
	}
	if len(replies) == 1 {
		for _, rec := range replies {
			c.cache.Add(key, rec)
			return rec, nil
		}
	}

	if cfg.EscalateOnSplit {
		merged, err := MergeSplitRecords(replies)
		if err == nil {
			c.cache.Add(key, merged)
			return merged, nil
		}
		return Record{}, err
	}

	resultMap := make(map[string]Record, len(replies))
	for h, r := range replies {
		resultMap[h.String()] = r
	}
	return Record{}, NewSplitRecord(resultMap, nil)
}

// GetClosestPeers exposes the close-group lookup directly, e.g. for a CLI
// "peers" command.
func (c *Client) GetClosestPeers(ctx context.Context, addr NetworkAddress, includeSelf bool) ([]PeerID, error) {
	peers, err := c.transport.ClosePeers(ctx, addr)
	if err != nil {
		return nil, NewNetworkError(err.Error())
	}
	return peers, nil
}

// VerifyChunkExistence challenges the close group with a nonce and checks
// that enough holders answer with the expected proof hash.
func (c *Client) VerifyChunkExistence(ctx context.Context, addr NetworkAddress, nonce uint64, expected ChunkProof, q Quorum, reattempt bool) error {
	peers, err := c.transport.ClosePeers(ctx, addr)
	if err != nil {
		return NewNetworkError(err.Error())
	}
	if len(peers) > CloseGroupSize {
		peers = peers[:CloseGroupSize]
	}
	threshold := q.Threshold(len(peers))

	matched := 0
	for _, p := range peers {
		h, err := c.transport.SendChunkProofChallenge(ctx, p, addr, nonce)
		if err != nil {
			continue
		}
		if h == expected.Hash {
			matched++
		}
	}
	if matched < threshold {
		if reattempt {
			matched = 0
			for _, p := range peers {
				h, err := c.transport.SendChunkProofChallenge(ctx, p, addr, nonce)
				if err == nil && h == expected.Hash {
					matched++
				}
			}
		}
		if matched < threshold {
			return NewChunkDoesNotExist(addr)
		}
	}
	return nil
}

// SubscribeTopic, PublishTopic and UnsubscribeTopic delegate straight to
// the transport: gossip fan-out has no close-group/quorum semantics.
func (c *Client) SubscribeTopic(topic string) (<-chan GossipMessage, error) {
	return c.transport.Subscribe(topic)
}

func (c *Client) PublishTopic(topic string, msg []byte) error {
	return c.transport.Publish(topic, msg)
}

func (c *Client) UnsubscribeTopic(topic string) error {
	return c.transport.Unsubscribe(topic)
}
