package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// fakeTransport is an in-memory Transport double: every "peer" is just a
// map key, and ClosePeers returns whichever of them are registered. This
// exercises Client's quorum/retry/verification logic without any real
// networking, the same role an in-process dialer double plays in
// connection-pool tests.
type fakeTransport struct {
	mu      sync.Mutex
	peers   []PeerID
	records map[PeerID]map[NetworkAddress]Record
	fail    map[PeerID]bool
}

func newFakeTransport(peerCount int) *fakeTransport {
	ft := &fakeTransport{records: make(map[PeerID]map[NetworkAddress]Record), fail: make(map[PeerID]bool)}
	for i := 0; i < peerCount; i++ {
		p := PeerID(fmt.Sprintf("peer-%d", i))
		ft.peers = append(ft.peers, p)
		ft.records[p] = make(map[NetworkAddress]Record)
	}
	return ft
}

func (ft *fakeTransport) ClosePeers(ctx context.Context, target NetworkAddress) ([]PeerID, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]PeerID(nil), ft.peers...), nil
}

func (ft *fakeTransport) SendPut(ctx context.Context, peer PeerID, rec Record) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.fail[peer] {
		return NewNetworkError("simulated failure")
	}
	ft.records[peer][rec.Address] = rec
	return nil
}

func (ft *fakeTransport) SendGet(ctx context.Context, peer PeerID, addr NetworkAddress) (Record, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	rec, ok := ft.records[peer][addr]
	if !ok {
		return Record{}, NewRecordNotFound(addr)
	}
	return rec, nil
}

func (ft *fakeTransport) SendChunkProofChallenge(ctx context.Context, peer PeerID, addr NetworkAddress, nonce uint64) (Hash, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	rec, ok := ft.records[peer][addr]
	if !ok {
		return Hash{}, NewChunkDoesNotExist(addr)
	}
	content, err := rec.AsChunk()
	if err != nil {
		return Hash{}, err
	}
	return ComputeChunkProof(content, nonce).Hash, nil
}

func (ft *fakeTransport) Subscribe(topic string) (<-chan GossipMessage, error) {
	ch := make(chan GossipMessage)
	close(ch)
	return ch, nil
}

func (ft *fakeTransport) Publish(topic string, msg []byte) error { return nil }
func (ft *fakeTransport) Unsubscribe(topic string) error         { return nil }

func TestClientPutGetRoundTrip(t *testing.T) {
	ft := newFakeTransport(CloseGroupSize)
	client, err := NewClient(ft, 0, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	content := []byte("round trip chunk")
	rec, err := NewChunkRecord(content)
	if err != nil {
		t.Fatalf("new chunk record: %v", err)
	}

	ctx := context.Background()
	if err := client.PutRecord(ctx, rec, DefaultPutConfig()); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := client.GetRecord(ctx, rec.Address, GetConfig{Quorum: Quorum{Kind: QuorumOne}, ConnTimeout: DefaultConnectionTimeout})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	gotContent, err := got.AsChunk()
	if err != nil {
		t.Fatalf("as chunk: %v", err)
	}
	if string(gotContent) != string(content) {
		t.Fatalf("round-tripped content mismatch")
	}
}

func TestClientPutFailsBelowQuorum(t *testing.T) {
	ft := newFakeTransport(CloseGroupSize)
	for _, p := range ft.peers {
		ft.fail[p] = true
	}
	client, err := NewClient(ft, 0, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	rec, _ := NewChunkRecord([]byte("doomed"))
	cfg := DefaultPutConfig()
	cfg.Retries = 0
	if err := client.PutRecord(context.Background(), rec, cfg); err == nil {
		t.Fatalf("expected put to fail when every peer rejects it")
	}
}

func TestClientGetMissingRecord(t *testing.T) {
	ft := newFakeTransport(CloseGroupSize)
	client, err := NewClient(ft, 0, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GetRecord(context.Background(), ChunkAddress([]byte("nope")), DefaultGetConfig())
	if err == nil {
		t.Fatalf("expected record-not-found error")
	}
	if kind, ok := Classify(err); !ok || kind != KindRecordNotFound {
		t.Fatalf("expected KindRecordNotFound, got %v ok=%v", kind, ok)
	}
}
