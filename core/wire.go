package core

// Wire helpers for swarm.go's direct-stream RPCs: each message is a
// 4-byte big-endian length prefix followed by its payload (an RLP-encoded
// record or challenge, or the raw 32 bytes of an address),
// the simplest framing that works uniformly over a libp2p stream for
// put/get/challenge without pulling in a separate request/response
// multiplexing library.

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

const maxWireMessage = 64 << 20 // 64 MiB, generous over base spec's chunk size ceiling

func writeFramed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxWireMessage {
		return nil, fmt.Errorf("wire: message too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return buf, nil
}

func writeRecord(w io.Writer, rec Record) error {
	b, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	return writeFramed(w, b)
}

func readRecord(r io.Reader) (Record, error) {
	b, err := readFramed(r)
	if err != nil {
		return Record{}, err
	}
	return DecodeRecord(b)
}

func writeAddress(w io.Writer, addr NetworkAddress) error {
	return writeFramed(w, addr[:])
}

func readAddress(r io.Reader) (NetworkAddress, error) {
	b, err := readFramed(r)
	if err != nil {
		return NetworkAddress{}, err
	}
	var addr NetworkAddress
	if len(b) != len(addr) {
		return addr, fmt.Errorf("wire: bad address length %d", len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

type challengeWire struct {
	Address NetworkAddress
	Nonce   uint64
}

func writeChallenge(w io.Writer, addr NetworkAddress, nonce uint64) error {
	b, err := rlp.EncodeToBytes(challengeWire{Address: addr, Nonce: nonce})
	if err != nil {
		return fmt.Errorf("wire: encode challenge: %w", err)
	}
	return writeFramed(w, b)
}

func readChallenge(r io.Reader) (NetworkAddress, uint64, error) {
	b, err := readFramed(r)
	if err != nil {
		return NetworkAddress{}, 0, err
	}
	var cw challengeWire
	if err := rlp.DecodeBytes(b, &cw); err != nil {
		return NetworkAddress{}, 0, fmt.Errorf("wire: decode challenge: %w", err)
	}
	return cw.Address, cw.Nonce, nil
}
