package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Envelope layout: 4-byte magic, 32-byte blake2b-256 of the payload, then
// the JSON payload. The checksum is verified before any decoding and the
// schema version before the full decode, so a truncated or cross-version
// snapshot fails fast with a typed error.
var magic = []byte("IVSN")

// Encode serializes a WorldState into a checksummed envelope.
func Encode(snap *WorldState) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	sum := blake2b.Sum256(payload)

	out := make([]byte, 0, len(magic)+len(sum)+len(payload))
	out = append(out, magic...)
	out = append(out, sum[:]...)
	out = append(out, payload...)
	return out, nil
}

// Decode verifies and deserializes a snapshot envelope.
func Decode(data []byte) (*WorldState, error) {
	if len(data) < len(magic)+blake2b.Size256 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: bad envelope", ErrChecksumMismatch)
	}
	sum := data[len(magic) : len(magic)+blake2b.Size256]
	payload := data[len(magic)+blake2b.Size256:]

	want := blake2b.Sum256(payload)
	if !bytes.Equal(sum, want[:]) {
		return nil, ErrChecksumMismatch
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("decode snapshot header: %w", err)
	}
	if probe.Version != Version {
		return nil, fmt.Errorf("%w: snapshot v%d, runtime v%d", ErrVersionMismatch, probe.Version, Version)
	}

	var snap WorldState
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
