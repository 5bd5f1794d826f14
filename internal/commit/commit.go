// Package commit derives the binding, hiding digest that stands in
// for a secret board. The absorb order here is the wire format the
// in-circuit verifier reproduces: the 100 cells row-major, then the
// salt. Any change to the ordering or encoding breaks every proof.
package commit

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"zkbattleship/internal/game"
)

// SaltSize is the fixed salt width in bytes (one BN254 field element).
const SaltSize = fr.Bytes

// DigestSize is the fixed digest width in bytes.
const DigestSize = fr.Bytes

// Salt is the per-board secret. Generated once at commitment time and
// retained for the lifetime of the game; every later claim needs it.
type Salt [SaltSize]byte

// NewSalt draws a uniformly random field element so the bytes
// round-trip through the circuit without reduction.
func NewSalt() (Salt, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return Salt{}, fmt.Errorf("sample salt: %w", err)
	}
	return Salt(e.Bytes()), nil
}

func (s Salt) Hex() string { return hex.EncodeToString(s[:]) }

// SaltFromHex parses a fixed-width hex salt.
func SaltFromHex(h string) (Salt, error) {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return Salt{}, fmt.Errorf("parse salt: %w", err)
	}
	if len(raw) != SaltSize {
		return Salt{}, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(raw))
	}
	var s Salt
	copy(s[:], raw)
	return s, nil
}

// Digest is the fixed-length commitment value.
type Digest [DigestSize]byte

// Hex renders the digest zero-padded to its fixed width.
func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

func DigestFromHex(h string) (Digest, error) {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return Digest{}, fmt.Errorf("parse digest: %w", err)
	}
	if len(raw) != DigestSize {
		return Digest{}, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(raw))
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// feBytes encodes a small symbol as a 32-byte big-endian field
// element, the chunk width MiMC consumes.
func feBytes(v uint8) []byte {
	out := make([]byte, fr.Bytes)
	out[fr.Bytes-1] = v
	return out
}

// Board hashes (cells row-major, salt) with MiMC over BN254.
// Deterministic: same board and salt always yield the same digest.
func Board(b *game.Board, salt Salt) (Digest, error) {
	if b == nil {
		return Digest{}, errors.New("nil board")
	}
	h := bnmimc.NewMiMC()
	for _, cell := range b.Flatten() {
		if _, err := h.Write(feBytes(cell)); err != nil {
			return Digest{}, fmt.Errorf("absorb cell: %w", err)
		}
	}
	if _, err := h.Write(salt[:]); err != nil {
		return Digest{}, fmt.Errorf("absorb salt: %w", err)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// History hashes a shot-history bitmap with the same cell ordering as
// Board. No salt: the bitmap is public at game end.
func History(bitmap []uint8) (Digest, error) {
	if len(bitmap) != game.Size*game.Size {
		return Digest{}, fmt.Errorf("bitmap must have %d cells, got %d", game.Size*game.Size, len(bitmap))
	}
	h := bnmimc.NewMiMC()
	for _, bit := range bitmap {
		if _, err := h.Write(feBytes(bit)); err != nil {
			return Digest{}, fmt.Errorf("absorb bit: %w", err)
		}
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}
