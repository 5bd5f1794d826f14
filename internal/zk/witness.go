package zk

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"zkbattleship/internal/claim"
	"zkbattleship/internal/commit"
)

// Assignment turns a claim-builder input into the full witness for
// its circuit.
func Assignment(in *claim.CircuitInput) (frontend.Circuit, error) {
	switch in.Circuit {
	case claim.CircuitShot:
		if len(in.Cells) != NumCells {
			return nil, fmt.Errorf("want %d cells, got %d", NumCells, len(in.Cells))
		}
		var a ShotCircuit
		for i, v := range in.Cells {
			a.Cells[i] = v
		}
		a.Salt = new(big.Int).SetBytes(in.Salt[:])
		a.Commitment = new(big.Int).SetBytes(in.Commitment[:])
		a.Index = in.Shot.Index()
		a.Hit = in.ClaimedHit
		return &a, nil
	case claim.CircuitGameEnd:
		if len(in.Cells) != NumCells || len(in.History) != NumCells {
			return nil, fmt.Errorf("want %d cells and history bits", NumCells)
		}
		var a GameEndCircuit
		for i, v := range in.Cells {
			a.Cells[i] = v
		}
		for i, v := range in.History {
			a.History[i] = v
		}
		a.Salt = new(big.Int).SetBytes(in.Salt[:])
		a.Commitment = new(big.Int).SetBytes(in.Commitment[:])
		a.HistoryDigest = new(big.Int).SetBytes(in.HistoryDigest[:])
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown circuit %q", in.Circuit)
	}
}

// ShotPublic builds the public-only assignment a verifier checks a
// shot proof against.
func ShotPublic(commitment commit.Digest, index int, hit bool) frontend.Circuit {
	var a ShotCircuit
	a.Commitment = new(big.Int).SetBytes(commitment[:])
	a.Index = index
	if hit {
		a.Hit = 1
	} else {
		a.Hit = 0
	}
	return &a
}

// GameEndPublic builds the public-only assignment for a game-end
// proof: the commitment, the fired-upon bitmap and its digest.
func GameEndPublic(commitment commit.Digest, history []uint8, digest commit.Digest) (frontend.Circuit, error) {
	if len(history) != NumCells {
		return nil, fmt.Errorf("want %d history bits, got %d", NumCells, len(history))
	}
	var a GameEndCircuit
	a.Commitment = new(big.Int).SetBytes(commitment[:])
	for i, v := range history {
		a.History[i] = v
	}
	a.HistoryDigest = new(big.Int).SetBytes(digest[:])
	return &a, nil
}
