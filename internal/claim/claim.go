// Package claim assembles circuit-ready inputs. A claim is checked
// against ground truth before anything is built: a mismatched claim
// never reaches the proving step, so a false statement is never
// proven. Builders are pure; invoking the prover is a separate step.
package claim

import (
	"fmt"

	"zkbattleship/internal/commit"
	"zkbattleship/internal/game"
	"zkbattleship/internal/verify"
)

// Circuit identifiers understood by the proving service.
const (
	CircuitShot    = "shot"
	CircuitGameEnd = "game_end"
)

// ClaimMismatchError means the claimed result disagrees with ground
// truth. Fatal to the claim; never corrected silently.
type ClaimMismatchError struct {
	At      game.Coord
	Claimed bool
	Actual  bool
}

func (e *ClaimMismatchError) Error() string {
	return fmt.Sprintf("claimed hit=%v at (%d,%d) but board says hit=%v", e.Claimed, e.At.X, e.At.Y, e.Actual)
}

// IncompleteSinkError means a game-end claim was attempted before the
// full fleet was sunk.
type IncompleteSinkError struct {
	Hits int
}

func (e *IncompleteSinkError) Error() string {
	return fmt.Sprintf("fleet not sunk: %d of %d ship cells hit", e.Hits, game.ShipCells)
}

// CircuitInput is the canonical input object handed to the proving
// service. Cells and History use the row-major wire ordering; the
// commitment is recomputed here, never trusted from the caller.
type CircuitInput struct {
	Circuit string `json:"circuit"`

	Cells []uint8     `json:"cells"`
	Salt  commit.Salt `json:"-"`

	// Shot claims only.
	Shot       game.Coord `json:"shot,omitempty"`
	ClaimedHit uint8      `json:"claimed_hit"`

	// Game-end claims only.
	History       []uint8       `json:"history,omitempty"`
	HistoryDigest commit.Digest `json:"history_digest,omitempty"`

	Commitment commit.Digest `json:"commitment"`
}

// BuildShotClaim verifies the claimed result against the board and
// emits the shot-circuit input on success.
func BuildShotClaim(b *game.Board, c game.Coord, claimedHit bool, salt commit.Salt) (*CircuitInput, error) {
	actual, err := verify.IsHit(b, c)
	if err != nil {
		return nil, err
	}
	if actual != claimedHit {
		return nil, &ClaimMismatchError{At: c, Claimed: claimedHit, Actual: actual}
	}
	root, err := commit.Board(b, salt)
	if err != nil {
		return nil, err
	}
	in := &CircuitInput{
		Circuit:    CircuitShot,
		Cells:      b.Flatten(),
		Salt:       salt,
		Shot:       c,
		Commitment: root,
	}
	if claimedHit {
		in.ClaimedHit = 1
	}
	return in, nil
}

// BuildGameEndClaim verifies that the fleet is fully sunk and emits
// the game-end circuit input: cells, the full shot-history bitmap and
// its digest, salt and commitment.
func BuildGameEndClaim(b *game.Board, m *game.ShotMap, salt commit.Salt) (*CircuitInput, error) {
	sunk, err := verify.AllSunk(b, m)
	if err != nil {
		return nil, err
	}
	if !sunk {
		return nil, &IncompleteSinkError{Hits: m.HitCount()}
	}
	root, err := commit.Board(b, salt)
	if err != nil {
		return nil, err
	}
	bitmap := m.Bitmap()
	digest, err := commit.History(bitmap)
	if err != nil {
		return nil, err
	}
	return &CircuitInput{
		Circuit:       CircuitGameEnd,
		Cells:         b.Flatten(),
		Salt:          salt,
		History:       bitmap,
		HistoryDigest: digest,
		Commitment:    root,
	}, nil
}
