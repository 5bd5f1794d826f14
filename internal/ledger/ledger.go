// Package ledger is the narrow contract to the on-chain collaborator.
// The chain stores commitments and enforces payment and turn rules;
// this client only submits and waits for confirmation. Its events,
// surfaced through the relay, are the authoritative turn/phase source.
package ledger

import (
	"context"

	"zkbattleship/internal/game"
)

// TxRef identifies a confirmed ledger transaction.
type TxRef string

// Ledger is the operation set the contract exposes. Every call blocks
// until the transaction is confirmed or fails; a failed call leaves
// no partial state behind, so retrying is safe.
type Ledger interface {
	// PublishCommitment stores a board commitment before any shots
	// are allowed.
	PublishCommitment(ctx context.Context, sessionID, player, commitmentHex string, proof []byte) (TxRef, error)

	// FireShot registers a shot at the opponent's board.
	FireShot(ctx context.Context, sessionID, player string, at game.Coord) (TxRef, error)

	// SubmitShotResult answers a shot with its verified outcome.
	SubmitShotResult(ctx context.Context, sessionID, player string, at game.Coord, hit bool, proof []byte) (TxRef, error)

	// VerifyGameEnd settles the game with a full-fleet-sunk proof.
	VerifyGameEnd(ctx context.Context, sessionID, player, historyDigestHex string, proof []byte) (TxRef, error)

	// Forfeit concedes the session.
	Forfeit(ctx context.Context, sessionID, player string) (TxRef, error)
}
