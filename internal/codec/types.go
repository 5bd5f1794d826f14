// Package codec holds the JSON shapes that cross process boundaries:
// the defender's secret material kept on disk between CLI steps, and
// the proof payloads exchanged with the opponent.
package codec

import (
	"zkbattleship/internal/game"
)

// Secret is everything the board owner must retain for the lifetime
// of the game: the board itself and the salt behind its commitment.
// Never transmitted before game end, if at all.
type Secret struct {
	Board      game.Board `json:"board"`
	SaltHex    string     `json:"salt_hex"`
	Commitment string     `json:"commitment"`
}

// ShotProofPayload carries one verified shot outcome: the proof plus
// the public inputs a verifier binds it to.
type ShotProofPayload struct {
	Proof      []byte `json:"proof"`
	Commitment string `json:"commitment"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Hit        bool   `json:"hit"`
}

// GameEndProofPayload carries the full-fleet-sunk proof with its
// public inputs: the fired-upon bitmap and its digest.
type GameEndProofPayload struct {
	Proof         []byte  `json:"proof"`
	Commitment    string  `json:"commitment"`
	History       []uint8 `json:"history"`
	HistoryDigest string  `json:"history_digest"`
}
