package session

import (
	"time"

	"zkbattleship/internal/game"
)

// Event is the closed set of things the relay or the ledger can tell
// us about a session. One variant per event kind; the reconciler
// matches exhaustively, so a new kind is a compile-time-visible
// change.
type Event interface{ isEvent() }

// PlayerJoined reports a player entering the session.
type PlayerJoined struct {
	Player string
}

// BoardSubmitted confirms a player's board commitment reached the
// ledger. AllSubmitted flips once both commitments are in.
type BoardSubmitted struct {
	Player       string
	AllSubmitted bool
}

// GameStarted confirms both boards are in and names the first turn
// holder.
type GameStarted struct {
	Turn string
}

// ShotFired is a confirmed shot against the actor's opponent. The
// defender answers it with a verified shot result.
type ShotFired struct {
	By string
	At game.Coord
}

// ShotResult is the verified outcome of an earlier shot.
type ShotResult struct {
	By  string
	At  game.Coord
	Hit bool
}

// GameOver ends the session and names the winner.
type GameOver struct {
	Winner string
}

// Chat is a free-form message between players.
type Chat struct {
	From string
	Text string
}

// Pong answers a liveness ping.
type Pong struct {
	At time.Time
}

// ErrorEvent is a relay-reported failure.
type ErrorEvent struct {
	Code    string
	Message string
}

func (PlayerJoined) isEvent()   {}
func (BoardSubmitted) isEvent() {}
func (GameStarted) isEvent()    {}
func (ShotFired) isEvent()      {}
func (ShotResult) isEvent()     {}
func (GameOver) isEvent()       {}
func (Chat) isEvent()           {}
func (Pong) isEvent()           {}
func (ErrorEvent) isEvent()     {}

// Inbound pairs an event with the session it refers to, as decoded
// off the relay channel.
type Inbound struct {
	SessionID string
	Event     Event
}

// Relay-side phase names carried by snapshots.
const (
	RelayWaiting  = "waiting"
	RelaySetup    = "setup"
	RelayActive   = "active"
	RelayFinished = "finished"
)

// Snapshot is the relay's authoritative full view of a session, the
// resync mechanism after any gap.
type Snapshot struct {
	SessionID      string    `json:"session_id"`
	Phase          string    `json:"phase"`
	Players        []string  `json:"players"`
	Turn           string    `json:"turn"`
	OnChainRef     string    `json:"onchain_ref"`
	TurnStartedAt  time.Time `json:"turn_started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Winner         string    `json:"winner,omitempty"`
}
