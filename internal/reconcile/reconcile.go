// Package reconcile merges the three sources of truth about a
// session: optimistic local intents, pushed events (at-least-once,
// possibly duplicated or reordered) and periodic authoritative
// snapshots. The output is one consistent view plus effects for the
// imperative shell to execute. Applying anything here is idempotent,
// so replays are harmless.
package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"

	"zkbattleship/internal/game"
	"zkbattleship/internal/session"
	"zkbattleship/internal/verify"
)

// Effect is work the reconciler wants done outside the pure core.
type Effect interface{ isEffect() }

// RespondToShot asks the shell to compute the hit/miss claim for an
// opponent shot against the local board, prove it and submit the
// verified result.
type RespondToShot struct {
	At game.Coord
}

// ProveGameEnd asks the shell to build, prove and submit the game-end
// claim: the local fleet is fully sunk.
type ProveGameEnd struct{}

func (RespondToShot) isEffect() {}
func (ProveGameEnd) isEffect()  {}

// Reconciler owns the local replica of one session: the state
// machine, the two shot maps and, once placed, the local board used
// for ground truth on incoming shots.
type Reconciler struct {
	machine *session.Machine

	// outgoing tracks what the local player learned about the
	// opponent's board; incoming tracks shots against the local board.
	outgoing *game.ShotMap
	incoming *game.ShotMap

	board     *game.Board
	responded map[game.Coord]bool

	log zerolog.Logger
}

func New(localPlayer string, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		machine:   session.NewMachine(localPlayer),
		outgoing:  game.NewShotMap(),
		incoming:  game.NewShotMap(),
		responded: make(map[game.Coord]bool),
		log:       log.With().Str("component", "reconcile").Logger(),
	}
}

func (r *Reconciler) Machine() *session.Machine { return r.machine }
func (r *Reconciler) Outgoing() *game.ShotMap   { return r.outgoing }
func (r *Reconciler) Incoming() *game.ShotMap   { return r.incoming }

// SetBoard hands over the placed local board so incoming shots can be
// judged against ground truth.
func (r *Reconciler) SetBoard(b *game.Board) { r.board = b }

// ProposeShot records the optimistic intent to fire at c. It revokes
// the local turn pending confirmation; nothing else changes until a
// confirmed event or snapshot arrives.
func (r *Reconciler) ProposeShot(c game.Coord) error {
	if !r.machine.CanAct() {
		return fmt.Errorf("cannot fire: phase=%s turn=%s", r.machine.Phase(), r.machine.TurnHolder())
	}
	if !c.InBounds() {
		return &verify.OutOfBoundsError{At: c}
	}
	if r.outgoing.Known(c) {
		return fmt.Errorf("cell (%d,%d) already targeted", c.X, c.Y)
	}
	r.machine.ProposeShot(c)
	return nil
}

// ShotFailed rolls back the optimistic intent after a failed
// submission so a retry is safe.
func (r *Reconciler) ShotFailed() { r.machine.ClearPendingShot() }

// RespondFailed rolls back the response marker for c after a failed
// response, so a redelivered shot_fired triggers a fresh attempt.
func (r *Reconciler) RespondFailed(c game.Coord) { delete(r.responded, c) }

// ApplySnapshot resyncs from an authoritative snapshot. Snapshots
// overwrite derived phase/turn; shot maps only ever grow through
// events.
func (r *Reconciler) ApplySnapshot(s session.Snapshot) {
	r.machine.ApplySnapshot(s)
}

// ApplyEvent folds one pushed event into the replica and returns the
// effects it triggers. Stale duplicates and events for unknown
// sessions are dropped, not escalated.
func (r *Reconciler) ApplyEvent(in session.Inbound) []Effect {
	if sid := r.machine.SessionID(); sid != "" && in.SessionID != "" && in.SessionID != sid {
		r.log.Debug().Str("session", in.SessionID).Msg("dropping event for unknown session")
		return nil
	}

	switch e := in.Event.(type) {
	case session.ShotFired:
		return r.applyShotFired(e)
	case session.ShotResult:
		return r.applyShotResult(e)
	default:
		r.machine.Apply(in.Event)
		return nil
	}
}

func (r *Reconciler) applyShotFired(e session.ShotFired) []Effect {
	if e.By == r.machine.LocalPlayer() {
		// Echo of our own shot; the result event is what matters.
		return nil
	}
	if r.board == nil || r.machine.Phase() != session.PhasePlaying {
		// An out-of-order shot before play is a protocol error on the
		// sender's side; dropping it leaves a redelivery answerable.
		r.log.Warn().Int("x", e.At.X).Int("y", e.At.Y).Str("phase", string(r.machine.Phase())).Msg("dropping shot_fired outside play")
		return nil
	}
	if r.incoming.Known(e.At) || r.responded[e.At] {
		r.log.Debug().Int("x", e.At.X).Int("y", e.At.Y).Msg("dropping duplicate shot_fired")
		return nil
	}
	r.responded[e.At] = true
	return []Effect{RespondToShot{At: e.At}}
}

func (r *Reconciler) applyShotResult(e session.ShotResult) []Effect {
	if e.By == r.machine.LocalPlayer() {
		// Result of our own shot: learn about the opponent board.
		if !r.outgoing.Record(e.At, e.Hit) {
			r.log.Debug().Int("x", e.At.X).Int("y", e.At.Y).Msg("dropping duplicate shot_result")
			return nil
		}
		r.machine.Apply(e)
		return nil
	}

	// Opponent's verified shot against the local board.
	if !r.incoming.Record(e.At, e.Hit) {
		return nil
	}
	if r.board != nil && e.Hit {
		if sunk, err := verify.AllSunk(r.board, r.incoming); err == nil && sunk {
			// Fleet gone: go down the game-end path instead of
			// taking the turn back.
			return []Effect{ProveGameEnd{}}
		}
	}
	r.machine.Apply(e)
	return nil
}
