package reconcile

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkbattleship/internal/game"
	"zkbattleship/internal/session"
)

const (
	me   = "alice"
	them = "bob"
)

func testBoard(t *testing.T) *game.Board {
	t.Helper()
	b, err := game.NewBoard([]game.Ship{
		{X: 0, Y: 0, Len: 5},
		{X: 0, Y: 2, Len: 4},
		{X: 0, Y: 4, Len: 3},
		{X: 0, Y: 6, Len: 3},
		{X: 0, Y: 8, Len: 2},
	})
	require.NoError(t, err)
	return b
}

func playing(t *testing.T, turn string) *Reconciler {
	t.Helper()
	r := New(me, zerolog.Nop())
	r.SetBoard(testBoard(t))
	r.ApplySnapshot(session.Snapshot{
		SessionID: "s1",
		Phase:     session.RelayActive,
		Players:   []string{me, them},
		Turn:      turn,
	})
	return r
}

func TestOpponentShotTriggersResponse(t *testing.T) {
	r := playing(t, them)
	at := game.Coord{X: 4, Y: 4}

	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	require.Len(t, effs, 1)
	assert.Equal(t, RespondToShot{At: at}, effs[0])

	// Redelivery must not trigger a second response.
	effs = r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	assert.Empty(t, effs)
}

func TestRespondFailedAllowsRedelivery(t *testing.T) {
	r := playing(t, them)
	at := game.Coord{X: 4, Y: 4}

	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	require.Len(t, effs, 1)

	// The response could not be submitted; rolling it back makes the
	// redelivered event answerable again.
	r.RespondFailed(at)
	effs = r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	require.Len(t, effs, 1)
	assert.Equal(t, RespondToShot{At: at}, effs[0])
}

func TestShotFiredBeforePlayDropped(t *testing.T) {
	r := New(me, zerolog.Nop())
	r.ApplySnapshot(session.Snapshot{SessionID: "s1", Phase: session.RelaySetup, Players: []string{me, them}})
	at := game.Coord{X: 2, Y: 2}

	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	assert.Empty(t, effs, "no response before the board is placed and play begins")

	// Once play begins, the redelivered shot is answered normally.
	r.SetBoard(testBoard(t))
	r.ApplySnapshot(session.Snapshot{SessionID: "s1", Phase: session.RelayActive, Players: []string{me, them}, Turn: them})
	effs = r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: them, At: at}})
	require.Len(t, effs, 1)
	assert.Equal(t, RespondToShot{At: at}, effs[0])
}

func TestOwnShotEchoIgnored(t *testing.T) {
	r := playing(t, me)
	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotFired{By: me, At: game.Coord{X: 1, Y: 1}}})
	assert.Empty(t, effs)
}

func TestStaleShotResultKeepsClassification(t *testing.T) {
	r := playing(t, me)
	at := game.Coord{X: 7, Y: 7}

	r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: me, At: at, Hit: true}})
	require.True(t, r.Outgoing().IsHit(at))
	require.Equal(t, session.TurnOpponent, r.Machine().TurnHolder())

	// Newer snapshot hands the turn back, then a stale duplicate
	// arrives claiming the opposite outcome.
	r.ApplySnapshot(session.Snapshot{SessionID: "s1", Phase: session.RelayActive, Players: []string{me, them}, Turn: me})
	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: me, At: at, Hit: false}})

	assert.Empty(t, effs)
	assert.True(t, r.Outgoing().IsHit(at), "classification must not change")
	assert.Equal(t, 1, r.Outgoing().HitCount(), "no double count")
	assert.Equal(t, session.TurnLocal, r.Machine().TurnHolder(), "stale event must not flip turn")
}

func TestIncomingResultReturnsTurn(t *testing.T) {
	r := playing(t, them)
	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: them, At: game.Coord{X: 9, Y: 9}, Hit: false}})
	assert.Empty(t, effs)
	assert.Equal(t, session.TurnLocal, r.Machine().TurnHolder())
	assert.True(t, r.Incoming().Known(game.Coord{X: 9, Y: 9}))
}

func TestFinalHitTriggersGameEndNotTurn(t *testing.T) {
	r := playing(t, them)
	b := testBoard(t)

	var cells []game.Coord
	for _, s := range b.Ships {
		cells = append(cells, s.Footprint()...)
	}
	require.Len(t, cells, game.ShipCells)

	for _, c := range cells[:len(cells)-1] {
		effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: them, At: c, Hit: true}})
		assert.Empty(t, effs)
	}

	// Resync: the opponent still holds the turn before their final
	// shot resolves.
	r.ApplySnapshot(session.Snapshot{SessionID: "s1", Phase: session.RelayActive, Players: []string{me, them}, Turn: them})

	last := cells[len(cells)-1]
	effs := r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: them, At: last, Hit: true}})
	require.Len(t, effs, 1)
	assert.Equal(t, ProveGameEnd{}, effs[0])
	// The sinking shot goes down the game-end path; turn possession
	// is not returned.
	assert.Equal(t, session.TurnOpponent, r.Machine().TurnHolder())
}

func TestUnknownSessionDropped(t *testing.T) {
	r := playing(t, them)
	effs := r.ApplyEvent(session.Inbound{SessionID: "other", Event: session.ShotFired{By: them, At: game.Coord{X: 0, Y: 0}}})
	assert.Empty(t, effs)
}

func TestProposeShotRules(t *testing.T) {
	r := playing(t, me)

	require.NoError(t, r.ProposeShot(game.Coord{X: 3, Y: 3}))
	assert.Error(t, r.ProposeShot(game.Coord{X: 4, Y: 4}), "second shot while one is pending")

	// Failed submission rolls the intent back; retry is safe.
	r.ShotFailed()
	require.NoError(t, r.ProposeShot(game.Coord{X: 3, Y: 3}))

	r.ShotFailed()
	r.ApplyEvent(session.Inbound{SessionID: "s1", Event: session.ShotResult{By: me, At: game.Coord{X: 3, Y: 3}, Hit: false}})
	r.ApplySnapshot(session.Snapshot{SessionID: "s1", Phase: session.RelayActive, Players: []string{me, them}, Turn: me})
	assert.Error(t, r.ProposeShot(game.Coord{X: 3, Y: 3}), "already targeted")

	assert.Error(t, r.ProposeShot(game.Coord{X: 99, Y: 0}))
}

func TestProposeShotNeedsTurn(t *testing.T) {
	r := playing(t, them)
	assert.Error(t, r.ProposeShot(game.Coord{X: 0, Y: 0}))
}
