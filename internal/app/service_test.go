package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkbattleship/internal/claim"
	"zkbattleship/internal/game"
	"zkbattleship/internal/ledger"
	"zkbattleship/internal/session"
)

const (
	me   = "alice"
	them = "bob"
)

type fakeProver struct {
	circuits []string
}

func (f *fakeProver) Prove(ctx context.Context, in *claim.CircuitInput) ([]byte, error) {
	f.circuits = append(f.circuits, in.Circuit)
	return []byte("proof"), nil
}

type downLedger struct{}

func (downLedger) PublishCommitment(context.Context, string, string, string, []byte) (ledger.TxRef, error) {
	return "", errors.New("rpc unavailable")
}
func (downLedger) FireShot(context.Context, string, string, game.Coord) (ledger.TxRef, error) {
	return "", errors.New("rpc unavailable")
}
func (downLedger) SubmitShotResult(context.Context, string, string, game.Coord, bool, []byte) (ledger.TxRef, error) {
	return "", errors.New("rpc unavailable")
}
func (downLedger) VerifyGameEnd(context.Context, string, string, string, []byte) (ledger.TxRef, error) {
	return "", errors.New("rpc unavailable")
}
func (downLedger) Forfeit(context.Context, string, string) (ledger.TxRef, error) {
	return "", errors.New("rpc unavailable")
}

type fakeChannel struct {
	events    chan session.Inbound
	snapshots chan session.Snapshot
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		events:    make(chan session.Inbound, 32),
		snapshots: make(chan session.Snapshot, 4),
	}
}

func (c *fakeChannel) Events() <-chan session.Inbound     { return c.events }
func (c *fakeChannel) Snapshots() <-chan session.Snapshot { return c.snapshots }
func (c *fakeChannel) SubmitBoard(string, []byte) error   { return nil }

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

func newService(t *testing.T, lg ledger.Ledger) (*Service, *fakeProver) {
	t.Helper()
	p := &fakeProver{}
	svc := New(me, p, lg, zerolog.Nop())
	svc.retryAttempts = 2
	svc.retryBase = time.Millisecond
	return svc, p
}

func TestCommitBoardRejectsInvalid(t *testing.T) {
	svc, _ := newService(t, ledger.NewMemory())
	bad, err := game.NewBoard([]game.Ship{{X: 0, Y: 0, Len: 5}})
	require.NoError(t, err)

	_, err = svc.CommitBoard(context.Background(), "s1", bad)
	var cerr *game.CompositionError
	require.ErrorAs(t, err, &cerr)
	_, err = svc.Secret()
	assert.Error(t, err, "nothing retained on failure")
}

func TestCommitBoardPublishesAndRetains(t *testing.T) {
	svc, _ := newService(t, ledger.NewMemory())
	root, err := svc.CommitBoard(context.Background(), "s1", testBoard(t))
	require.NoError(t, err)

	sec, err := svc.Secret()
	require.NoError(t, err)
	assert.Equal(t, root.Hex(), sec.Commitment)
	assert.Equal(t, session.PhaseWaitingForOpponentBoard, svc.Rec.Machine().Phase())

	// The retained secret round-trips through Restore.
	svc2, _ := newService(t, ledger.NewMemory())
	require.NoError(t, svc2.Restore(sec))
	sec2, err := svc2.Secret()
	require.NoError(t, err)
	assert.Equal(t, sec.Commitment, sec2.Commitment)
}

func TestCommitBoardKeepsSecretOnLedgerFailure(t *testing.T) {
	svc, _ := newService(t, downLedger{})
	_, err := svc.CommitBoard(context.Background(), "s1", testBoard(t))
	require.Error(t, err)
	_, err = svc.Secret()
	assert.Error(t, err, "no partial secret on failed publish")
}

func TestFireShotRollsBackOnFailure(t *testing.T) {
	svc, _ := newService(t, downLedger{})
	svc.Rec.ApplySnapshot(session.Snapshot{
		SessionID: "s1", Phase: session.RelayActive, Players: []string{me, them}, Turn: me,
	})
	require.True(t, svc.Rec.Machine().CanAct())

	err := svc.FireShot(context.Background(), game.Coord{X: 2, Y: 2})
	require.Error(t, err)
	assert.True(t, svc.Rec.Machine().CanAct(), "optimistic intent rolled back, retry is safe")
}

func TestRunRespondsToShotsAndFinishes(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	svc, p := newService(t, mem)

	_, err := svc.CommitBoard(ctx, "", testBoard(t))
	require.NoError(t, err)
	_, err = mem.PublishCommitment(ctx, "", them, "bb", nil)
	require.NoError(t, err)

	at := game.Coord{X: 0, Y: 0} // ship cell: the answer is a verified hit
	_, err = mem.FireShot(ctx, "", them, at)
	require.NoError(t, err)

	ch := newFakeChannel()
	ch.events <- session.Inbound{Event: session.GameStarted{Turn: them}}
	ch.events <- session.Inbound{Event: session.ShotFired{By: them, At: at}}
	ch.events <- session.Inbound{Event: session.GameOver{Winner: them}}

	require.NoError(t, svc.Run(ctx, ch))

	assert.Equal(t, []string{claim.CircuitShot}, p.circuits)
	assert.Equal(t, session.PhaseGameOver, svc.Rec.Machine().Phase())
	assert.Equal(t, them, svc.Rec.Machine().Winner())
}

func TestRunProvesGameEndOnFinalHit(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	svc, p := newService(t, mem)

	b := testBoard(t)
	_, err := svc.CommitBoard(ctx, "", b)
	require.NoError(t, err)
	_, err = mem.PublishCommitment(ctx, "", them, "bb", nil)
	require.NoError(t, err)

	// No game_over event: the verified sink itself must settle the
	// session.
	ch := newFakeChannel()
	ch.events <- session.Inbound{Event: session.GameStarted{Turn: them}}
	for _, s := range b.Ships {
		for _, c := range s.Footprint() {
			ch.events <- session.Inbound{Event: session.ShotResult{By: them, At: c, Hit: true}}
		}
	}

	require.NoError(t, svc.Run(ctx, ch))

	assert.Equal(t, []string{claim.CircuitGameEnd}, p.circuits)
	assert.Equal(t, session.PhaseGameOver, svc.Rec.Machine().Phase())
	assert.Equal(t, them, svc.Rec.Machine().Winner())
	assert.Equal(t, them, mem.Winner(""))
}

func TestFailedResponseRollsBackForRedelivery(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	svc, p := newService(t, mem)

	_, err := svc.CommitBoard(ctx, "", testBoard(t))
	require.NoError(t, err)
	_, err = mem.PublishCommitment(ctx, "", them, "bb", nil)
	require.NoError(t, err)

	at := game.Coord{X: 0, Y: 0}

	// The shot_fired event outruns the ledger, so submitting the
	// result fails and Run aborts.
	ch := newFakeChannel()
	ch.events <- session.Inbound{Event: session.GameStarted{Turn: them}}
	ch.events <- session.Inbound{Event: session.ShotFired{By: them, At: at}}
	require.Error(t, svc.Run(ctx, ch))

	// Once the shot lands on the ledger, a redelivered shot_fired must
	// trigger a fresh response rather than being dropped as answered.
	_, err = mem.FireShot(ctx, "", them, at)
	require.NoError(t, err)

	ch2 := newFakeChannel()
	ch2.events <- session.Inbound{Event: session.ShotFired{By: them, At: at}}
	ch2.events <- session.Inbound{Event: session.GameOver{Winner: them}}
	require.NoError(t, svc.Run(ctx, ch2))

	assert.Equal(t, []string{claim.CircuitShot, claim.CircuitShot}, p.circuits)
}
