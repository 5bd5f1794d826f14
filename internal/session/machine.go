package session

import (
	"zkbattleship/internal/game"
)

// Phase is the locally derived lifecycle stage of a session.
type Phase string

const (
	PhaseConnecting              Phase = "connecting"
	PhaseWaitingForOpponent      Phase = "waiting_for_opponent"
	PhasePlacingShips            Phase = "placing_ships"
	PhaseWaitingForOpponentBoard Phase = "waiting_for_opponent_board"
	PhasePlaying                 Phase = "playing"
	PhaseGameOver                Phase = "game_over"
)

// rank orders phases for the no-regress rule on event application.
func (p Phase) rank() int {
	switch p {
	case PhaseConnecting:
		return 0
	case PhaseWaitingForOpponent:
		return 1
	case PhasePlacingShips:
		return 2
	case PhaseWaitingForOpponentBoard:
		return 3
	case PhasePlaying:
		return 4
	case PhaseGameOver:
		return 5
	}
	return -1
}

// Turn names the current turn holder from the local point of view.
type Turn string

const (
	TurnNone     Turn = ""
	TurnLocal    Turn = "local"
	TurnOpponent Turn = "opponent"
)

// Machine drives the turn/phase engine for one session. It mirrors
// relay-owned state: phase and turn change only through confirmed
// events and snapshots, never through local optimism. The one
// optimistic bit, the pending shot, only revokes the local right to
// act; it never grants anything.
type Machine struct {
	localPlayer string

	sessionID  string
	onChainRef string
	opponent   string

	phase   Phase
	maxRank int
	turn    Turn
	winner  string

	boardSubmitted bool
	allBoards      bool
	pendingShot    *game.Coord
}

func NewMachine(localPlayer string) *Machine {
	return &Machine{localPlayer: localPlayer, phase: PhaseConnecting}
}

func (m *Machine) LocalPlayer() string { return m.localPlayer }
func (m *Machine) SessionID() string   { return m.sessionID }
func (m *Machine) OnChainRef() string  { return m.onChainRef }
func (m *Machine) Opponent() string    { return m.opponent }
func (m *Machine) Phase() Phase        { return m.phase }
func (m *Machine) TurnHolder() Turn    { return m.turn }
func (m *Machine) Winner() string      { return m.winner }

// PendingShot returns the optimistic in-flight shot, if any.
func (m *Machine) PendingShot() *game.Coord {
	if m.pendingShot == nil {
		return nil
	}
	c := *m.pendingShot
	return &c
}

// CanAct reports whether the local player may fire: in play, holding
// the turn, with no shot already in flight.
func (m *Machine) CanAct() bool {
	return m.phase == PhasePlaying && m.turn == TurnLocal && m.pendingShot == nil
}

// ProposeShot registers the optimistic intent for a fired shot. It
// revokes the local right to act until a confirmation arrives but
// does not hand the turn to the opponent.
func (m *Machine) ProposeShot(c game.Coord) {
	shot := c
	m.pendingShot = &shot
}

// ClearPendingShot drops the optimistic intent, either because the
// result arrived or because the submission failed and may be retried.
func (m *Machine) ClearPendingShot() { m.pendingShot = nil }

// MarkBoardSubmitted records the confirmed local board submission and
// advances out of the placing phase.
func (m *Machine) MarkBoardSubmitted() {
	m.boardSubmitted = true
	if !m.allBoards {
		m.advance(PhaseWaitingForOpponentBoard)
	}
}

// advance moves to p unless that would regress below the furthest
// phase already reached. Stale events after a newer snapshot land
// here and are ignored.
func (m *Machine) advance(p Phase) bool {
	if p.rank() < m.maxRank {
		return false
	}
	m.phase = p
	m.maxRank = p.rank()
	return true
}

func (m *Machine) setTurn(holder string) {
	switch holder {
	case "":
		m.turn = TurnNone
	case m.localPlayer:
		m.turn = TurnLocal
	default:
		m.turn = TurnOpponent
	}
}

// ApplySnapshot resyncs from the relay's authoritative view. Snapshot
// phase and turn overwrite local derivations; GameOver stays terminal.
func (m *Machine) ApplySnapshot(s Snapshot) {
	if m.sessionID == "" {
		m.sessionID = s.SessionID
	}
	if s.OnChainRef != "" {
		m.onChainRef = s.OnChainRef
	}
	for _, p := range s.Players {
		if p != m.localPlayer {
			m.opponent = p
		}
	}
	if m.phase == PhaseGameOver {
		if m.winner == "" {
			m.winner = s.Winner
		}
		return
	}

	switch s.Phase {
	case RelayWaiting:
		if len(s.Players) < 2 {
			m.advance(PhaseWaitingForOpponent)
		}
	case RelaySetup:
		if m.boardSubmitted {
			m.advance(PhaseWaitingForOpponentBoard)
		} else {
			m.advance(PhasePlacingShips)
		}
	case RelayActive:
		m.allBoards = true
		m.advance(PhasePlaying)
		m.setTurn(s.Turn)
	case RelayFinished:
		m.advance(PhaseGameOver)
		m.winner = s.Winner
		m.turn = TurnNone
	}
}

// Apply folds one confirmed event into the machine. Chat, pong and
// relay errors do not touch phase or turn.
func (m *Machine) Apply(ev Event) {
	if m.phase == PhaseGameOver {
		return
	}
	switch e := ev.(type) {
	case PlayerJoined:
		if e.Player != m.localPlayer {
			m.opponent = e.Player
		}
		if m.boardSubmitted {
			m.advance(PhaseWaitingForOpponentBoard)
		} else {
			m.advance(PhasePlacingShips)
		}
	case BoardSubmitted:
		if e.Player == m.localPlayer {
			m.boardSubmitted = true
			m.advance(PhaseWaitingForOpponentBoard)
		}
		if e.AllSubmitted {
			m.allBoards = true
			m.advance(PhasePlaying)
		}
	case GameStarted:
		m.allBoards = true
		m.advance(PhasePlaying)
		m.setTurn(e.Turn)
	case ShotResult:
		// Turn possession only moves within play.
		if m.phase != PhasePlaying {
			return
		}
		if e.By == m.localPlayer {
			m.pendingShot = nil
			m.turn = TurnOpponent
		} else {
			m.turn = TurnLocal
		}
	case GameOver:
		m.advance(PhaseGameOver)
		m.winner = e.Winner
		m.turn = TurnNone
	case ShotFired, Chat, Pong, ErrorEvent:
		// no phase or turn change
	}
}
