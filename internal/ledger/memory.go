package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"zkbattleship/internal/game"
)

// Memory is an in-process ledger used by tests and offline play. It
// enforces the same sequencing rules the contract does: commitments
// before shots, alternating turns, one result per shot.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*memSession
}

type memSession struct {
	commitments map[string]string // player -> commitment hex
	turn        string
	pendingShot *pendingShot
	results     map[game.Coord]bool
	winner      string
}

type pendingShot struct {
	by string
	at game.Coord
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*memSession)}
}

func (m *Memory) session(id string) *memSession {
	s, ok := m.sessions[id]
	if !ok {
		s = &memSession{
			commitments: make(map[string]string),
			results:     make(map[game.Coord]bool),
		}
		m.sessions[id] = s
	}
	return s
}

func tx() TxRef { return TxRef(uuid.NewString()) }

func (m *Memory) PublishCommitment(ctx context.Context, sessionID, player, commitmentHex string, proof []byte) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if prev, ok := s.commitments[player]; ok && prev != commitmentHex {
		return "", fmt.Errorf("commitment already published for %s", player)
	}
	s.commitments[player] = commitmentHex
	return tx(), nil
}

func (m *Memory) FireShot(ctx context.Context, sessionID, player string, at game.Coord) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if len(s.commitments) < 2 {
		return "", fmt.Errorf("both commitments required before shots")
	}
	if s.winner != "" {
		return "", fmt.Errorf("session settled")
	}
	if s.turn != "" && s.turn != player {
		return "", fmt.Errorf("not %s's turn", player)
	}
	if s.pendingShot != nil {
		return "", fmt.Errorf("previous shot unanswered")
	}
	s.pendingShot = &pendingShot{by: player, at: at}
	return tx(), nil
}

func (m *Memory) SubmitShotResult(ctx context.Context, sessionID, player string, at game.Coord, hit bool, proof []byte) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if s.pendingShot == nil || s.pendingShot.at != at {
		return "", fmt.Errorf("no pending shot at (%d,%d)", at.X, at.Y)
	}
	if s.pendingShot.by == player {
		return "", fmt.Errorf("shooter cannot answer own shot")
	}
	if len(proof) == 0 {
		return "", fmt.Errorf("result proof required")
	}
	s.results[at] = hit
	s.turn = player // answering hands the turn over
	s.pendingShot = nil
	return tx(), nil
}

func (m *Memory) VerifyGameEnd(ctx context.Context, sessionID, player, historyDigestHex string, proof []byte) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if len(proof) == 0 {
		return "", fmt.Errorf("game-end proof required")
	}
	if s.winner != "" {
		return "", fmt.Errorf("session settled")
	}
	// The loser proves their own fleet is sunk; the opponent wins.
	for p := range s.commitments {
		if p != player {
			s.winner = p
		}
	}
	s.pendingShot = nil
	return tx(), nil
}

func (m *Memory) Forfeit(ctx context.Context, sessionID, player string) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if s.winner != "" {
		return "", fmt.Errorf("session settled")
	}
	for p := range s.commitments {
		if p != player {
			s.winner = p
		}
	}
	return tx(), nil
}

// Winner reports the settled winner for a session, if any.
func (m *Memory) Winner(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s.winner
	}
	return ""
}
