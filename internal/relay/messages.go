package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"zkbattleship/internal/game"
	"zkbattleship/internal/session"
)

// envelope is the wire frame for both directions: a string tag plus a
// typed payload. Inbound tags map one-to-one onto session.Event
// variants; anything unknown is a protocol error handled by dropping.
type envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types.
const (
	msgPlayerJoined   = "player_joined"
	msgBoardSubmitted = "board_submitted"
	msgGameStarted    = "game_started"
	msgShotFired      = "shot_fired"
	msgShotResult     = "shot_result"
	msgGameOver       = "game_over"
	msgSessionState   = "session_state"
	msgChat           = "chat"
	msgPong           = "pong"
	msgError          = "error"
)

// Outbound command types.
const (
	cmdSubmitBoard = "submit_board"
	cmdChat        = "chat"
	cmdPing        = "ping"
)

type playerJoinedMsg struct {
	SessionID string `json:"session_id"`
	Player    string `json:"player"`
}

type boardSubmittedMsg struct {
	SessionID    string `json:"session_id"`
	Player       string `json:"player"`
	AllSubmitted bool   `json:"all_submitted"`
}

type gameStartedMsg struct {
	SessionID string `json:"session_id"`
	Turn      string `json:"turn"`
}

type shotMsg struct {
	SessionID string `json:"session_id"`
	By        string `json:"by"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Hit       bool   `json:"hit,omitempty"`
}

type gameOverMsg struct {
	SessionID string `json:"session_id"`
	Winner    string `json:"winner"`
}

type chatMsg struct {
	SessionID string `json:"session_id,omitempty"`
	From      string `json:"from,omitempty"`
	Text      string `json:"text"`
}

type pongMsg struct {
	At int64 `json:"at"`
}

type errorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type submitBoardMsg struct {
	Commitment string `json:"commitment"`
	Proof      []byte `json:"proof,omitempty"`
}

// decode turns an inbound envelope into either a snapshot or an
// event.
func decode(env envelope) (*session.Snapshot, *session.Inbound, error) {
	switch env.Type {
	case msgSessionState:
		var s session.Snapshot
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, nil, fmt.Errorf("decode snapshot: %w", err)
		}
		return &s, nil, nil
	case msgPlayerJoined:
		var m playerJoinedMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.PlayerJoined{Player: m.Player}}, nil
	case msgBoardSubmitted:
		var m boardSubmittedMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.BoardSubmitted{Player: m.Player, AllSubmitted: m.AllSubmitted}}, nil
	case msgGameStarted:
		var m gameStartedMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.GameStarted{Turn: m.Turn}}, nil
	case msgShotFired:
		var m shotMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.ShotFired{By: m.By, At: game.Coord{X: m.X, Y: m.Y}}}, nil
	case msgShotResult:
		var m shotMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.ShotResult{By: m.By, At: game.Coord{X: m.X, Y: m.Y}, Hit: m.Hit}}, nil
	case msgGameOver:
		var m gameOverMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.GameOver{Winner: m.Winner}}, nil
	case msgChat:
		var m chatMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{SessionID: m.SessionID, Event: session.Chat{From: m.From, Text: m.Text}}, nil
	case msgPong:
		var m pongMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{Event: session.Pong{At: time.UnixMilli(m.At)}}, nil
	case msgError:
		var m errorMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, nil, err
		}
		return nil, &session.Inbound{Event: session.ErrorEvent{Code: m.Code, Message: m.Message}}, nil
	default:
		return nil, nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
