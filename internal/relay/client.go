// Package relay maintains the long-lived bidirectional channel to the
// session registry: a typed event stream inbound, a small command set
// outbound, and a liveness ping that stops with the connection.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zkbattleship/internal/session"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Client is one player's connection to the relay.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	events    chan session.Inbound
	snapshots chan session.Snapshot

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Dial connects, identifies the player, and starts the read and ping
// loops. Closing the returned client (or canceling ctx) stops both.
func Dial(ctx context.Context, url, player string, log zerolog.Logger) (*Client, error) {
	hdr := http.Header{}
	hdr.Set("X-Player-ID", player)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, hdr)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, runCtx := errgroup.WithContext(runCtx)
	c := &Client{
		conn:      conn,
		log:       log.With().Str("component", "relay").Logger(),
		events:    make(chan session.Inbound, 32),
		snapshots: make(chan session.Snapshot, 8),
		cancel:    cancel,
		group:     g,
	}
	g.Go(func() error { return c.readLoop(runCtx) })
	g.Go(func() error { return c.pingLoop(runCtx) })
	g.Go(func() error {
		// Cancellation must unblock a pending read.
		<-runCtx.Done()
		_ = c.conn.Close()
		return nil
	})
	return c, nil
}

// Events streams decoded push events.
func (c *Client) Events() <-chan session.Inbound { return c.events }

// Snapshots streams authoritative session snapshots.
func (c *Client) Snapshots() <-chan session.Snapshot { return c.snapshots }

func (c *Client) readLoop(ctx context.Context) error {
	defer close(c.events)
	defer close(c.snapshots)
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("relay read: %w", err)
		}
		snap, in, err := decode(env)
		if err != nil {
			// Unknown or malformed frames are dropped, not escalated.
			c.log.Warn().Err(err).Str("type", env.Type).Msg("dropping relay frame")
			continue
		}
		if snap != nil {
			select {
			case c.snapshots <- *snap:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		select {
		case c.events <- *in:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) error {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if err := c.send(cmdPing, pongMsg{At: now.UnixMilli()}); err != nil {
				return fmt.Errorf("relay ping: %w", err)
			}
		}
	}
}

func (c *Client) send(typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := envelope{Type: typ, ID: uuid.NewString(), Data: data}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

// SubmitBoard publishes the board commitment (and optionally its
// validity proof) through the relay.
func (c *Client) SubmitBoard(commitmentHex string, proof []byte) error {
	return c.send(cmdSubmitBoard, submitBoardMsg{Commitment: commitmentHex, Proof: proof})
}

// SendChat sends a chat line to the opponent.
func (c *Client) SendChat(text string) error {
	return c.send(cmdChat, chatMsg{Text: text})
}

// Close tears the channel down and waits for the loops to stop.
func (c *Client) Close() error {
	c.cancel()
	_ = c.conn.Close()
	return c.group.Wait()
}
