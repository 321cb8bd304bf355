package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/game"
	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 64
)

// Client is one websocket attachment to a room's change feed. Every document
// write in the room is pushed as a full snapshot; the client also accepts
// move/ready/leave commands over the same socket.
type Client struct {
	ID   domain.Identity
	Code string
	Conn *websocket.Conn
	Send chan []byte

	Hub  *Hub
	Done chan struct{}

	closeOnce sync.Once
}

func NewClient(id domain.Identity, code string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:   id,
		Code: code,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Hub:  hub,
		Done: make(chan struct{}),
	}
}

// Run attaches the client to the room feed and pumps until the socket drops.
// It blocks until the read pump exits.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, release, err := c.Hub.Matches.Subscribe(ctx, c.Code)
	if err != nil {
		// no write pump yet, push the error frame directly
		body, _ := json.Marshal(ErrorPayload{Code: errorCode(err), Message: err.Error()})
		frame, _ := json.Marshal(Message{Type: MsgError, Payload: body})
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.Conn.WriteMessage(websocket.TextMessage, frame)
		c.Close()
		return
	}
	defer release()

	c.Hub.register(c)
	defer c.Hub.unregister(c)

	go c.writePump()
	go c.feedPump(feed)

	// initial snapshot so the client renders without waiting for a write
	if doc, err := c.Hub.Matches.GetRoom(ctx, c.Code); err == nil {
		c.sendState(doc)
	}

	c.readPump(ctx)
}

// Close shuts the underlying socket. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.Conn.Close()
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read closed", "room", c.Code, "uid", c.ID.UID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendErrorCode("bad_message", "malformed frame")
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			c.sendError(err)
			// an outsider issuing commands is cut off after the
			// error frame; watching never required a seat
			if errors.Is(err, match.ErrNotInRoom) {
				return
			}
		}
	}
}

func (c *Client) handle(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MsgMove:
		var p MovePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendErrorCode("bad_message", "malformed move payload")
			return nil
		}
		_, err := c.Hub.Matches.Move(ctx, c.Code, c.ID.UID, p.Version, p.Move)
		return err
	case MsgReady:
		_, err := c.Hub.Matches.Ready(ctx, c.Code, c.ID.UID)
		return err
	case MsgLeave:
		if _, err := c.Hub.Matches.Leave(ctx, c.Code, c.ID.UID); err != nil {
			return err
		}
		c.Close()
		return nil
	default:
		c.sendErrorCode("bad_message", "unknown message type")
		return nil
	}
}

// feedPump forwards every change-feed snapshot to the socket. The feed
// channel closes when the subscription is released or the room is deleted.
func (c *Client) feedPump(feed <-chan domain.MatchDoc) {
	for doc := range feed {
		d := doc
		c.sendState(&d)
	}
	c.Close()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done:
			return
		}
	}
}

// sendState pushes a snapshot redacted for this viewer's seat.
func (c *Client) sendState(doc *domain.MatchDoc) {
	view := c.Hub.Matches.View(doc, c.ID.UID)
	c.enqueue(MsgState, StatePayload{Room: view, Version: view.Version})
}

func (c *Client) sendError(err error) {
	c.sendErrorCode(errorCode(err), err.Error())
}

func (c *Client) sendErrorCode(code, message string) {
	c.enqueue(MsgError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) enqueue(msgType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("ws payload marshal failed", "type", msgType, "error", err)
		return
	}
	frame, err := json.Marshal(Message{Type: msgType, Payload: body})
	if err != nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
		// slow consumer, drop the frame; the next snapshot carries the
		// full document anyway
		logger.Warn("ws send buffer full, dropping frame", "room", c.Code, "uid", c.ID.UID)
	}
}

// errorCode mirrors the HTTP error vocabulary so both transports speak the
// same names.
func errorCode(err error) string {
	switch {
	case errors.Is(err, match.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, match.ErrRoomFull):
		return "room_full"
	case errors.Is(err, match.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, match.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, match.ErrNotStarted):
		return "match_not_started"
	case errors.Is(err, match.ErrMatchFinished):
		return "match_finished"
	case errors.Is(err, match.ErrStaleWrite):
		return "stale_write"
	case errors.Is(err, game.ErrUnknownGame):
		return "unknown_game"
	case errors.Is(err, game.ErrInvalidMove):
		return "invalid_move"
	default:
		return "internal"
	}
}
