// Package ws is the session gateway: one websocket per connected client.
// A session is created on connect, may subscribe to groups while it lives,
// and is destroyed exactly once on disconnect. Nothing here is persisted.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"group-chat/contract"
	"group-chat/domain"
	"group-chat/domain/event"
	apperrors "group-chat/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// clientEvent is what a connected client sends over the socket.
type clientEvent struct {
	Type    string         `json:"type"`
	GroupID string         `json:"groupId"`
	Message domain.Payload `json:"message"`
}

// serverEvent is what the gateway pushes to a connected client.
type serverEvent struct {
	Type      string          `json:"type"`
	GroupID   string          `json:"groupId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Message   *domain.Payload `json:"message,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Session is one live connection. It implements contract.EventSink: the
// broker hands it persisted messages and it forwards them to the client
// through a buffered channel, never blocking the publisher.
type Session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan serverEvent
	done   chan struct{}
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	broker contract.IBroker
	log    *slog.Logger
}

func newSession(conn *websocket.Conn, userID string, broker contract.IBroker, bufferSize int, log *slog.Logger) *Session {
	// The session context outlives the upgrade request and is canceled on
	// disconnect, so in-flight service calls observe the client going away.
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan serverEvent, bufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		broker: broker,
		log:    log,
	}
}

// Consume queues a persisted event for delivery to the client. A full
// buffer means this session is too slow; the event is dropped and the
// error surfaces in the broker's log only. The client recovers through a
// history fetch.
func (s *Session) Consume(_ context.Context, e event.DomainEvent) error {
	var ev serverEvent
	switch typed := e.(type) {
	case event.MessagePosted:
		m := typed.Message
		ev = serverEvent{
			Type:      "message",
			GroupID:   string(m.GroupID),
			UserID:    m.AuthorID,
			MessageID: m.ID.String(),
			Message:   &m.Payload,
			Timestamp: &m.CreatedAt,
		}
	case event.MemberJoined:
		ev = serverEvent{
			Type:      "memberJoined",
			GroupID:   string(typed.GroupID),
			UserID:    typed.UserID,
			Timestamp: &typed.At,
		}
	default:
		return nil
	}
	select {
	case <-s.done:
		return nil
	case s.send <- ev:
		return nil
	default:
		return fmt.Errorf("session %s: %w", s.id, apperrors.ErrSessionBufferFull)
	}
}

// close releases the session exactly once: the broker forgets it, and the
// write pump is told to stop. Safe to call from both pumps.
func (s *Session) close() {
	s.once.Do(func() {
		s.broker.UnsubscribeAll(s.id)
		s.cancel()
		close(s.done)
		s.log.Info("session closed", "session_id", s.id, "user_id", s.userID)
	})
}

func (s *Session) sendError(groupID domain.GroupID, message string) {
	select {
	case <-s.done:
	case s.send <- serverEvent{Type: "error", GroupID: string(groupID), Error: message}:
	default:
		s.log.Warn("error event dropped, session buffer full", "session_id", s.id)
	}
}

// writePump owns all writes on the connection: queued events and the
// periodic pings that keep the read deadline alive on the other side.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.log.Warn("failed to push event to client",
					"session_id", s.id,
					"error", err)
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
