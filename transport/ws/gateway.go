package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain"
	apperrors "group-chat/errors"
	"group-chat/services"
)

// Gateway upgrades authenticated requests into live sessions and runs the
// per-connection state machine: Connected, zero or more subscriptions,
// then Disconnected exactly once.
type Gateway struct {
	log             *slog.Logger
	broker          contract.IBroker
	membership      services.IMembershipService
	chat            services.IChatService
	upgrader        websocket.Upgrader
	sendBufferSize  int
	maxMessageBytes int64
}

func NewGateway(
	log *slog.Logger,
	broker contract.IBroker,
	membership services.IMembershipService,
	chat services.IChatService,
	sendBufferSize int,
	maxMessageBytes int64,
) *Gateway {
	return &Gateway{
		log:        log,
		broker:     broker,
		membership: membership,
		chat:       chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bearer token is the access control; the socket endpoint
			// is origin-agnostic so non-browser clients can connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBufferSize:  sendBufferSize,
		maxMessageBytes: maxMessageBytes,
	}
}

// ServeWS handles the live channel endpoint. On connect the session's
// subscriptions are re-derived from durable membership, so a reconnecting
// client resumes live delivery without re-issuing joins.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := newSession(conn, userID, g.broker, g.sendBufferSize, g.log)
	g.broker.Register(session.id, userID, session)
	g.log.Info("session connected", "session_id", session.id, "user_id", userID)

	groups, err := g.membership.ListGroupsFor(r.Context(), userID)
	if err != nil {
		g.log.Error("failed to derive subscriptions", "user_id", userID, "error", err)
	}
	for _, group := range groups {
		g.broker.Subscribe(session.id, group.ID)
	}

	go session.writePump()
	g.readPump(session)
}

// readPump consumes client events until the connection dies, then tears
// the session down. Tear-down is idempotent, so a transport error racing
// an explicit close cannot corrupt the subscriber sets.
func (g *Gateway) readPump(session *Session) {
	defer func() {
		session.close()
		_ = session.conn.Close()
	}()

	session.conn.SetReadLimit(g.maxMessageBytes)
	_ = session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		return session.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev clientEvent
		if err := session.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				g.log.Warn("unexpected websocket error",
					"session_id", session.id,
					"error", err)
			}
			return
		}
		g.handleClientEvent(session, ev)
	}
}

func (g *Gateway) handleClientEvent(session *Session, ev clientEvent) {
	ctx := session.ctx
	groupID := domain.GroupID(ev.GroupID)

	switch ev.Type {
	case "joinGroup":
		if err := g.membership.JoinGroup(ctx, groupID, session.userID); err != nil {
			session.sendError(groupID, userFacing(err))
			return
		}
	case "sendMessage":
		if _, err := g.chat.Send(ctx, groupID, session.userID, ev.Message); err != nil {
			session.sendError(groupID, userFacing(err))
			return
		}
	default:
		session.sendError(groupID, "unknown event type: "+ev.Type)
	}
}

// userFacing keeps taxonomy errors readable on the wire and hides
// everything else behind a generic message.
func userFacing(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrValidation):
		return err.Error()
	default:
		return "internal error"
	}
}
