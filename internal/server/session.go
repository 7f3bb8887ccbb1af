package server

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 512 * 1024

	// The first frame must be a valid auth within this window.
	authTimeout = 10 * time.Second
	// Closing sessions get this long to drain their send queue.
	drainTimeout = 2 * time.Second

	sendQueueSize = 256
)

// Session is one WebSocket connection. It moves through Accepted ->
// Authenticating -> Authenticated -> Closing; the identity and encoding
// preference are fixed by the auth frame.
type Session struct {
	id      string
	conn    *websocket.Conn
	hub     *Hub
	handler *Handler
	codec   *protocol.Codec
	queue   *sendQueue
	logger  *zap.Logger

	mu       sync.Mutex
	identity *auth.Identity
	enc      protocol.Encoding

	authed    atomic.Bool
	closeOnce sync.Once
	closedCh  chan struct{}
}

func newSession(conn *websocket.Conn, hub *Hub, handler *Handler, logger *zap.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		conn:     conn,
		hub:      hub,
		handler:  handler,
		codec:    protocol.NewCodec(),
		queue:    newSendQueue(sendQueueSize),
		logger:   logger,
		enc:      protocol.EncodingMsgpack,
		closedCh: make(chan struct{}),
	}
}

// ID returns the session's connection id.
func (s *Session) ID() string { return s.id }

// Identity returns the authenticated identity, or nil.
func (s *Session) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// UserID returns the authenticated user id, or empty.
func (s *Session) UserID() string {
	if id := s.Identity(); id != nil {
		return id.UserID
	}
	return ""
}

// Role returns the authenticated role, or viewer.
func (s *Session) Role() auth.Role {
	if id := s.Identity(); id != nil {
		return id.Role
	}
	return auth.RoleViewer
}

// Authenticated reports whether the auth handshake completed.
func (s *Session) Authenticated() bool { return s.authed.Load() }

// setIdentity records the verified identity and the wire encoding the
// client used for its auth frame; replies use the same encoding.
func (s *Session) setIdentity(id *auth.Identity, enc protocol.Encoding) {
	s.mu.Lock()
	s.identity = id
	s.enc = enc
	s.mu.Unlock()
	s.authed.Store(true)
}

func (s *Session) encoding() protocol.Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc
}

// Enqueue queues msg for delivery, dropping the oldest message of the
// same (robot, topic) pair when the queue is full.
func (s *Session) Enqueue(msg *protocol.Message) {
	s.queue.push(msg)
}

// Close begins the Closing state: the write pump drains the queue with
// a deadline and shuts the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.queue.close()
		close(s.closedCh)
	})
}

// run services the connection until it closes. Must be called on its
// own task; it spawns the write pump internally.
func (s *Session) run() {
	go s.writePump()
	s.readPump()
}

func (s *Session) readPump() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panic",
				zap.String("session_id", s.id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			s.closeWithCode(websocket.CloseInternalServerErr, "internal error")
		}
		s.handler.OnSessionClosed(s)
		s.hub.Unregister(s)
		s.Close()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(authTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.authed.Load() {
				// Auth window expired or the client left early.
				s.rejectAuth("authentication timeout")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("session read error",
					zap.String("session_id", s.id),
					zap.Error(err),
				)
			}
			return
		}

		msg, enc, err := s.codec.Decode(data)
		if err != nil {
			s.sendError("", protocol.CodeBadFrame, "malformed frame")
			continue
		}

		if !s.authed.Load() {
			if msg.Type != protocol.MsgTypeAuth || !s.handler.Authenticate(s, msg, enc) {
				s.rejectAuth("authentication failed")
				return
			}
			s.conn.SetReadDeadline(time.Now().Add(pongWait))
			continue
		}

		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handler.HandleMessage(s, msg)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.closedCh:
			s.drain()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-s.queue.notify:
			for {
				msg := s.queue.pop()
				if msg == nil {
					break
				}
				if err := s.writeMessage(msg); err != nil {
					return
				}
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain flushes what remains of the queue within the drain deadline.
func (s *Session) drain() {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		msg := s.queue.pop()
		if msg == nil {
			return
		}
		if err := s.writeMessage(msg); err != nil {
			return
		}
	}
}

func (s *Session) writeMessage(msg *protocol.Message) error {
	data, err := s.codec.Encode(msg, s.encoding())
	if err != nil {
		s.logger.Error("encode failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return nil
	}

	msgType := websocket.BinaryMessage
	if s.encoding() == protocol.EncodingJSON {
		msgType = websocket.TextMessage
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(msgType, data)
}

func (s *Session) sendError(robotID, code, message string) {
	msg := protocol.NewMessage(protocol.MsgTypeError, robotID)
	msg.Error = fmt.Sprintf("%s: %s", code, message)
	msg.Payload["code"] = code
	msg.Payload["message"] = message
	s.Enqueue(msg)
}

// rejectAuth tells the client why the handshake failed and closes with
// 4401. The error frame is written directly so it precedes the close
// frame on the wire.
func (s *Session) rejectAuth(reason string) {
	msg := protocol.NewMessage(protocol.MsgTypeError, "")
	msg.Error = fmt.Sprintf("%s: %s", protocol.CodeAuthFailed, reason)
	msg.Payload["code"] = protocol.CodeAuthFailed
	msg.Payload["message"] = reason
	s.writeMessage(msg)
	s.closeWithCode(4401, reason)
}

func (s *Session) closeWithCode(code int, reason string) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
