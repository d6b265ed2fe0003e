package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/rps-arena/game/config"
	"github.com/wricardo/rps-arena/game/engine"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/protocol"
	"github.com/wricardo/rps-arena/game/room"
)

var (
	errClientGone   = errors.New("client disconnected")
	errRoomClosed   = errors.New("room broadcast closed")
	errMatchTimeout = errors.New("no match request before timeout")
)

// Conn is the part of *websocket.Conn a Session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session coordinates one client connection: it matches the client into a
// room, relays choices into the registry, and relays the room broadcast back
// to the client until either side goes away.
type Session struct {
	conn     Conn
	registry *room.Registry
	ids      ids.Source
	cfg      *config.Config

	// send is the bounded outbound queue drained by writePump.
	send chan []byte

	playerID string
	roomID   string
}

// NewSession prepares a session for conn. Call Run to start it.
func NewSession(conn Conn, registry *room.Registry, src ids.Source, cfg *config.Config) *Session {
	return &Session{
		conn:     conn,
		registry: registry,
		ids:      src,
		cfg:      cfg,
		send:     make(chan []byte, cfg.OutboundQueueSize),
	}
}

// PlayerID returns the id assigned during matchmaking, or "" before it.
func (s *Session) PlayerID() string { return s.playerID }

// RoomID returns the room the session joined, or "" before matchmaking.
func (s *Session) RoomID() string { return s.roomID }

// Run drives the session to completion. It returns nil when the client
// disconnects, the room closes, or ctx is cancelled; other errors describe
// transport failures. The connection is closed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.IdleTimeout)))
	})

	kind, err := s.awaitMatchRequest(ctx)
	if err != nil {
		if errors.Is(err, errClientGone) || errors.Is(err, errMatchTimeout) || ctx.Err() != nil {
			slog.DebugContext(ctx, "session ended before matchmaking", "reason", err)
			return nil
		}
		return err
	}

	player := engine.NewPlayer(s.ids.Next())
	roomID, sub, err := s.registry.Matchmake(ctx, kind, player)
	if err != nil {
		s.closeWith(websocket.CloseInternalServerErr, "matchmaking failed")
		return fmt.Errorf("matchmake: %w", err)
	}
	s.playerID, s.roomID = player.ID, roomID
	defer sub.Unsubscribe()
	defer func() {
		if err := s.registry.Leave(context.WithoutCancel(ctx), roomID, player.ID); err != nil {
			slog.WarnContext(ctx, "leave room failed", "room", roomID, "player", player.ID, "err", err)
		}
	}()

	slog.InfoContext(ctx, "player joined", "room", roomID, "player", player.ID)
	s.send <- []byte(protocol.Connected{PlayerID: player.ID}.Text())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readPump(gctx) })
	g.Go(func() error { return s.relayPump(gctx, sub) })
	g.Go(func() error { return s.writePump(gctx, ctx) })

	err = g.Wait()
	slog.InfoContext(ctx, "player disconnected", "room", roomID, "player", player.ID, "reason", err)
	switch {
	case err == nil, errors.Is(err, errClientGone), errors.Is(err, errRoomClosed):
		return nil
	}
	return err
}

// awaitMatchRequest reads until the client asks for a quick match. Anything
// else is answered with an error event and the session keeps waiting, at most
// MatchTimeout in total.
func (s *Session) awaitMatchRequest(ctx context.Context) (room.Kind, error) {
	if !s.cfg.RequireMatchRequest {
		return room.Public, nil
	}

	stop := context.AfterFunc(ctx, func() {
		s.closeWith(websocket.CloseGoingAway, "server shutting down")
	})
	defer stop()

	deadline := time.Now().Add(time.Duration(s.cfg.MatchTimeout))
	for {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return 0, errClientGone
		}
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.closeWith(websocket.ClosePolicyViolation, "matchmaking timeout")
				return 0, errMatchTimeout
			}
			return 0, errClientGone
		}
		if mt != websocket.TextMessage {
			s.writeNow(protocol.ErrBinaryFrame)
			continue
		}

		req := protocol.Parse(string(data))
		switch {
		case req.Kind == protocol.RequestMatch && req.Match == protocol.MatchQuick:
			return room.Public, nil
		case req.Kind == protocol.RequestMatch && req.Match == protocol.MatchPrivate:
			s.writeNow(protocol.ErrPrivateUnsupported)
		default:
			s.writeNow(protocol.ErrExpectedMatchRequest)
		}
	}
}

// readPump turns client frames into registry submissions.
func (s *Session) readPump(ctx context.Context) error {
	idle := time.Duration(s.cfg.IdleTimeout)
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			return errClientGone
		}
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.WarnContext(ctx, "websocket read failed", "player", s.playerID, "err", err)
			}
			return errClientGone
		}
		if mt != websocket.TextMessage {
			s.reply(ctx, protocol.ErrBinaryFrame)
			continue
		}
		s.handle(ctx, protocol.Parse(string(data)))
	}
}

func (s *Session) handle(ctx context.Context, req protocol.Request) {
	switch req.Kind {
	case protocol.RequestChoice:
		_, err := s.registry.Submit(ctx, s.roomID, s.playerID, req.Choice)
		switch {
		case err == nil:
		case errors.Is(err, room.ErrAlreadyChosen):
			s.reply(ctx, protocol.ErrAlreadyChosen)
		case errors.Is(err, room.ErrRoomResolved), errors.Is(err, room.ErrRoomClosed):
			s.reply(ctx, protocol.ErrRoundOver)
		default:
			slog.WarnContext(ctx, "submit choice failed", "room", s.roomID, "player", s.playerID, "err", err)
		}
	case protocol.RequestMatch:
		s.reply(ctx, protocol.Error{Reason: "already matched into room " + s.roomID})
	default:
		s.reply(ctx, protocol.ErrInvalidChoice)
	}
}

// relayPump forwards the room broadcast into the outbound queue.
func (s *Session) relayPump(ctx context.Context, sub *room.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return errRoomClosed
			}
			select {
			case s.send <- []byte(msg):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// writePump drains the outbound queue to the client in order and keeps the
// connection alive with pings. It owns every data write after matchmaking and
// closes the connection on exit, which unblocks readPump.
func (s *Session) writePump(ctx, parent context.Context) error {
	ticker := time.NewTicker(s.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			code, reason := websocket.CloseNormalClosure, ""
			switch {
			case errors.Is(context.Cause(ctx), errRoomClosed):
				reason = "room closed"
			case parent.Err() != nil:
				code, reason = websocket.CloseGoingAway, "server shutting down"
			}
			s.closeWith(code, reason)
			return nil

		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return fmt.Errorf("write to player %s: %w", s.playerID, err)
			}

		case <-ticker.C:
			deadline := time.Now().Add(time.Duration(s.cfg.WriteTimeout))
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("ping player %s: %w", s.playerID, err)
			}
		}
	}
}

// flush writes whatever is still queued. Errors are ignored; the connection
// is about to close.
func (s *Session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(msg []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(time.Duration(s.cfg.WriteTimeout))); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// reply queues an event for this client only.
func (s *Session) reply(ctx context.Context, ev protocol.Event) {
	select {
	case s.send <- []byte(ev.Text()):
	case <-ctx.Done():
	}
}

// writeNow writes directly, for use before writePump starts.
func (s *Session) writeNow(ev protocol.Event) {
	if err := s.write([]byte(ev.Text())); err != nil {
		slog.Debug("write before matchmaking failed", "err", err)
	}
}

func (s *Session) closeWith(code int, reason string) {
	deadline := time.Now().Add(time.Duration(s.cfg.WriteTimeout))
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = s.conn.Close()
}
