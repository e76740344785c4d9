package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aaronzipp/retroboard/internal/broadcast"
	"github.com/aaronzipp/retroboard/internal/catalog"
	"github.com/aaronzipp/retroboard/internal/metrics"
	"github.com/aaronzipp/retroboard/internal/retro"
	"github.com/aaronzipp/retroboard/internal/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	joinTimeout   = 5 * time.Second
	submitTimeout = 5 * time.Second
)

// conn is one WebSocket session bound to a participant
type conn struct {
	ws      *websocket.Conn
	peer    *broadcast.Peer
	room    *room.Room
	limiter *rate.Limiter
	log     zerolog.Logger

	participantID string
	generation    uint64

	readLimit    int64
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration

	writerDone chan struct{}
}

// HandleRetroSocket upgrades /ws/retro/{sessionId} and runs the session.
// ?userId= carries the participant id issued on an earlier visit.
func (ctx *Context) HandleRetroSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	requestedID := r.URL.Query().Get("userId")

	rm, err := ctx.Rooms.GetOrCreate(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrSessionNotFound) {
			http.Error(w, "Retrospective not found", http.StatusNotFound)
			return
		}
		ctx.Log.Error().Err(err).Str("session", id).Msg("resolving room")
		http.Error(w, "Session catalog unavailable", http.StatusBadGateway)
		return
	}

	ws, err := ctx.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		ctx.Log.Debug().Err(err).Str("session", id).Msg("upgrade failed")
		return
	}
	metrics.ConnectionOpened()

	c := &conn{
		ws:           ws,
		peer:         broadcast.NewPeer(uuid.NewString(), ctx.Config.OutboundQueue),
		limiter:      rate.NewLimiter(rate.Limit(ctx.Config.MessageRate), ctx.Config.MessageBurst),
		readLimit:    ctx.Config.ReadLimit,
		pingInterval: ctx.Config.PingInterval,
		pongWait:     ctx.Config.PongWait,
		writeWait:    ctx.Config.WriteWait,
		writerDone:   make(chan struct{}),
	}
	c.log = ctx.Log.With().Str("session", id).Str("conn", c.peer.ID).Logger()
	go c.writePump()

	res, err := ctx.join(id, rm, requestedID, c)
	if err != nil {
		c.log.Warn().Err(err).Msg("join failed")
		c.peer.Kick(websocket.CloseInternalServerErr, "could not join room")
		<-c.writerDone
		metrics.ConnectionClosed("join_failed")
		return
	}
	c.participantID, c.generation = res.ParticipantID, res.Generation
	c.log = c.log.With().Str("participant", res.ParticipantID).Logger()

	reason := c.readPump()

	leaveCtx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	if err := c.room.Leave(leaveCtx, c.participantID, c.generation); err != nil && !errors.Is(err, room.ErrRoomClosed) {
		c.log.Warn().Err(err).Msg("leave not delivered")
	}
	cancel()
	c.peer.Kick(websocket.CloseNormalClosure, "")
	<-c.writerDone
	metrics.ConnectionClosed(reason)
}

// join attaches c, retrying once if the room was evicted between lookup and
// join
func (ctx *Context) join(sessionID string, rm *room.Room, requestedID string, c *conn) (room.JoinResult, error) {
	joinCtx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	res, err := rm.Join(joinCtx, requestedID, c.peer)
	if errors.Is(err, room.ErrRoomClosed) {
		rm, err = ctx.Rooms.GetOrCreate(joinCtx, sessionID)
		if err != nil {
			return room.JoinResult{}, err
		}
		res, err = rm.Join(joinCtx, requestedID, c.peer)
	}
	c.room = rm
	return res, err
}

// readPump decodes client frames and submits them to the room until the
// connection ends. It returns the close reason for metrics.
func (c *conn) readPump() string {
	c.ws.SetReadLimit(c.readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return c.closeReason(err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		if mt != websocket.TextMessage {
			metrics.RecordMessage("", "malformed")
			c.log.Debug().Int("frame", mt).Msg("non-text frame dropped")
			continue
		}
		if !c.limiter.Allow() {
			metrics.RecordMessage("", "limited")
			c.log.Warn().Msg("message rate exceeded, frame dropped")
			continue
		}

		msg, err := retro.Decode(data)
		if err != nil {
			if errors.Is(err, retro.ErrUnknownType) {
				metrics.RecordMessage("", "ignored")
				c.log.Debug().Err(err).Msg("unknown message type ignored")
			} else {
				metrics.RecordMessage("", "malformed")
				c.log.Warn().Err(err).Int("bytes", len(data)).Msg("malformed message dropped")
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		err = c.room.Submit(ctx, c.participantID, c.generation, msg)
		cancel()
		if errors.Is(err, room.ErrRoomClosed) {
			return "room_closed"
		}
		if err != nil {
			c.log.Warn().Err(err).Str("type", string(msg.Kind())).Msg("room did not accept message")
		}
	}
}

func (c *conn) closeReason(err error) string {
	if c.peer.Kicked() {
		code, reason := c.peer.CloseStatus()
		c.log.Info().Int("code", code).Str("reason", reason).Msg("connection closed by server")
		switch code {
		case broadcast.CloseSuperseded:
			return "superseded"
		case broadcast.CloseSlowConsumer:
			return "slow_consumer"
		case broadcast.CloseRoomClosed:
			return "room_closed"
		}
		return "server_closed"
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info().Msg("connection closed")
		return "graceful"
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn().Int64("limit", c.readLimit).Msg("frame exceeded read limit")
		return "read_limit"
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Warn().Err(err).Msg("connection lost")
	} else {
		c.log.Warn().Err(err).Msg("connection lost without close frame")
	}
	return "abnormal"
}

// writePump drains the peer queue onto the socket and sends pings. When the
// peer is kicked it sends a close frame and closes the socket.
func (c *conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case frame := <-c.peer.Queue():
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		case <-c.peer.Done():
			code, reason := c.peer.CloseStatus()
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			return
		}
	}
}
