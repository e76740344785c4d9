package handlers

import (
	"net/http"
	"slices"

	"github.com/aaronzipp/retroboard/internal/config"
	"github.com/aaronzipp/retroboard/internal/store"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Context holds shared application dependencies
type Context struct {
	Rooms  *store.RoomStore
	Config config.Config
	Log    zerolog.Logger

	upgrader websocket.Upgrader
}

// NewContext wires the handlers to rooms
func NewContext(rooms *store.RoomStore, cfg config.Config, logger zerolog.Logger) *Context {
	ctx := &Context{
		Rooms:  rooms,
		Config: cfg,
		Log:    logger.With().Str("module", "http").Logger(),
	}
	ctx.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     ctx.checkOrigin,
	}
	return ctx
}

// checkOrigin accepts any origin unless an allow list is configured
func (ctx *Context) checkOrigin(r *http.Request) bool {
	allowed := ctx.Config.AllowedOrigins
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return true
	}
	return slices.Contains(allowed, r.Header.Get("Origin"))
}

// HandleHealth reports liveness and the number of rooms in memory
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  ctx.Rooms.Len(),
	})
}
