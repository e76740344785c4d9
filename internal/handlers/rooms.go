package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	snapshotTimeout = 2 * time.Second
	shareCodeSize   = 256
)

// HandleRoomState serves the live snapshot of a room for operators. It never
// creates rooms.
func (ctx *Context) HandleRoomState(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	rm, ok := ctx.Rooms.Get(id)
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	reqCtx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()
	snap, err := rm.Snapshot(reqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "Room busy", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleShareCode renders a QR code linking to the room's board
func (ctx *Context) HandleShareCode(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	link := ctx.ShareURL(id)
	png, err := qrcode.Encode(link, qrcode.Medium, shareCodeSize)
	if err != nil {
		ctx.Log.Error().Err(err).Str("session", id).Msg("encoding share code")
		http.Error(w, "Could not render share code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// ShareURL returns the public board link for a session
func (ctx *Context) ShareURL(sessionID string) string {
	return strings.TrimRight(ctx.Config.PublicBaseURL, "/") + "/retro/" + url.PathEscape(sessionID)
}
