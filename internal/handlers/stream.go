package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/webtools-portal/internal/listing"
	"github.com/bobmcallan/webtools-portal/internal/session"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// StreamCommand is a transition requested over the snapshot stream.
type StreamCommand struct {
	Action string `json:"action"`
	Tag    string `json:"tag,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleStream handles GET /api/listing/stream. The socket receives every
// snapshot of the visitor's controller and accepts StreamCommand messages
// ("select", "more", "retry", "reload").
func (h *ListingHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		WriteError(w, http.StatusBadRequest, "websocket upgrade required")
		return
	}

	var id string
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		id = cookie.Value
	}
	sess, created := h.sessions.Get(id)

	header := http.Header{}
	if created {
		header.Add("Set-Cookie", h.sessionCookie(sess.ID).String())
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn().Str("error", err.Error()).Msg("stream: upgrade failed")
		return
	}
	defer conn.Close()

	ctrl := sess.Controller
	snapshots, cancel := ctrl.Subscribe()
	defer cancel()

	commands := make(chan StreamCommand)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go h.readCommands(conn, commands, done, stop)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
					time.Now().Add(streamWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case cmd := <-commands:
			go h.runCommand(ctrl, cmd)
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *ListingHandler) readCommands(conn *websocket.Conn, commands chan<- StreamCommand, done chan<- struct{}, stop <-chan struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var cmd StreamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Str("error", err.Error()).Msg("stream: read failed")
			}
			return
		}
		select {
		case commands <- cmd:
		case <-stop:
			return
		}
	}
}

func (h *ListingHandler) runCommand(ctrl *listing.Controller, cmd StreamCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	switch strings.ToLower(cmd.Action) {
	case "select":
		err = ctrl.SelectTag(ctx, strings.TrimSpace(cmd.Tag))
	case "more":
		err = ctrl.LoadMore(ctx)
	case "retry":
		err = ctrl.Retry(ctx)
	case "reload":
		err = ctrl.Reload(ctx)
	default:
		h.logger.Debug().Str("action", cmd.Action).Msg("stream: unknown command")
		return
	}
	if err != nil {
		h.logger.Debug().Str("action", cmd.Action).Str("error", err.Error()).Msg("stream: command did not apply")
	}
}
