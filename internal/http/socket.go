package httpx

import (
	"context"
	"net/http"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/ws"
)

// handleSocket authenticates the handshake, upgrades it and hands frames to
// the chat service until the connection ends.
func (r *Router) handleSocket(w http.ResponseWriter, req *http.Request) {
	ctx, info, ok := r.ensureAuth(w, req, true)
	if !ok {
		return
	}
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(ctx)
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err, "user_id", info.UserID)
		return
	}

	client := ws.NewClient(conn, info.UserID, info.UserName, r.sendBuffer, r.logger)
	closed := r.metrics.ConnectionOpened()
	r.logger.Info("websocket connected", "user_id", info.UserID)

	go client.WritePump()
	go func() {
		defer func() {
			r.chat.Disconnect(client)
			client.Close()
			closed()
			r.logger.Info("websocket disconnected", "user_id", info.UserID)
		}()
		client.ReadPump(r.socketCtx, func(ctx context.Context, raw []byte) {
			r.chat.HandleFrame(ctx, client, raw)
		})
	}()
}
