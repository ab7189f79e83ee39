package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"pingchat/internal/app/chat"
	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/limiter"
	"pingchat/internal/pkg/logx"
	"pingchat/internal/pkg/resp"
)

// HandleWebSocket upgrades the connection and runs the client lifecycle.
// Identity is resolved before the upgrade: a handshake without a valid
// session is refused with an HTTP error and never reaches the registry.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		identity, customErr := deps.Broker.ResolveIdentity(r.Context(), r)
		if customErr != nil {
			logx.Warn("WebSocket connection rejected: identity unresolved.")
			resp.RespondError(w, r, customErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Broker, conn, identity)

		go client.WritePump()

		deps.Broker.Admit(r.Context(), client)

		logx.Info("WebSocket connection established",
			"connection_id", client.ID(),
			"username", identity.Username,
		)

		client.ReadPump()
	}
}
