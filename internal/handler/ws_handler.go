/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for admission rate
limiting, credential verification (with guest fallback), upgrading the HTTP connection to
WebSocket, and starting the session's read and write pumps.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/limiter"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
	"github.com/beech80/clipt-final--sub000/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, admission *limiter.KeyedLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !admission.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimited))
			return
		}

		var identity user.Identity

		if token := bearerToken(r); token != "" {
			verified, customErr := deps.Verifier.Verify(token)
			if customErr != nil {
				logx.Warn("WebSocket connection rejected: Credential verification failed.", "ip", ip)
				resp.RespondError(w, r, customErr)
				return
			}
			identity = verified
		} else {
			guest, err := user.NewGuest()
			if err != nil {
				logx.Error(err, "Failed to generate guest identity")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			identity = guest
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := chat.NewSession(conn, deps.Sessions)
		session.Authenticate(identity)

		go session.WritePump()

		logx.Info("WebSocket connection established",
			"session_id", session.ID,
			"username", identity.Username,
			"guest", identity.Guest,
		)

		session.ReadPump()
	}
}
