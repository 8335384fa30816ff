package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/matchwork/internal/feed"
)

const (
	wsWriteWait = 5 * time.Second
	wsPingEvery = 30 * time.Second
)

// handleFeedSocket bridges a feed subscription onto a websocket. The
// client picks its channel with ?channel=; omitted means the public
// marketplace stream. Browsers cannot set an Authorization header on a
// socket, so the session token rides in ?token=.
func (s *Server) handleFeedSocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "token query parameter required")
		return
	}
	if _, err := verifySession(s.cfg.JWTSecret, token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_session", "session token rejected")
		return
	}

	channel := strings.TrimSpace(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = feed.ChannelMarketplace
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("feed socket upgrade failed", "err", err)
		return
	}

	sub := s.registry.Subscribe(channel)
	if s.metrics != nil {
		s.metrics.ActiveFeedSubs.Inc()
	}
	s.log.Info("feed subscriber connected", "channel", channel)

	done := make(chan struct{})

	// Reader pump: the client sends nothing we care about, but reading is
	// how we learn the peer went away.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			sub.Close()
			_ = conn.Close()
			if s.metrics != nil {
				s.metrics.ActiveFeedSubs.Dec()
			}
			s.log.Info("feed subscriber disconnected", "channel", channel)
		}()

		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription replaced"))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}
