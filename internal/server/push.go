package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const pushWriteTimeout = 5 * time.Second

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStatusConnection(conn)
}

// serveStatusConnection pushes a snapshot immediately, then on every tick
// until the client goes away.
func (s *Server) serveStatusConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := s.writeSnapshot(conn); err != nil {
		return
	}

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := s.writeSnapshot(conn); err != nil {
				log.Debug().Err(err).Msg("status push ended")
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(pushWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(s.agg.Snapshot())
}
