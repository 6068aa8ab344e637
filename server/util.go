package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/errors"
)

// upgrader creates a WebSocket upgrader with origin checking from config
func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin validates the request origin against server.allowed_origins.
// Prefix matching allows any port.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Allow requests with no origin header (e.g., direct WebSocket clients, testing)
	if origin == "" {
		return true
	}

	for _, allowedOrigin := range *s.allowedOrigins.Load() {
		if strings.HasPrefix(origin, allowedOrigin) {
			return true
		}
	}
	return false
}

func rateLimit(perSecond float64) rate.Limit {
	return rate.Limit(perSecond)
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, caller binds for real
	return true
}

// findAvailablePort tries the requested port, then the default port, then
// the ten ports above the requested one.
func findAvailablePort(requestedPort int) (int, error) {
	if isPortAvailable(requestedPort) {
		return requestedPort, nil
	}
	if requestedPort != am.DefaultServerPort && isPortAvailable(am.DefaultServerPort) {
		return am.DefaultServerPort, nil
	}
	for port := requestedPort + 1; port <= requestedPort+10; port++ {
		if isPortAvailable(port) {
			return port, nil
		}
	}
	return 0, errors.Newf("no available ports found (tried %d, %d and %d-%d)",
		requestedPort, am.DefaultServerPort, requestedPort+1, requestedPort+10)
}
