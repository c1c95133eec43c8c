package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chalkboard/internal/relay"
)

// Server is the relay's HTTP surface: the health endpoint and the
// WebSocket mount. No business logic lives here.
type Server struct {
	hub          *relay.Hub
	wsHandler    *relay.Handler
	router       chi.Router
	httpsEnabled bool
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Connected int       `json:"connected"`
	Protocols Protocols `json:"protocols"`
}

// Protocols reports which listeners this deployment is serving.
type Protocols struct {
	HTTP  bool `json:"http"`
	HTTPS bool `json:"https"`
}

// NewServer builds the HTTP surface over the given hub.
func NewServer(hub *relay.Hub, wsHandler *relay.Handler, httpsEnabled bool) *Server {
	s := &Server{
		hub:          hub,
		wsHandler:    wsHandler,
		httpsEnabled: httpsEnabled,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Get("/health", s.healthCheck)
	r.HandleFunc("/ws", wsHandler.HandleWebSocket)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Connected: s.hub.ClientCount(),
		Protocols: Protocols{HTTP: true, HTTPS: s.httpsEnabled},
	})
}

// corsMiddleware allows classroom web clients from any origin to reach
// the health endpoint and upgrade to WebSocket.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
