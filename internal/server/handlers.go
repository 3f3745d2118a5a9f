package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// IndexHandler answers the liveness probe of hosting platforms.
type IndexHandler struct{}

func (IndexHandler) Routes() []string {
	return []string{"/"}
}

func (IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("tunebot is running\n"))
}

// Health is the body of /healthz.
type Health struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Bot      string `json:"bot,omitempty"`
}

// HealthHandler reports process uptime and the number of stored sessions.
type HealthHandler struct {
	started  time.Time
	now      func() time.Time
	sessions func() int
	bot      string
}

// NewHealthHandler creates a HealthHandler. sessions may be nil.
func NewHealthHandler(bot string, sessions func() int) *HealthHandler {
	return &HealthHandler{started: time.Now(), now: time.Now, sessions: sessions, bot: bot}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := Health{
		Status: "ok",
		Uptime: h.now().Sub(h.started).Truncate(time.Second).String(),
		Bot:    h.bot,
	}
	if h.sessions != nil {
		body.Sessions = h.sessions()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// NewBotRouter registers the index, health and (when non-nil) metrics endpoints.
func NewBotRouter(logger *log.Logger, rec HTTPRecorder, health *HealthHandler, metrics http.Handler) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger, rec))
	router.Handler(IndexHandler{})
	router.Handler(health)
	if metrics != nil {
		router.Handle(http.MethodGet, "/metrics", metrics)
	}
	return router
}
