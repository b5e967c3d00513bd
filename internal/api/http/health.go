package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bxu-infra/kml-dashboard/internal/ollama"
)

type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Service   string      `json:"service"`
	Version   string      `json:"version"`
	DB        string      `json:"db"`
	Ollama    string      `json:"ollama"`
	Relay     RelayHealth `json:"relay"`
}

type RelayHealth struct {
	Model        string  `json:"model"`
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	db          Pinger
	prober      *ollama.Prober
	relay       *ollama.Client
}

// NewHealthHandler wires the health endpoint. db, prober and relay may each be nil.
func NewHealthHandler(serviceName, version string, db Pinger, prober *ollama.Prober, relay *ollama.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		prober:      prober,
		relay:       relay,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.db.PingContext(pingCtx); err != nil {
			dbStatus = "down"
		} else {
			dbStatus = "up"
		}
	}

	var relay RelayHealth
	if h.relay != nil {
		st := h.relay.Stats()
		relay = RelayHealth{
			Model:        h.relay.Model(),
			Calls:        st.Calls,
			Errors:       st.Errors,
			ErrorRate:    st.ErrorRate(),
			AvgLatencyMs: st.AvgLatencyMs,
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		Ollama:    string(h.prober.Status()),
		Relay:     relay,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
