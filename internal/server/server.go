// Package server exposes the configured waste sensors as HTTP entities in a
// Home-Assistant-compatible JSON shape.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rvanloon/twentemilieu/internal/sensor"
	middleware "github.com/rvanloon/twentemilieu/internal/server/middlewares"
	"github.com/rvanloon/twentemilieu/internal/wasteapi"
)

// ServerConfig holds configuration options for the HTTP server.
type ServerConfig struct {
	RateLimit      float64 // requests per second
	RateLimitBurst int     // maximum burst size
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RateLimit:      5.0,
		RateLimitBurst: 10,
	}
}

// Entity is the host-visible representation of one sensor.
type Entity struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastUpdated string     `json:"last_updated,omitempty"`
}

// Attributes carries the sensor's display metadata.
type Attributes struct {
	FriendlyName string `json:"friendly_name"`
	Icon         string `json:"icon"`
}

// SensorService serves the sensor entities.
type SensorService struct {
	sensors []sensor.Sensor
	logger  *logrus.Logger
}

// NewSensorService creates a new service over the configured sensors.
func NewSensorService(sensors []sensor.Sensor, logger *logrus.Logger) *SensorService {
	return &SensorService{
		sensors: sensors,
		logger:  logger,
	}
}

// Routes returns the service's router without any middleware (for
// development and tests).
func (s *SensorService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/sensors", s.handleList)
	r.Get("/api/sensors/{entityID}", s.handleGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *SensorService) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleList updates and renders every sensor. The refresh behind Update is
// throttled to once per day, so repeated polls stay off the network.
func (s *SensorService) handleList(w http.ResponseWriter, r *http.Request) {
	entities := make([]Entity, 0, len(s.sensors))
	for _, sn := range s.sensors {
		sn.Update(r.Context())
		entities = append(entities, toEntity(sn))
	}
	writeJSON(w, entities)
}

func (s *SensorService) handleGet(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	for _, sn := range s.sensors {
		if sn.EntityID() == entityID {
			sn.Update(r.Context())
			writeJSON(w, toEntity(sn))
			return
		}
	}
	http.Error(w, "unknown sensor", http.StatusNotFound)
}

func toEntity(sn sensor.Sensor) Entity {
	var lastUpdated string
	if lu := sn.LastUpdated(); !lu.IsZero() {
		lastUpdated = lu.Format(time.RFC3339)
	}
	return Entity{
		EntityID: sn.EntityID(),
		State:    sn.State(),
		Attributes: Attributes{
			FriendlyName: sn.Name(),
			Icon:         sn.Icon(),
		},
		LastUpdated: lastUpdated,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}

// SetupServer wraps the service routes with the full middleware stack and
// registers the Prometheus collectors.
func SetupServer(svc *SensorService, config ServerConfig, logger *logrus.Logger) http.Handler {
	prometheus.MustRegister(middleware.Requests)
	prometheus.MustRegister(middleware.Latency)
	prometheus.MustRegister(wasteapi.UpstreamRequests)
	prometheus.MustRegister(wasteapi.UpstreamLatency)

	limiter := rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,           // add request id first
		middleware.RateLimit(limiter),  // rate limit early
		middleware.Logging(logger),     // log all requests (with request id)
		middleware.Metrics,             // collect metrics
	)
	r.Mount("/", svc.Routes())
	return r
}
