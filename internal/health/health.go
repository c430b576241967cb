package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"feedgate/internal/settlement"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SweepStatus reports the settlement sweeper's latest state.
type SweepStatus interface {
	Status() settlement.Status
}

// Server serves liveness, readiness and metrics.
type Server struct {
	ready    atomic.Bool
	sweeper  SweepStatus
	gatherer prometheus.Gatherer
}

// NewServer returns a server that is not ready until SetReady(true).
// sweeper may be nil when sweeping is disabled.
func NewServer(sweeper SweepStatus, gatherer prometheus.Gatherer) *Server {
	return &Server{sweeper: sweeper, gatherer: gatherer}
}

func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler routes /livez, /readyz and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", LivenessHandler)
	mux.HandleFunc("/readyz", s.ReadinessHandler)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	if s.sweeper != nil {
		response["settlement"] = s.sweeper.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
