package gateway

import (
	"net/http"
	"time"

	"vectorportal/internal/adapter/gatewayapi"
)

// handleHealth answers GET /healthz. It needs no token so probes and
// `portal doctor` can reach it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, gatewayapi.HealthResponse{
			Envelope: fail("store unavailable"),
			Version:  s.version,
		})
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.HealthResponse{Envelope: ok("ok"), Version: s.version})
}

// handleStatus answers GET /api/status with inventory counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	creds, err := s.svc.ListCredentials(r.Context(), "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stores, err := s.svc.VectorStores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.StatusResponse{
		Envelope:         ok(""),
		Version:          s.version,
		UptimeSeconds:    int64(time.Since(s.started).Seconds()),
		Credentials:      len(creds),
		VectorStores:     len(stores),
		SecretsEncrypted: s.svc.deps.Store.Encrypted(),
		StreamClients:    s.metrics.StreamClients.Load(),
	})
}
