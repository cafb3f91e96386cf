package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Uptime   string                   `json:"uptime"`
	Services map[string]ServiceStatus `json:"services"`
}

// HealthCheckHandler handles GET /healthCheck
func HealthCheckHandler(deps map[string]Pinger, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		services := make(map[string]ServiceStatus, len(deps))
		overallStatus := "ok"
		for name, dep := range deps {
			status := ServiceStatus{Status: "ok", Details: "connected"}
			if err := dep.Ping(ctx); err != nil {
				status = ServiceStatus{Status: "down", Details: err.Error()}
				overallStatus = "down"
			}
			services[name] = status
		}

		now := time.Now()
		uptime := now.Sub(upSince).Round(time.Second).String()

		resp := HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			Uptime:   uptime,
		}
		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
