package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"domainwatch/pkg/logger"

	"go.uber.org/zap"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every check with timeout and answers 200 when all pass, 503
// otherwise. Failure details are logged, not returned.
func Health(checks map[string]HealthCheck, timeout time.Duration) http.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		report := healthReport{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn(ctx, "health check failed", zap.String("check", name), zap.Error(err))
				report.Checks[name] = "failing"
				report.Status = "degraded"
				code = http.StatusServiceUnavailable

				continue
			}
			report.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	})
}
