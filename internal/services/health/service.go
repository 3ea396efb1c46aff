package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/shared/server/respond"
	"s3drive-backend/internal/shared/telemetry"
)

const defaultTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is part of readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewService constructs a health service. Nil pingers are skipped.
func NewService(checks map[string]Pinger) *Service {
	filtered := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			filtered[name] = p
		}
	}
	return &Service{checks: filtered, timeout: defaultTimeout}
}

// Status runs every check with a shared deadline.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true}
	if len(s.checks) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			report.OK = false
			report.Checks[name] = "unavailable"
			telemetry.Error("health.check_failed", map[string]any{"check": name, "err": err})
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}

// Handle serves the report, with 503 when any check fails.
func (s *Service) Handle(c *gin.Context) {
	report := s.Status(c.Request.Context())
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, report)
}
