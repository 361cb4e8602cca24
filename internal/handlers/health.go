package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

// Health states, from best to worst.
const (
	HealthOK       = "ok"
	HealthWarning  = "warning"
	HealthDegraded = "degraded"
)

// HealthCheck verifies one dependency. Critical failures degrade the whole
// service; the others only raise a warning. The raw error is only logged,
// clients see Failure.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
	Failure  string // public message, defaults to "Check failed"
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthHandler serves /api/health.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second, now: time.Now}
}

// Health runs every check; ok and warning answer 200, degraded 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	overall := HealthOK
	results := map[string]checkResult{"app": {Status: HealthOK}}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			status := HealthWarning
			if check.Critical {
				status = HealthDegraded
			}
			logger.FromContext(ctx).Warn("health check failed", "check", check.Name, "error", err)
			msg := check.Failure
			if msg == "" {
				msg = "Check failed"
			}
			results[check.Name] = checkResult{Status: status, Message: msg}
			if status == HealthDegraded || overall == HealthOK {
				overall = status
			}
			continue
		}
		results[check.Name] = checkResult{Status: HealthOK}
	}

	code := http.StatusOK
	if overall == HealthDegraded {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    overall,
		"checks":    results,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
