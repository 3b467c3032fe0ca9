// Package validation checks requests arriving on the HTTP control surface
// before they reach the simulation.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/opd-ai/go-flightsim/pkg/controls"
)

// Request limits
const (
	MaxBodySize        = 4 * 1024
	MaxAircraftTypeLen = 32
)

// ErrInvalidInput is wrapped by every rejected value
var ErrInvalidInput = errors.New("invalid input")

var validAircraftType = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateAircraftType trims and checks a preset name
func ValidateAircraftType(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: aircraft type cannot be empty", ErrInvalidInput)
	}
	if len(trimmed) > MaxAircraftTypeLen {
		return "", fmt.Errorf("%w: aircraft type too long: %d characters (max %d)",
			ErrInvalidInput, len(trimmed), MaxAircraftTypeLen)
	}
	if !validAircraftType.MatchString(trimmed) {
		return "", fmt.Errorf("%w: aircraft type %q may only contain lowercase letters, digits, '-' and '_'",
			ErrInvalidInput, trimmed)
	}
	return trimmed, nil
}

// ValidateCommand checks that every axis is -1, 0 or +1
func ValidateCommand(cmd controls.Command) error {
	axes := []struct {
		name  string
		value int
	}{
		{"elevator", cmd.Elevator},
		{"aileron", cmd.Aileron},
		{"rudder", cmd.Rudder},
		{"throttle", cmd.Throttle},
	}
	for _, axis := range axes {
		if axis.value < -1 || axis.value > 1 {
			return fmt.Errorf("%w: %s must be -1, 0 or 1, got %d", ErrInvalidInput, axis.name, axis.value)
		}
	}
	return nil
}

// RequestGuard rate-limits clients and bounds request bodies
type RequestGuard struct {
	limiter   *RateLimiter
	perMinute int
}

// NewRequestGuard allows perMinute requests per client address. Zero
// disables rate limiting but still bounds bodies.
func NewRequestGuard(perMinute int) *RequestGuard {
	g := &RequestGuard{perMinute: perMinute}
	if perMinute > 0 {
		g.limiter = NewRateLimiter(perMinute, time.Minute)
	}
	return g
}

// Middleware wraps next with the guard
func (g *RequestGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter != nil && !g.limiter.Allow(clientAddress(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": fmt.Sprintf("rate limit exceeded: max %d requests per minute", g.perMinute),
			})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
		next.ServeHTTP(w, r)
	})
}

// Close releases the limiter
func (g *RequestGuard) Close() {
	if g.limiter != nil {
		g.limiter.Close()
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
