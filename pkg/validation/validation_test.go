package validation

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-flightsim/pkg/controls"
)

func TestValidateAircraftType(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name:  "preset name",
			input: "glider",
			want:  "glider",
		},
		{
			name:  "surrounding whitespace",
			input: "  trainer ",
			want:  "trainer",
		},
		{
			name:  "digits and separators",
			input: "c-172_v2",
			want:  "c-172_v2",
		},
		{
			name:        "empty",
			input:       "",
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "only whitespace",
			input:       "   ",
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", MaxAircraftTypeLen+1),
			wantErr:     true,
			errContains: "too long",
		},
		{
			name:        "uppercase",
			input:       "Glider",
			wantErr:     true,
			errContains: "lowercase",
		},
		{
			name:        "path characters",
			input:       "../glider",
			wantErr:     true,
			errContains: "lowercase",
		},
		{
			name:        "leading separator",
			input:       "-glider",
			wantErr:     true,
			errContains: "lowercase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAircraftType(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateAircraftType() expected error but got none")
					return
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("ValidateAircraftType() error %v does not wrap ErrInvalidInput", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidateAircraftType() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateAircraftType() unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("ValidateAircraftType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     controls.Command
		wantErr bool
	}{
		{"neutral", controls.Command{}, false},
		{"full deflection", controls.Command{Elevator: -1, Aileron: 1, Rudder: -1, Throttle: 1}, false},
		{"elevator too large", controls.Command{Elevator: 2}, true},
		{"aileron too small", controls.Command{Aileron: -5}, true},
		{"rudder too large", controls.Command{Rudder: 3}, true},
		{"throttle too small", controls.Command{Throttle: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommand(%+v) error = %v, wantErr %v", tt.cmd, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateCommand() error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	defer rl.Close()

	clientID := "192.0.2.1"

	for i := 0; i < 5; i++ {
		if !rl.Allow(clientID) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if rl.Allow(clientID) {
		t.Error("Request 6 should be rate limited")
	}

	if !rl.Allow("192.0.2.2") {
		t.Error("Different client should be allowed")
	}

	if rl.Clients() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", rl.Clients())
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("pilot")
	rl.Allow("pilot")
	if rl.Allow("pilot") {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(30 * time.Second)
	if !rl.Allow("pilot") {
		t.Error("half a window should refill one token")
	}
	if rl.Allow("pilot") {
		t.Error("only one token should have been refilled")
	}

	now = now.Add(10 * time.Minute)
	if !rl.Allow("pilot") || !rl.Allow("pilot") {
		t.Error("a long idle period should refill the bucket")
	}
	if rl.Allow("pilot") {
		t.Error("refill must not exceed the bucket size")
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(90 * time.Second)
	rl.Allow("recent")
	now = now.Add(60 * time.Second)

	rl.evictIdle()

	if rl.Clients() != 1 {
		t.Errorf("Expected only the recent client to survive, got %d clients", rl.Clients())
	}
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Close()
	rl.Close()
}

func TestRequestGuard_Middleware(t *testing.T) {
	guard := NewRequestGuard(2)
	defer guard.Close()

	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote, body string) int {
		req := httptest.NewRequest("POST", "/reset", strings.NewReader(body))
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	tests := []struct {
		name   string
		remote string
		body   string
		want   int
	}{
		{"first request", "192.0.2.1:5000", "{}", http.StatusOK},
		{"oversized body", "192.0.2.1:5001", strings.Repeat("x", MaxBodySize+1), http.StatusRequestEntityTooLarge},
		{"same host other port is limited", "192.0.2.1:5002", "{}", http.StatusTooManyRequests},
		{"other host", "192.0.2.9:5000", "{}", http.StatusOK},
	}

	for _, tt := range tests {
		if got := send(tt.remote, tt.body); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestRequestGuard_Disabled(t *testing.T) {
	guard := NewRequestGuard(0)
	defer guard.Close()

	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("POST", "/reset", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, w.Code)
		}
	}
}
