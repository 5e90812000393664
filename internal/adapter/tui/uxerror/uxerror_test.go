package uxerror

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vectorportal/internal/domain"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"auth", fmt.Errorf("gateway.AuthTypes: %w", domain.ErrGatewayAuthFailed), "Gateway Authentication Failed"},
		{"breaker", fmt.Errorf("%w: %w", domain.ErrLoadFailed, domain.ErrCircuitOpen), "Gateway Temporarily Disabled"},
		{"refused", errors.New("dial tcp 127.0.0.1:8089: connect: connection refused"), "Gateway Unreachable"},
		{"timeout", errors.New("context deadline exceeded"), "Request Timed Out"},
		{"load", fmt.Errorf("%w: boom", domain.ErrLoadFailed), "Could Not Load Wizard Data"},
		{"unknown", errors.New("something odd"), "Unexpected Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Humanize(tt.err)
			if fe.Title != tt.title {
				t.Errorf("Title = %q, want %q", fe.Title, tt.title)
			}
			if fe.Raw != tt.err.Error() {
				t.Errorf("Raw = %q", fe.Raw)
			}
		})
	}
}

func TestHumanizeUsesDomainDetail(t *testing.T) {
	err := domain.NewSubSystemError("gateway", "CreateCredential", domain.ErrConfigInvalid, "Region is required")
	fe := Humanize(err)
	if fe.Title != "Invalid Configuration" {
		t.Fatalf("Title = %q", fe.Title)
	}
	if fe.Message != "Region is required" {
		t.Errorf("Message = %q", fe.Message)
	}
	if got := Message(err); got != "Invalid Configuration: Region is required" {
		t.Errorf("Message() = %q", got)
	}
}

func TestHumanizeNil(t *testing.T) {
	if fe := Humanize(nil); fe.Title != "Unknown Error" {
		t.Errorf("Title = %q", fe.Title)
	}
}

func TestRender(t *testing.T) {
	out := Humanize(domain.ErrRateLimit).Render()
	if !strings.Contains(out, "Rate Limited") || !strings.Contains(out, "Suggestions:") {
		t.Errorf("Render() = %q", out)
	}
}
