// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI and CLI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Gateway Unreachable"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is works through wrapping.
	{
		match:   is(domain.ErrGatewayAuthFailed),
		produce: constantError("Gateway Authentication Failed", "The gateway rejected the configured token.", []string{"Set gateway.token in the config file", "Export PORTAL_GATEWAY_TOKEN", "Check the server's auth.tokens list"}),
	},
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Gateway Temporarily Disabled", "Too many recent gateway calls failed, so requests are paused.", []string{"Wait for the circuit breaker timeout", "Run 'portal doctor' to check the gateway"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "The gateway is receiving too many requests.", []string{"Wait a moment before retrying", "Raise server.rate_limit.requests_per_min"}),
	},
	{
		match: is(domain.ErrComingSoon),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Provider Not Available Yet",
				Message: detail(err),
				Hints:   []string{"Pick an available provider"},
				Raw:     err.Error(),
			}
		},
	},
	{
		match: is(domain.ErrConfigInvalid),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Invalid Configuration",
				Message: detail(err),
				Hints:   []string{"Fix the highlighted fields", "Required fields are marked with *"},
				Raw:     err.Error(),
			}
		},
	},
	{
		match: is(domain.ErrGatewayRejected),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Request Rejected",
				Message: detail(err),
				Raw:     err.Error(),
			}
		},
	},
	{
		match:   is(domain.ErrDecryption),
		produce: constantError("Cannot Decrypt Secrets", "Stored secrets could not be decrypted with the configured passphrase.", []string{"Check server.secrets_passphrase", "Use the passphrase the store was created with"}),
	},
	{
		match:   is(domain.ErrConfigLoad),
		produce: constantError("Configuration Error", "The configuration file could not be loaded.", []string{"Run 'portal doctor' for details", "Check the YAML syntax"}),
	},

	// Network patterns (string matching for transport errors).
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Gateway Unreachable", "Could not connect to the schema provider gateway.", []string{"Start it with 'portal serve'", "Check gateway.url in the config", "Check if a firewall is blocking the connection"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout", "context deadline"),
		produce: constantError("Request Timed Out", "The gateway took too long to answer.", []string{"Check your network connection", "Increase gateway.timeout in the config"}),
	},
	{
		match: is(domain.ErrLoadFailed),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Could Not Load Wizard Data",
				Message: detail(err),
				Hints:   []string{"Press Ctrl+R to retry", "Run 'portal doctor' to check the gateway"},
				Raw:     err.Error(),
			}
		},
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug for more details"},
		Raw:     err.Error(),
	}
}

// Message is the one-line form of Humanize for inline notices.
func Message(err error) string {
	fe := Humanize(err)
	if fe.Message == "" {
		return fe.Title
	}
	return fe.Title + ": " + fe.Message
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// detail prefers the DomainError detail over the wrapped chain.
func detail(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
