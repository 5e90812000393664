package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"vectorportal/internal/domain"
)

// ClientInfo holds metadata about an authenticated gateway client.
type ClientInfo struct {
	Name string
}

// Authenticator validates incoming gateway requests.
type Authenticator interface {
	Authenticate(token string) (*ClientInfo, error)
}

// TokenEntry is one accepted token.
type TokenEntry struct {
	Token string
	Name  string
}

type authEntry struct {
	token []byte
	info  *ClientInfo
}

// StaticTokenAuth authenticates clients against a static token list
// using constant-time comparison.
type StaticTokenAuth struct {
	entries []authEntry
}

// NewStaticTokenAuth builds an authenticator from a set of token entries.
// Empty tokens are skipped.
func NewStaticTokenAuth(entries []TokenEntry) *StaticTokenAuth {
	a := &StaticTokenAuth{}
	for _, e := range entries {
		if e.Token == "" {
			continue
		}
		a.entries = append(a.entries, authEntry{
			token: []byte(e.Token),
			info:  &ClientInfo{Name: e.Name},
		})
	}
	return a
}

// Authenticate returns client info if the token is valid.
func (s *StaticTokenAuth) Authenticate(token string) (*ClientInfo, error) {
	tokenBytes := []byte(token)
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(tokenBytes, e.token) == 1 {
			return e.info, nil
		}
	}
	return nil, domain.ErrGatewayAuthFailed
}

// requestToken reads a bearer token, falling back to the token query
// parameter used by websocket clients.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, found := strings.CutPrefix(h, "Bearer "); found {
			return tok
		}
		return h
	}
	return r.URL.Query().Get("token")
}

// requireAuth rejects requests without a valid token. A nil authenticator
// lets every request through.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	if s.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.Authenticate(requestToken(r)); err != nil {
			writeJSON(w, http.StatusUnauthorized, fail("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
