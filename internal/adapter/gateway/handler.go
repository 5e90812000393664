package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/store"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/tracer"
)

const maxRequestBody = 1 << 20

// registerAPI mounts the credential and vector-store endpoints on mux.
func (s *Server) registerAPI(mux *http.ServeMux) {
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, s.traced(name, h))
	}
	cb, vb := gatewayapi.CredentialsBase, gatewayapi.VectorStoresBase

	route("GET "+cb+"/providers", "CredentialProviders", s.handleCredentialProviders)
	route("GET "+cb+"/providers/{type}/auth-types", "AuthTypes", s.handleAuthTypes)
	route("GET "+cb+"/providers/{type}/schema/{auth}", "CredentialSchema", s.handleCredentialSchema)
	route("GET "+cb+"/for-provider/{type}", "CredentialsFor", s.handleCredentialsFor)
	route("GET "+cb, "ListCredentials", s.handleListCredentials)
	route("GET "+cb+"/{$}", "ListCredentials", s.handleListCredentials)
	route("GET "+cb+"/{id}", "Credential", s.handleCredential)
	route("POST "+cb+"/test", "TestCredential", s.handleTestCredential)
	route("POST "+cb, "CreateCredential", s.handleCreateCredential)
	route("POST "+cb+"/{$}", "CreateCredential", s.handleCreateCredential)

	route("GET "+vb+"/providers/categories", "VectorStoreCategories", s.handleCategories)
	route("GET "+vb+"/providers/{type}/schema", "VectorStoreSchema", s.handleVectorStoreSchema)
	route("POST "+vb+"/providers/test-connection", "TestConnection", s.handleTestConnection)
	route("GET "+vb, "ListVectorStores", s.handleListVectorStores)
	route("GET "+vb+"/{$}", "ListVectorStores", s.handleListVectorStores)
	route("POST "+vb, "CreateVectorStore", s.handleCreateVectorStore)
	route("POST "+vb+"/{$}", "CreateVectorStore", s.handleCreateVectorStore)

	route("GET "+gatewayapi.StatusPath, "Status", s.handleStatus)
	route("GET "+gatewayapi.MetricsPath, "Metrics", s.handleMetrics)
}

func (s *Server) traced(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.StartSpan(r.Context(), "gateway.server."+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(tracer.StringAttr("http.route", r.Pattern)),
		)
		defer span.End()
		h(w, r.WithContext(ctx))
	})
}

func (s *Server) handleCredentialProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gatewayapi.ProvidersResponse{
		Envelope:  ok(""),
		Providers: s.svc.CredentialProviders(),
	})
}

func (s *Server) handleAuthTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.AuthTypes(r.PathValue("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.AuthTypesResponse{Envelope: ok(""), AuthTypes: types})
}

func (s *Server) handleCredentialSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.svc.CredentialSchema(r.PathValue("type"), r.PathValue("auth"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse(schema))
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gatewayapi.CategoriesResponse{
		Envelope:   ok(""),
		Categories: s.svc.VectorStoreCategories(),
	})
}

func (s *Server) handleVectorStoreSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.svc.VectorStoreSchema(r.PathValue("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse(schema))
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.svc.ListCredentials(r.Context(), r.URL.Query().Get("provider_type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.CredentialsResponse{Envelope: ok(""), Credentials: creds})
}

func (s *Server) handleCredentialsFor(w http.ResponseWriter, r *http.Request) {
	creds, err := s.svc.CredentialsFor(r.Context(), r.PathValue("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.CredentialsResponse{Envelope: ok(""), Credentials: creds})
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, fail("Credential not found"))
		return
	}
	c, err := s.svc.Credential(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.CredentialResponse{
		Envelope: ok(""),
		Credential: gatewayapi.CredentialDetail{
			CredentialSummary: c.Summary(),
			Config:            c.Config,
			CreatedAt:         c.CreatedAt,
		},
	})
}

func (s *Server) handleListVectorStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.svc.VectorStores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]gatewayapi.VectorStoreDetail, 0, len(stores))
	for _, v := range stores {
		out = append(out, vectorStoreDetail(v))
	}
	writeJSON(w, http.StatusOK, gatewayapi.VectorStoresResponse{Envelope: ok(""), VectorStores: out})
}

func (s *Server) handleTestCredential(w http.ResponseWriter, r *http.Request) {
	var req gatewayapi.TestCredentialRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.TestCredential(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.Envelope{Success: res.Success, Message: res.Message})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req gatewayapi.TestConnectionRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.TestConnection(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewayapi.Envelope{Success: res.Success, Message: res.Message})
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var p domain.CredentialPayload
	if !decode(w, r, &p) {
		return
	}
	c, err := s.svc.CreateCredential(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gatewayapi.CreateResponse{
		Envelope:     ok(MsgCredentialCreated),
		CredentialID: c.ID,
	})
}

func (s *Server) handleCreateVectorStore(w http.ResponseWriter, r *http.Request) {
	var p domain.VectorStorePayload
	if !decode(w, r, &p) {
		return
	}
	v, err := s.svc.CreateVectorStore(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gatewayapi.CreateResponse{
		Envelope:      ok(MsgVectorStoreCreated),
		VectorStoreID: v.ID,
	})
}

func schemaResponse(schema domain.Schema) gatewayapi.SchemaResponse {
	resp := gatewayapi.SchemaResponse{
		Envelope:   ok(schema.Message),
		Schema:     gatewayapi.SchemaBody{Fields: make([]domain.RawField, 0, len(schema.Fields))},
		ComingSoon: schema.ComingSoon,
	}
	for _, f := range schema.Fields {
		resp.Schema.Fields = append(resp.Schema.Fields, f.Raw())
	}
	return resp
}

func vectorStoreDetail(v store.VectorStore) gatewayapi.VectorStoreDetail {
	return gatewayapi.VectorStoreDetail{
		ID:           v.ID,
		DisplayName:  v.Name,
		ProviderType: v.ProviderType,
		CredentialID: v.CredentialID,
		Description:  v.Description,
		Config:       v.Config,
		CreatedAt:    v.CreatedAt,
	}
}

// writeError maps a service error to a status code and a failure envelope.
// Business rejections carry a message the wizard can show as is.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("gateway request failed",
			"path", r.URL.Path,
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		writeJSON(w, status, fail("Internal server error"))
		return
	}
	s.logger.Debug("gateway request rejected", "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, fail(messageFor(err)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrConfigInvalid),
		errors.Is(err, domain.ErrComingSoon):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrConfigInvalid):
		return strings.TrimPrefix(msg, domain.ErrConfigInvalid.Error()+": ")
	case errors.Is(err, domain.ErrComingSoon):
		return catalog.ComingSoonMessage(strings.TrimPrefix(msg, domain.ErrComingSoon.Error()+": "))
	}
	return msg
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, fail("Invalid request body"))
		return false
	}
	return true
}

func ok(msg string) gatewayapi.Envelope {
	return gatewayapi.Envelope{Success: true, Message: msg}
}

func fail(msg string) gatewayapi.Envelope {
	return gatewayapi.Envelope{Success: false, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
