package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hairdash/internal/blob"
	"hairdash/internal/identity"
	"hairdash/internal/metrics"
	"hairdash/internal/middleware"
	"hairdash/internal/vision"
)

// ---- Team ----

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin editor viewer"`
}

type memberUpdateRequest struct {
	Role   string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
	Status string `json:"status" validate:"omitempty,oneof=active suspended"`
}

func (s *Server) teamReady(w http.ResponseWriter, r *http.Request) bool {
	if s.Team == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_configured", "identity provider is not configured", nil)
		return false
	}
	return !s.upstreamOpen(w, r, "identity")
}

// upstreamOpen rejects the request while the service's circuit is open.
func (s *Server) upstreamOpen(w http.ResponseWriter, r *http.Request, service string) bool {
	if s.Circuits == nil || s.Circuits.For(service).Allow() {
		return false
	}
	metrics.UpstreamTotal.WithLabelValues(service, "rejected").Inc()
	s.writeError(w, r, http.StatusServiceUnavailable, "upstream_unavailable", service+" is temporarily unavailable", nil)
	return true
}

// upstreamDone records the call outcome. A missing member is a valid answer,
// not an outage.
func (s *Server) upstreamDone(service string, err error) {
	ok := err == nil || errors.Is(err, identity.ErrNotFound)
	status := "ok"
	if !ok {
		status = "error"
	}
	metrics.UpstreamTotal.WithLabelValues(service, status).Inc()
	if s.Circuits != nil {
		s.Circuits.For(service).Record(ok)
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, service string, err error) {
	if errors.Is(err, identity.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "member not found", nil)
		return
	}
	s.writeError(w, r, http.StatusBadGateway, "upstream_error", service+" request failed", err)
}

func (s *Server) ListTeam(w http.ResponseWriter, r *http.Request) {
	if !s.teamReady(w, r) {
		return
	}
	members, err := s.Team.ListMembers(r.Context())
	s.upstreamDone("identity", err)
	if err != nil {
		s.writeUpstreamError(w, r, "identity", err)
		return
	}
	writeJSON(w, members)
}

func (s *Server) InviteMember(w http.ResponseWriter, r *http.Request) {
	if !s.teamReady(w, r) {
		return
	}
	var payload inviteRequest
	if !s.decode(w, r, &payload) {
		return
	}
	m, err := s.Team.Invite(r.Context(), strings.ToLower(strings.TrimSpace(payload.Email)), payload.Role)
	s.upstreamDone("identity", err)
	if err != nil {
		s.writeUpstreamError(w, r, "identity", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

func (s *Server) UpdateMember(w http.ResponseWriter, r *http.Request) {
	if !s.teamReady(w, r) {
		return
	}
	var payload memberUpdateRequest
	if !s.decode(w, r, &payload) {
		return
	}
	if payload.Role == "" && payload.Status == "" {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "role or status is required", nil)
		return
	}
	m, err := s.Team.Update(r.Context(), chi.URLParam(r, "id"), payload.Role, payload.Status)
	s.upstreamDone("identity", err)
	if err != nil {
		s.writeUpstreamError(w, r, "identity", err)
		return
	}
	writeJSON(w, m)
}

func (s *Server) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if !s.teamReady(w, r) {
		return
	}
	err := s.Team.Remove(r.Context(), chi.URLParam(r, "id"))
	s.upstreamDone("identity", err)
	if err != nil {
		s.writeUpstreamError(w, r, "identity", err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

// ---- Upload ----

const multipartOverhead = 1 << 20

func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if s.Blob == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_configured", "object storage is not configured", nil)
		return
	}
	if s.upstreamOpen(w, r, "blob") {
		return
	}
	limit := s.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "file exceeds upload limit", nil)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "multipart field \"file\" is required", err)
		return
	}
	defer file.Close()
	if header.Size > limit {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "file exceeds upload limit", nil)
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "unreadable file", err)
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "only image uploads are allowed", nil)
		return
	}

	obj, err := s.Blob.Put(r.Context(), blob.Key(header.Filename), contentType, header.Size, io.MultiReader(bytes.NewReader(head), file))
	s.upstreamDone("blob", err)
	if err != nil {
		s.writeUpstreamError(w, r, "blob", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, obj)
}

// ---- Generative AI ----

type analyzeRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

type analyzeResponse struct {
	Analysis vision.HairAnalysis `json:"analysis"`
}

type extractRequest struct {
	Text string `json:"text" validate:"required,max=100000"`
}

// throttle applies the per-caller AI limits. When it returns true the caller
// must invoke release.
func (s *Server) throttle(w http.ResponseWriter, r *http.Request, scope string) (release func(), ok bool) {
	release = func() {}
	if s.Limiter == nil {
		return release, true
	}
	caller := r.RemoteAddr
	if a, found := middleware.AdminFromContext(r.Context()); found {
		caller = a.Key()
	}
	allowed, err := s.Limiter.Allow(r.Context(), scope, caller)
	if err != nil {
		s.log(r).Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
		return release, true
	}
	if !allowed {
		s.writeError(w, r, http.StatusTooManyRequests, "rate_limited", "rate limited", nil)
		return release, false
	}
	acquired, err := s.Limiter.Acquire(r.Context(), scope, caller)
	if err != nil {
		s.log(r).Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
		return release, true
	}
	if !acquired {
		s.writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many concurrent requests", nil)
		return release, false
	}
	ctx := r.Context()
	return func() { s.Limiter.Release(ctx, scope, caller) }, true
}

func (s *Server) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var payload analyzeRequest
	if !s.decode(w, r, &payload) {
		return
	}
	if s.upstreamOpen(w, r, "ai") {
		return
	}
	release, ok := s.throttle(w, r, "analyze")
	if !ok {
		return
	}
	defer release()

	analysis, err := s.AI.AnalyzeHair(r.Context(), payload.ImageURL)
	s.upstreamDone("ai", err)
	if err != nil {
		s.writeUpstreamError(w, r, "ai", err)
		return
	}
	writeJSON(w, analyzeResponse{Analysis: analysis})
}

func (s *Server) ExtractProduct(w http.ResponseWriter, r *http.Request) {
	var payload extractRequest
	if !s.decode(w, r, &payload) {
		return
	}
	if s.upstreamOpen(w, r, "ai") {
		return
	}
	release, ok := s.throttle(w, r, "extract")
	if !ok {
		return
	}
	defer release()

	draft, err := s.AI.ExtractProduct(r.Context(), payload.Text)
	s.upstreamDone("ai", err)
	if err != nil {
		s.writeUpstreamError(w, r, "ai", err)
		return
	}
	writeJSON(w, draft)
}
