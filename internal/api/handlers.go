package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"hairdash/internal/analytics"
	"hairdash/internal/blob"
	"hairdash/internal/circuit"
	"hairdash/internal/identity"
	"hairdash/internal/metrics"
	"hairdash/internal/middleware"
	"hairdash/internal/models"
	"hairdash/internal/store"
	"hairdash/internal/validation"
	"hairdash/internal/vision"
)

const (
	DegradedHeader = "X-Data-Degraded"
	maxBodyBytes   = 1 << 20
)

// AnalyticsStore is the read-only aggregate surface the dashboard endpoints use.
type AnalyticsStore interface {
	DashboardTotals(ctx context.Context, since time.Time) (store.DashboardTotals, error)
	DailyConversations(ctx context.Context, since time.Time) ([]store.DailyConversations, error)
	TopConcerns(ctx context.Context, since time.Time, limit int) ([]store.ConcernCount, error)

	CostByDayAndModel(ctx context.Context, since time.Time) ([]store.CostRow, error)

	ModelStats(ctx context.Context, since time.Time, model string) ([]store.ModelStats, error)
	ModelTrends(ctx context.Context, since time.Time, model string) ([]store.ModelTrendRow, error)
	ModelErrors(ctx context.Context, since time.Time, model string) ([]store.ModelErrorRow, error)

	ConversationTotals(ctx context.Context, since time.Time) (store.ConversationTotals, error)
	TopicDistribution(ctx context.Context, since time.Time) ([]store.TopicCount, error)
	HourlyActivity(ctx context.Context, since time.Time) ([]store.HourCount, error)
	OutcomeTrends(ctx context.Context, since time.Time) ([]store.OutcomeRow, error)

	TopicTotals(ctx context.Context, since time.Time, topic string) (store.TopicTotals, error)
	TopicConcerns(ctx context.Context, since time.Time, topic string, limit int) ([]store.ConcernCount, error)
	TopicProducts(ctx context.Context, since time.Time, topic string, limit int) ([]store.ProductFunnel, error)
	TopicDailyVolume(ctx context.Context, since time.Time, topic string) ([]store.DailyCount, error)

	ConcernTotals(ctx context.Context, since time.Time, concern string) (store.ConcernTotals, error)
	ConcernBreakdown(ctx context.Context, since time.Time, concern string) ([]store.ConcernStats, error)
	ConcernTrends(ctx context.Context, since time.Time, concern string) ([]store.ConcernTrendRow, error)

	ServiceStats(ctx context.Context, since time.Time) ([]store.ServiceStats, error)
	LatencyTrend(ctx context.Context, since time.Time, granularity string) ([]store.LatencyBucket, error)

	RecommendationTotals(ctx context.Context, since time.Time) (store.RecommendationTotals, error)
	RecommendationFunnel(ctx context.Context, since time.Time, limit int) ([]store.ProductFunnel, error)
}

// CatalogStore holds the entities the chatbot reads: products, testimonials,
// bot instructions, plus the webhook subscriptions notified when they change.
type CatalogStore interface {
	ListProducts(ctx context.Context, page, pageSize int, f store.ProductFilters) (*store.ProductPage, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListTestimonials(ctx context.Context, featured *bool) ([]models.Testimonial, error)
	CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error)
	UpdateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error)
	DeleteTestimonial(ctx context.Context, id string) error

	ListInstructions(ctx context.Context, active *bool) ([]models.BotInstruction, error)
	CreateInstruction(ctx context.Context, b models.BotInstruction) (models.BotInstruction, error)
	UpdateInstruction(ctx context.Context, b models.BotInstruction) (models.BotInstruction, error)
	DeleteInstruction(ctx context.Context, id string) error

	ListWebhooks(ctx context.Context) ([]models.Webhook, error)
	CreateWebhook(ctx context.Context, url string, events []string, secret string) (models.Webhook, error)
	DeleteWebhook(ctx context.Context, id int) error
}

type Store interface {
	AnalyticsStore
	CatalogStore
	Ping(ctx context.Context) error
}

type TeamDirectory interface {
	ListMembers(ctx context.Context) ([]identity.Member, error)
	Invite(ctx context.Context, email, role string) (identity.Member, error)
	Update(ctx context.Context, id, role, status string) (identity.Member, error)
	Remove(ctx context.Context, id string) error
}

type ObjectStore interface {
	Put(ctx context.Context, pathname, contentType string, size int64, body io.Reader) (blob.Object, error)
}

type Assistant interface {
	AnalyzeHair(ctx context.Context, imageURL string) (vision.HairAnalysis, error)
	ExtractProduct(ctx context.Context, text string) (vision.ProductDraft, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, scope, caller string) (bool, error)
	Acquire(ctx context.Context, scope, caller string) (bool, error)
	Release(ctx context.Context, scope, caller string)
}

type Notifier interface {
	Fire(ctx context.Context, eventType string, data interface{})
}

type Server struct {
	Store          Store
	Team           TeamDirectory
	Blob           ObjectStore
	AI             Assistant
	Limiter        RateLimiter
	Webhooks       Notifier
	Circuits       *circuit.Set
	Logger         *zap.Logger
	Auth           func(http.Handler) http.Handler
	Production     bool
	MaxUploadBytes int64

	// Now and Rand are replaceable in tests.
	Now  func() time.Time
	Rand analytics.Source
}

// Routes mounts the health probes and the guarded /api surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.Health)
	r.Get("/readyz", s.Readyz)

	r.Route("/api", func(r chi.Router) {
		if s.Auth != nil {
			r.Use(s.Auth)
		}

		r.Get("/dashboard-metrics", s.DashboardMetrics)
		r.Get("/cost-analytics", s.CostAnalytics)
		r.Get("/ai-model-performance", s.ModelPerformance)
		r.Get("/conversation-intelligence", s.ConversationIntelligence)
		r.Get("/topic-insights", s.TopicInsights)
		r.Get("/hair-concerns", s.HairConcerns)
		r.Get("/system-health", s.SystemHealth)
		r.Get("/recommendation-performance", s.RecommendationPerformance)

		r.Get("/products", s.ListProducts)
		r.Post("/products", s.CreateProduct)
		r.Post("/products/extract", s.ExtractProduct)
		r.Get("/products/{id}", s.GetProduct)
		r.Put("/products/{id}", s.UpdateProduct)
		r.Delete("/products/{id}", s.DeleteProduct)

		r.Get("/testimonials", s.ListTestimonials)
		r.Post("/testimonials", s.CreateTestimonial)
		r.Put("/testimonials/{id}", s.UpdateTestimonial)
		r.Delete("/testimonials/{id}", s.DeleteTestimonial)

		r.Get("/bot-instructions", s.ListInstructions)
		r.Post("/bot-instructions", s.CreateInstruction)
		r.Put("/bot-instructions", s.UpdateInstruction)
		r.Delete("/bot-instructions", s.DeleteInstruction)

		r.Get("/webhooks", s.ListWebhooks)
		r.Post("/webhooks", s.CreateWebhook)
		r.Delete("/webhooks/{id}", s.DeleteWebhook)

		r.Get("/team", s.ListTeam)
		r.Post("/team", s.InviteMember)
		r.Patch("/team/{id}", s.UpdateMember)
		r.Delete("/team/{id}", s.RemoveMember)

		r.Post("/upload", s.Upload)
		r.Post("/analyze-image", s.AnalyzeImage)
	})
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		s.log(r).Warn("readiness check failed", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) log(r *http.Request) *zap.Logger {
	l := s.Logger
	if l == nil {
		l = zap.NewNop()
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l
}

// observe returns the Gather observer for one analytics endpoint.
func (s *Server) observe(r *http.Request, endpoint string) analytics.Observer {
	logger := s.log(r)
	return func(o analytics.Outcome) {
		metrics.QueryDurationMS.WithLabelValues(endpoint, o.Name).Observe(float64(o.Duration.Milliseconds()))
		if o.Policy != analytics.PolicyNone {
			metrics.FallbacksTotal.WithLabelValues(endpoint, o.Name, string(o.Policy)).Inc()
		}
		if o.Err != nil {
			logger.Warn("analytics query failed",
				zap.String("endpoint", endpoint),
				zap.String("query", o.Name),
				zap.String("policy", string(o.Policy)),
				zap.Error(o.Err))
		}
	}
}

// writeAnalytics always answers 200; failed sub-queries are only named in a header.
func writeAnalytics(w http.ResponseWriter, report analytics.Report, v interface{}) {
	if failed := report.Failed(); len(failed) > 0 {
		w.Header().Set(DegradedHeader, strings.Join(failed, ","))
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, v)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the uniform error body. err is logged, and exposed as
// details only outside production.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string, err error) {
	resp := models.ErrorResponse{Error: msg, Code: code}
	if err != nil && !s.Production {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.log(r).Error(msg, zap.String("code", code), zap.Int("status", status), zap.Error(err))
	}
	writeJSONStatus(w, status, resp)
}

func (s *Server) writeValidation(w http.ResponseWriter, err error) {
	resp := models.ErrorResponse{Error: err.Error(), Code: "validation_error"}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}
	writeJSONStatus(w, http.StatusBadRequest, resp)
}

// writeStoreError maps store sentinels onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, entity string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "not_found", entity+" not found", nil)
	case errors.Is(err, store.ErrDuplicate):
		s.writeError(w, r, http.StatusConflict, "duplicate", entity+" already exists", nil)
	default:
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to process "+entity, err)
	}
}

// decode reads a JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid json", err)
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		s.writeValidation(w, err)
		return false
	}
	return true
}

func (s *Server) notify(ctx context.Context, event string, data interface{}) {
	if s.Webhooks != nil {
		s.Webhooks.Fire(ctx, event, data)
	}
}
