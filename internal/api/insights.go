package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"hairdash/internal/analytics"
	"hairdash/internal/store"
	"hairdash/internal/timeframe"
)

const (
	relatedConcernLimit = 8
	productLimit        = 10
	funnelLimit         = 50
)

// ---- Conversation intelligence ----

type ConversationOverview struct {
	TotalConversations     int64   `json:"total_conversations"`
	CompletedConversations int64   `json:"completed_conversations"`
	AbandonedConversations int64   `json:"abandoned_conversations"`
	CompletionRate         float64 `json:"completion_rate"`
	AvgMessages            float64 `json:"avg_messages"`
	AvgDurationMinutes     float64 `json:"avg_duration_minutes"`
	AvgSatisfaction        float64 `json:"avg_satisfaction"`
}

type TopicShare struct {
	Topic           string  `json:"topic"`
	Count           int64   `json:"count"`
	Percentage      float64 `json:"percentage"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

type ConversationIntelligenceResponse struct {
	Overview          ConversationOverview `json:"overview"`
	TopicDistribution []TopicShare         `json:"topic_distribution"`
	HourlyActivity    []store.HourCount    `json:"hourly_activity"`
	OutcomeTrends     []store.OutcomeRow   `json:"outcome_trends"`
}

func (s *Server) ConversationIntelligence(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.Conversations.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)

	var (
		totals   store.ConversationTotals
		topics   []store.TopicCount
		hourly   []store.HourCount
		outcomes []store.OutcomeRow
	)
	report := analytics.Gather(r.Context(), s.observe(r, "conversation-intelligence"),
		analytics.Bind(&totals, analytics.Query[store.ConversationTotals]{
			Name:     "overview",
			Run:      func(ctx context.Context) (store.ConversationTotals, error) { return s.Store.ConversationTotals(ctx, win.Start) },
			Degraded: s.syntheticConversationTotals,
		}),
		analytics.Bind(&topics, analytics.Query[[]store.TopicCount]{
			Name:     "topic_distribution",
			Run:      func(ctx context.Context) ([]store.TopicCount, error) { return s.Store.TopicDistribution(ctx, win.Start) },
			Degraded: s.syntheticTopics,
		}),
		analytics.Bind(&hourly, analytics.Query[[]store.HourCount]{
			Name:     "hourly_activity",
			Run:      func(ctx context.Context) ([]store.HourCount, error) { return s.Store.HourlyActivity(ctx, win.Start) },
			Degraded: s.syntheticHourly,
		}),
		analytics.Bind(&outcomes, analytics.Query[[]store.OutcomeRow]{
			Name:     "outcome_trends",
			Run:      func(ctx context.Context) ([]store.OutcomeRow, error) { return s.Store.OutcomeTrends(ctx, win.Start) },
			Degraded: func() []store.OutcomeRow { return s.syntheticOutcomes(days) },
		}),
	)
	writeAnalytics(w, report, assembleConversations(days, totals, topics, hourly, outcomes))
}

func assembleConversations(days []string, t store.ConversationTotals, topics []store.TopicCount, hourly []store.HourCount, outcomes []store.OutcomeRow) ConversationIntelligenceResponse {
	var topicTotal int64
	for _, tc := range topics {
		topicTotal += tc.Count
	}
	shares := make([]TopicShare, 0, len(topics))
	for _, tc := range topics {
		shares = append(shares, TopicShare{
			Topic:           tc.Topic,
			Count:           tc.Count,
			Percentage:      analytics.Round2(analytics.Rate(float64(tc.Count), float64(topicTotal))),
			AvgSatisfaction: analytics.Round2(tc.AvgSatisfaction),
		})
	}

	hours := make([]store.HourCount, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for _, hc := range hourly {
		if hc.Hour >= 0 && hc.Hour < 24 {
			hours[hc.Hour].Conversations = hc.Conversations
		}
	}

	have := make(map[string]store.OutcomeRow, len(outcomes))
	for _, o := range outcomes {
		have[o.Date] = o
	}

	return ConversationIntelligenceResponse{
		Overview: ConversationOverview{
			TotalConversations:     t.Total,
			CompletedConversations: t.Completed,
			AbandonedConversations: t.Abandoned,
			CompletionRate:         analytics.Round2(analytics.Rate(float64(t.Completed), float64(t.Total))),
			AvgMessages:            analytics.Round2(t.AvgMessages),
			AvgDurationMinutes:     analytics.Round2(t.AvgDurationMinutes),
			AvgSatisfaction:        analytics.Round2(t.AvgSatisfaction),
		},
		TopicDistribution: shares,
		HourlyActivity:    hours,
		OutcomeTrends: analytics.FillDays(days, have, func(d string) store.OutcomeRow {
			return store.OutcomeRow{Date: d}
		}),
	}
}

// ---- Topic insights ----

type TopicOverview struct {
	Topic              string  `json:"topic"`
	TotalConversations int64   `json:"total_conversations"`
	UniqueUsers        int64   `json:"unique_users"`
	ConversionRate     float64 `json:"conversion_rate"`
	AvgSatisfaction    float64 `json:"avg_satisfaction"`
}

type ProductPerformance struct {
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Recommendations int64   `json:"recommendations"`
	Clicks          int64   `json:"clicks"`
	Purchases       int64   `json:"purchases"`
	ClickRate       float64 `json:"click_rate"`
	PurchaseRate    float64 `json:"purchase_rate"`
}

type TopicInsightsResponse struct {
	Overview            TopicOverview        `json:"overview"`
	RelatedConcerns     []ConcernShare       `json:"related_concerns"`
	RecommendedProducts []ProductPerformance `json:"recommended_products"`
	DailyVolume         []store.DailyCount   `json:"daily_volume"`
}

func (s *Server) TopicInsights(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.TopicInsights.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		topic = "all"
	}
	filter := topic
	if strings.EqualFold(topic, "all") {
		filter = ""
	}

	var (
		totals   store.TopicTotals
		concerns []store.ConcernCount
		products []store.ProductFunnel
		volume   []store.DailyCount
	)
	report := analytics.Gather(r.Context(), s.observe(r, "topic-insights"),
		analytics.Bind(&totals, analytics.Query[store.TopicTotals]{
			Name:     "overview",
			Run:      func(ctx context.Context) (store.TopicTotals, error) { return s.Store.TopicTotals(ctx, win.Start, filter) },
			Degraded: s.syntheticTopicTotals,
		}),
		analytics.Bind(&concerns, analytics.Query[[]store.ConcernCount]{
			Name: "related_concerns",
			Run: func(ctx context.Context) ([]store.ConcernCount, error) {
				return s.Store.TopicConcerns(ctx, win.Start, filter, relatedConcernLimit)
			},
			Degraded: func() []store.ConcernCount { return s.syntheticConcernCounts(relatedConcernLimit) },
		}),
		analytics.Bind(&products, analytics.Query[[]store.ProductFunnel]{
			Name: "recommended_products",
			Run: func(ctx context.Context) ([]store.ProductFunnel, error) {
				return s.Store.TopicProducts(ctx, win.Start, filter, productLimit)
			},
			Empty: func() []store.ProductFunnel { return []store.ProductFunnel{} },
		}),
		analytics.Bind(&volume, analytics.Query[[]store.DailyCount]{
			Name:     "daily_volume",
			Run:      func(ctx context.Context) ([]store.DailyCount, error) { return s.Store.TopicDailyVolume(ctx, win.Start, filter) },
			Degraded: func() []store.DailyCount { return s.syntheticDailyCounts(days) },
		}),
	)

	have := make(map[string]store.DailyCount, len(volume))
	for _, v := range volume {
		have[v.Date] = v
	}
	writeAnalytics(w, report, TopicInsightsResponse{
		Overview: TopicOverview{
			Topic:              topic,
			TotalConversations: totals.Conversations,
			UniqueUsers:        totals.Users,
			ConversionRate:     analytics.Round2(analytics.Rate(float64(totals.Converted), float64(totals.Conversations))),
			AvgSatisfaction:    analytics.Round2(totals.AvgSatisfaction),
		},
		RelatedConcerns:     concernShares(concerns),
		RecommendedProducts: productPerformance(products),
		DailyVolume: analytics.FillDays(days, have, func(d string) store.DailyCount {
			return store.DailyCount{Date: d}
		}),
	})
}

func productPerformance(rows []store.ProductFunnel) []ProductPerformance {
	out := make([]ProductPerformance, 0, len(rows))
	for _, f := range rows {
		out = append(out, ProductPerformance{
			ProductID:       f.ProductID,
			ProductName:     f.ProductName,
			Recommendations: f.Recommendations,
			Clicks:          f.Clicks,
			Purchases:       f.Purchases,
			ClickRate:       analytics.Round2(analytics.Rate(float64(f.Clicks), float64(f.Recommendations))),
			PurchaseRate:    analytics.Round2(analytics.Rate(float64(f.Purchases), float64(f.Recommendations))),
		})
	}
	return out
}

// ---- Hair concerns ----

type ConcernOverview struct {
	TotalReports     int64  `json:"total_reports"`
	UniqueUsers      int64  `json:"unique_users"`
	DistinctConcerns int64  `json:"distinct_concerns"`
	TopConcern       string `json:"top_concern"`
}

type ConcernDetail struct {
	Concern     string  `json:"concern"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"`
	AvgSeverity float64 `json:"avg_severity"`
}

type HairConcernsResponse struct {
	Overview         ConcernOverview         `json:"overview"`
	ConcernBreakdown []ConcernDetail         `json:"concern_breakdown"`
	ConcernTrends    []store.ConcernTrendRow `json:"concern_trends"`
}

func (s *Server) HairConcerns(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.HairConcerns.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)
	concern := strings.TrimSpace(r.URL.Query().Get("concern"))

	var (
		totals    store.ConcernTotals
		breakdown []store.ConcernStats
		trends    []store.ConcernTrendRow
	)
	report := analytics.Gather(r.Context(), s.observe(r, "hair-concerns"),
		analytics.Bind(&totals, analytics.Query[store.ConcernTotals]{
			Name:     "overview",
			Run:      func(ctx context.Context) (store.ConcernTotals, error) { return s.Store.ConcernTotals(ctx, win.Start, concern) },
			Degraded: func() store.ConcernTotals { return s.syntheticConcernTotals(concern) },
		}),
		analytics.Bind(&breakdown, analytics.Query[[]store.ConcernStats]{
			Name:     "concern_breakdown",
			Run:      func(ctx context.Context) ([]store.ConcernStats, error) { return s.Store.ConcernBreakdown(ctx, win.Start, concern) },
			Degraded: func() []store.ConcernStats { return s.syntheticConcernStats(concern) },
		}),
		analytics.Bind(&trends, analytics.Query[[]store.ConcernTrendRow]{
			Name:     "concern_trends",
			Run:      func(ctx context.Context) ([]store.ConcernTrendRow, error) { return s.Store.ConcernTrends(ctx, win.Start, concern) },
			Degraded: func() []store.ConcernTrendRow { return s.syntheticConcernTrends(days, concern) },
		}),
	)

	var total int64
	for _, b := range breakdown {
		total += b.Count
	}
	details := make([]ConcernDetail, 0, len(breakdown))
	for _, b := range breakdown {
		details = append(details, ConcernDetail{
			Concern:     b.Concern,
			Count:       b.Count,
			Percentage:  analytics.Round2(analytics.Rate(float64(b.Count), float64(total))),
			AvgSeverity: analytics.Round2(b.AvgSeverity),
		})
	}
	top := ""
	if len(details) > 0 {
		top = details[0].Concern
	}
	if trends == nil {
		trends = []store.ConcernTrendRow{}
	}
	writeAnalytics(w, report, HairConcernsResponse{
		Overview: ConcernOverview{
			TotalReports:     totals.Reports,
			UniqueUsers:      totals.Users,
			DistinctConcerns: totals.Distinct,
			TopConcern:       top,
		},
		ConcernBreakdown: details,
		ConcernTrends:    trends,
	})
}

// ---- System health ----

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDown     = "down"
	statusIdle     = "idle"
)

type HealthOverview struct {
	Status            string  `json:"status"`
	UptimePercentage  float64 `json:"uptime_percentage"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	ErrorRate         float64 `json:"error_rate"`
	TotalRequests     int64   `json:"total_requests"`
}

type ServiceHealth struct {
	Service      string  `json:"service"`
	Status       string  `json:"status"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

type LatencyPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Requests     int64     `json:"requests"`
	Errors       int64     `json:"errors"`
	AvgLatencyMS float64   `json:"avg_latency_ms"`
}

type SystemHealthResponse struct {
	Overview     HealthOverview  `json:"overview"`
	Services     []ServiceHealth `json:"services"`
	LatencyTrend []LatencyPoint  `json:"latency_trend"`
}

func serviceStatus(requests int64, successRate float64) string {
	switch {
	case requests == 0:
		return statusIdle
	case successRate >= 95:
		return statusHealthy
	case successRate >= 80:
		return statusDegraded
	default:
		return statusDown
	}
}

func (s *Server) SystemHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.SystemHealth.Resolve(r.URL.Query().Get("timeframe"), now)
	granularity, step := "hour", time.Hour
	if win.LookbackDays > 1 {
		granularity, step = "day", 24*time.Hour
	}

	var (
		services []store.ServiceStats
		latency  []store.LatencyBucket
	)
	report := analytics.Gather(r.Context(), s.observe(r, "system-health"),
		analytics.Bind(&services, analytics.Query[[]store.ServiceStats]{
			Name:     "services",
			Run:      func(ctx context.Context) ([]store.ServiceStats, error) { return s.Store.ServiceStats(ctx, win.Start) },
			Degraded: s.syntheticServices,
		}),
		analytics.Bind(&latency, analytics.Query[[]store.LatencyBucket]{
			Name: "latency_trend",
			Run: func(ctx context.Context) ([]store.LatencyBucket, error) {
				return s.Store.LatencyTrend(ctx, win.Start, granularity)
			},
			Degraded: func() []store.LatencyBucket { return s.syntheticLatency(win.Start, now, step) },
		}),
	)
	writeAnalytics(w, report, assembleHealth(services, latency))
}

func assembleHealth(services []store.ServiceStats, latency []store.LatencyBucket) SystemHealthResponse {
	var requests, successes int64
	var latencySum float64
	out := make([]ServiceHealth, 0, len(services))
	worst := statusIdle
	rank := map[string]int{statusIdle: 0, statusHealthy: 1, statusDegraded: 2, statusDown: 3}
	for _, st := range services {
		rate := analytics.Rate(float64(st.Successes), float64(st.Requests))
		status := serviceStatus(st.Requests, rate)
		if rank[status] > rank[worst] {
			worst = status
		}
		out = append(out, ServiceHealth{
			Service:      st.Service,
			Status:       status,
			SuccessRate:  analytics.Round2(rate),
			AvgLatencyMS: analytics.Round2(st.AvgLatencyMS),
		})
		requests += st.Requests
		successes += st.Successes
		latencySum += st.AvgLatencyMS * float64(st.Requests)
	}

	uptime := analytics.Rate(float64(successes), float64(requests))
	errorRate := 0.0
	if requests > 0 {
		errorRate = 100 - uptime
	}

	points := make([]LatencyPoint, 0, len(latency))
	for _, b := range latency {
		points = append(points, LatencyPoint{
			Timestamp:    b.Bucket.UTC(),
			Requests:     b.Requests,
			Errors:       b.Errors,
			AvgLatencyMS: analytics.Round2(b.AvgLatencyMS),
		})
	}

	return SystemHealthResponse{
		Overview: HealthOverview{
			Status:            worst,
			UptimePercentage:  analytics.Round2(uptime),
			AvgResponseTimeMS: analytics.Round2(analytics.Average(latencySum, requests)),
			ErrorRate:         analytics.Round2(errorRate),
			TotalRequests:     requests,
		},
		Services:     out,
		LatencyTrend: points,
	}
}

// ---- Recommendations ----

type RecommendationOverview struct {
	TotalRecommendations int64   `json:"total_recommendations"`
	ClickRate            float64 `json:"click_rate"`
	PurchaseRate         float64 `json:"purchase_rate"`
}

type RecommendationPerformanceResponse struct {
	Overview RecommendationOverview `json:"overview"`
	Products []ProductPerformance   `json:"products"`
}

func (s *Server) RecommendationPerformance(w http.ResponseWriter, r *http.Request) {
	win := timeframe.Recommendations.Resolve(r.URL.Query().Get("timeframe"), s.now())

	var (
		totals store.RecommendationTotals
		funnel []store.ProductFunnel
	)
	report := analytics.Gather(r.Context(), s.observe(r, "recommendation-performance"),
		analytics.Bind(&totals, analytics.Query[store.RecommendationTotals]{
			Name:     "overview",
			Run:      func(ctx context.Context) (store.RecommendationTotals, error) { return s.Store.RecommendationTotals(ctx, win.Start) },
			Degraded: s.syntheticRecommendationTotals,
		}),
		analytics.Bind(&funnel, analytics.Query[[]store.ProductFunnel]{
			Name: "products",
			Run: func(ctx context.Context) ([]store.ProductFunnel, error) {
				return s.Store.RecommendationFunnel(ctx, win.Start, funnelLimit)
			},
			Empty: func() []store.ProductFunnel { return []store.ProductFunnel{} },
		}),
	)
	writeAnalytics(w, report, RecommendationPerformanceResponse{
		Overview: RecommendationOverview{
			TotalRecommendations: totals.Recommendations,
			ClickRate:            analytics.Round2(analytics.Rate(float64(totals.Clicks), float64(totals.Recommendations))),
			PurchaseRate:         analytics.Round2(analytics.Rate(float64(totals.Purchases), float64(totals.Recommendations))),
		},
		Products: productPerformance(funnel),
	})
}
