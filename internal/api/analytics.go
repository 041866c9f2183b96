package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"hairdash/internal/analytics"
	"hairdash/internal/store"
	"hairdash/internal/timeframe"
)

// avgResponseFallbackSeconds is reported when no conversation recorded a response time.
const avgResponseFallbackSeconds = 1.2

const topConcernLimit = 5

// ---- Dashboard ----

type DashboardOverview struct {
	TotalConversations         int64   `json:"totalConversations"`
	ActiveUsers                int64   `json:"activeUsers"`
	ConversionRate             float64 `json:"conversionRate"`
	AvgResponseTime            float64 `json:"avgResponseTime"`
	AvgMessagesPerConversation float64 `json:"avgMessagesPerConversation"`
}

type ConcernShare struct {
	Concern    string  `json:"concern"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type DashboardMetricsResponse struct {
	Overview           DashboardOverview          `json:"overview"`
	DailyConversations []store.DailyConversations `json:"dailyConversations"`
	TopConcerns        []ConcernShare             `json:"topConcerns"`
}

func (s *Server) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.DashboardMetrics.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)

	var (
		totals   store.DashboardTotals
		daily    []store.DailyConversations
		concerns []store.ConcernCount
	)
	report := analytics.Gather(r.Context(), s.observe(r, "dashboard-metrics"),
		analytics.Bind(&totals, analytics.Query[store.DashboardTotals]{
			Name:     "overview",
			Run:      func(ctx context.Context) (store.DashboardTotals, error) { return s.Store.DashboardTotals(ctx, win.Start) },
			Degraded: s.syntheticDashboardTotals,
		}),
		analytics.Bind(&daily, analytics.Query[[]store.DailyConversations]{
			Name:     "daily_conversations",
			Run:      func(ctx context.Context) ([]store.DailyConversations, error) { return s.Store.DailyConversations(ctx, win.Start) },
			Degraded: func() []store.DailyConversations { return s.syntheticDaily(days) },
		}),
		analytics.Bind(&concerns, analytics.Query[[]store.ConcernCount]{
			Name: "top_concerns",
			Run: func(ctx context.Context) ([]store.ConcernCount, error) {
				return s.Store.TopConcerns(ctx, win.Start, topConcernLimit)
			},
			Degraded: func() []store.ConcernCount { return s.syntheticConcernCounts(topConcernLimit) },
		}),
	)
	writeAnalytics(w, report, assembleDashboard(days, totals, daily, concerns))
}

func assembleDashboard(days []string, t store.DashboardTotals, daily []store.DailyConversations, concerns []store.ConcernCount) DashboardMetricsResponse {
	avgResponse := avgResponseFallbackSeconds
	if t.AvgResponseMS != nil {
		avgResponse = analytics.Round2(*t.AvgResponseMS / 1000)
	}
	have := make(map[string]store.DailyConversations, len(daily))
	for _, d := range daily {
		have[d.Date] = d
	}
	return DashboardMetricsResponse{
		Overview: DashboardOverview{
			TotalConversations:         t.Conversations,
			ActiveUsers:                t.ActiveUsers,
			ConversionRate:             analytics.Round2(analytics.Rate(float64(t.Converted), float64(t.Conversations))),
			AvgResponseTime:            avgResponse,
			AvgMessagesPerConversation: analytics.Round2(analytics.Average(float64(t.Messages), t.Conversations)),
		},
		DailyConversations: analytics.FillDays(days, have, func(d string) store.DailyConversations {
			return store.DailyConversations{Date: d}
		}),
		TopConcerns: concernShares(concerns),
	}
}

func concernShares(rows []store.ConcernCount) []ConcernShare {
	var total int64
	for _, c := range rows {
		total += c.Count
	}
	out := make([]ConcernShare, 0, len(rows))
	for _, c := range rows {
		out = append(out, ConcernShare{
			Concern:    c.Concern,
			Count:      c.Count,
			Percentage: analytics.Round2(analytics.Rate(float64(c.Count), float64(total))),
		})
	}
	return out
}

// ---- Cost ----

type CostSummary struct {
	TotalCost            float64 `json:"total_cost"`
	TotalRequests        int64   `json:"total_requests"`
	TotalTokens          int64   `json:"total_tokens"`
	AvgCostPerRequest    float64 `json:"avg_cost_per_request"`
	ProjectedMonthlyCost float64 `json:"projected_monthly_cost"`
	Days                 int     `json:"days"`
}

type ModelCost struct {
	Model          string  `json:"model"`
	Requests       int64   `json:"requests"`
	Tokens         int64   `json:"tokens"`
	Cost           float64 `json:"cost"`
	CostPercentage float64 `json:"cost_percentage"`
}

type DailyCost struct {
	Date      string  `json:"date"`
	DailyCost float64 `json:"daily_cost"`
	Requests  int64   `json:"requests"`
	Tokens    int64   `json:"tokens"`
}

type CostAnalyticsResponse struct {
	PeriodSummary  CostSummary `json:"period_summary"`
	ModelBreakdown []ModelCost `json:"model_breakdown"`
	DailyBreakdown []DailyCost `json:"daily_breakdown"`
}

func (s *Server) CostAnalytics(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.CostAnalytics.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)

	var rows []store.CostRow
	report := analytics.Gather(r.Context(), s.observe(r, "cost-analytics"),
		analytics.Bind(&rows, analytics.Query[[]store.CostRow]{
			Name:     "cost_rows",
			Run:      func(ctx context.Context) ([]store.CostRow, error) { return s.Store.CostByDayAndModel(ctx, win.Start) },
			Degraded: func() []store.CostRow { return s.syntheticCostRows(days) },
		}),
	)
	writeAnalytics(w, report, assembleCost(win, days, rows))
}

// assembleCost derives both breakdowns from the same rows; total_cost is the
// sum of the daily costs. Rows dated outside the window are ignored by both.
func assembleCost(win timeframe.Window, days []string, rows []store.CostRow) CostAnalyticsResponse {
	inWindow := make(map[string]bool, len(days))
	for _, d := range days {
		inWindow[d] = true
	}
	byDay := make(map[string]DailyCost, len(days))
	byModel := map[string]*ModelCost{}
	for _, row := range rows {
		if !inWindow[row.Date] {
			continue
		}
		cost := row.CostUSD + analytics.EstimateCostUSD(row.Model, row.UncostedTokens)

		d := byDay[row.Date]
		d.Date = row.Date
		d.DailyCost += cost
		d.Requests += row.Requests
		d.Tokens += row.Tokens
		byDay[row.Date] = d

		m, ok := byModel[row.Model]
		if !ok {
			m = &ModelCost{Model: row.Model}
			byModel[row.Model] = m
		}
		m.Requests += row.Requests
		m.Tokens += row.Tokens
		m.Cost += cost
	}

	daily := analytics.FillDays(days, byDay, func(d string) DailyCost { return DailyCost{Date: d} })
	summary := CostSummary{Days: win.LookbackDays}
	for i := range daily {
		daily[i].DailyCost = analytics.Round4(daily[i].DailyCost)
		summary.TotalCost += daily[i].DailyCost
		summary.TotalRequests += daily[i].Requests
		summary.TotalTokens += daily[i].Tokens
	}
	summary.TotalCost = analytics.Round4(summary.TotalCost)
	summary.AvgCostPerRequest = analytics.Round4(analytics.Average(summary.TotalCost, summary.TotalRequests))
	summary.ProjectedMonthlyCost = analytics.Round2(analytics.Average(summary.TotalCost, int64(win.LookbackDays)) * 30)

	models := make([]ModelCost, 0, len(byModel))
	for _, m := range byModel {
		m.CostPercentage = analytics.Round2(analytics.Rate(m.Cost, summary.TotalCost))
		m.Cost = analytics.Round4(m.Cost)
		models = append(models, *m)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Cost != models[j].Cost {
			return models[i].Cost > models[j].Cost
		}
		return models[i].Model < models[j].Model
	})

	return CostAnalyticsResponse{PeriodSummary: summary, ModelBreakdown: models, DailyBreakdown: daily}
}

// ---- Model performance ----

type ModelPerformance struct {
	Model        string  `json:"model"`
	RequestCount int64   `json:"request_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
	AvgTokens    float64 `json:"avg_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

type ModelTrend struct {
	Date         string  `json:"date"`
	Model        string  `json:"model"`
	RequestCount int64   `json:"request_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

type ModelPerformanceResponse struct {
	CurrentPerformance []ModelPerformance    `json:"current_performance"`
	PerformanceTrends  []ModelTrend          `json:"performance_trends"`
	ErrorBreakdown     []store.ModelErrorRow `json:"error_breakdown"`
}

func (s *Server) ModelPerformance(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	win := timeframe.ModelPerformance.Resolve(r.URL.Query().Get("timeframe"), now)
	days := analytics.DaysBetween(win.Start, now)
	model := strings.TrimSpace(r.URL.Query().Get("model"))
	listed := analytics.DeployedModels
	if model != "" {
		listed = []string{model}
	}

	var (
		stats  []store.ModelStats
		trends []store.ModelTrendRow
		errs   []store.ModelErrorRow
	)
	// Current performance has no synthetic variant: on failure every listed
	// model is reported with zeros.
	report := analytics.Gather(r.Context(), s.observe(r, "ai-model-performance"),
		analytics.Bind(&stats, analytics.Query[[]store.ModelStats]{
			Name:  "current_performance",
			Run:   func(ctx context.Context) ([]store.ModelStats, error) { return s.Store.ModelStats(ctx, win.Start, model) },
			Empty: func() []store.ModelStats { return []store.ModelStats{} },
		}),
		analytics.Bind(&trends, analytics.Query[[]store.ModelTrendRow]{
			Name:     "performance_trends",
			Run:      func(ctx context.Context) ([]store.ModelTrendRow, error) { return s.Store.ModelTrends(ctx, win.Start, model) },
			Degraded: func() []store.ModelTrendRow { return s.syntheticModelTrends(days, listed) },
		}),
		analytics.Bind(&errs, analytics.Query[[]store.ModelErrorRow]{
			Name:  "error_breakdown",
			Run:   func(ctx context.Context) ([]store.ModelErrorRow, error) { return s.Store.ModelErrors(ctx, win.Start, model) },
			Empty: func() []store.ModelErrorRow { return []store.ModelErrorRow{} },
		}),
	)
	writeAnalytics(w, report, assembleModelPerformance(listed, stats, trends, errs))
}

// assembleModelPerformance lists every expected model first, zero-filled,
// followed by any other model that carried traffic.
func assembleModelPerformance(listed []string, stats []store.ModelStats, trends []store.ModelTrendRow, errs []store.ModelErrorRow) ModelPerformanceResponse {
	seen := make(map[string]store.ModelStats, len(stats))
	for _, st := range stats {
		seen[st.Model] = st
	}
	order := append([]string{}, listed...)
	var extra []string
	for _, st := range stats {
		if !containsString(listed, st.Model) {
			extra = append(extra, st.Model)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	current := make([]ModelPerformance, 0, len(order))
	for _, m := range order {
		st := seen[m]
		current = append(current, ModelPerformance{
			Model:        m,
			RequestCount: st.Requests,
			SuccessRate:  analytics.Round2(analytics.Rate(float64(st.Successes), float64(st.Requests))),
			AvgLatencyMS: analytics.Round2(st.AvgLatencyMS),
			P95LatencyMS: analytics.Round2(st.P95LatencyMS),
			AvgTokens:    analytics.Round2(analytics.Average(float64(st.Tokens), st.Requests)),
			TotalCost:    analytics.Round4(st.CostUSD),
		})
	}

	outTrends := make([]ModelTrend, 0, len(trends))
	for _, t := range trends {
		outTrends = append(outTrends, ModelTrend{
			Date:         t.Date,
			Model:        t.Model,
			RequestCount: t.Requests,
			SuccessRate:  analytics.Round2(analytics.Rate(float64(t.Successes), float64(t.Requests))),
			AvgLatencyMS: analytics.Round2(t.AvgLatencyMS),
		})
	}
	if errs == nil {
		errs = []store.ModelErrorRow{}
	}
	return ModelPerformanceResponse{CurrentPerformance: current, PerformanceTrends: outTrends, ErrorBreakdown: errs}
}

func containsString(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
