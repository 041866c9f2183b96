package api

import (
	"math"
	"strings"
	"time"

	"hairdash/internal/analytics"
	"hairdash/internal/store"
)

// Synthetic baselines served when the database cannot be reached. Every value
// is drawn fresh per request around a fixed baseline.

var (
	syntheticConcerns = []string{"frizz", "dryness", "breakage", "hair loss", "dandruff", "split ends"}
	syntheticTopics   = []string{"product recommendation", "routine advice", "hair analysis", "order support"}
)

type serviceBaseline struct {
	Service      string
	SuccessRate  float64
	AvgLatencyMS float64
	Requests     int64
}

var serviceBaselines = []serviceBaseline{
	{Service: "openai", SuccessRate: 99.2, AvgLatencyMS: 850, Requests: 1200},
	{Service: "google", SuccessRate: 98.8, AvgLatencyMS: 620, Requests: 400},
	{Service: "database", SuccessRate: 99.9, AvgLatencyMS: 45, Requests: 5000},
}

func (s *Server) rng() analytics.Source {
	if s.Rand != nil {
		return s.Rand
	}
	return analytics.DefaultSource
}

func (s *Server) syntheticDashboardTotals() store.DashboardTotals {
	src := s.rng()
	conv := analytics.AroundInt(src, 1250, 150)
	avg := analytics.Around(src, 1200, 300, 200, math.MaxFloat64)
	return store.DashboardTotals{
		Conversations: conv,
		ActiveUsers:   analytics.AroundInt(src, conv*2/5, 40),
		Converted:     int64(float64(conv) * analytics.Around(src, 0.18, 0.04, 0, 1)),
		Messages:      conv * analytics.AroundInt(src, 8, 2),
		AvgResponseMS: &avg,
	}
}

func (s *Server) syntheticDaily(days []string) []store.DailyConversations {
	src := s.rng()
	out := make([]store.DailyConversations, 0, len(days))
	for _, d := range days {
		conv := analytics.AroundInt(src, 180, 40)
		out = append(out, store.DailyConversations{Date: d, Conversations: conv, Users: conv * 3 / 5})
	}
	return out
}

func (s *Server) syntheticConcernCounts(limit int) []store.ConcernCount {
	src := s.rng()
	out := make([]store.ConcernCount, 0, limit)
	base := int64(320)
	for i, c := range syntheticConcerns {
		if i >= limit {
			break
		}
		out = append(out, store.ConcernCount{Concern: c, Count: analytics.AroundInt(src, base, base/10)})
		base = base * 3 / 4
	}
	return out
}

func (s *Server) syntheticCostRows(days []string) []store.CostRow {
	src := s.rng()
	out := make([]store.CostRow, 0, len(days)*len(analytics.DeployedModels))
	for _, d := range days {
		for _, m := range analytics.DeployedModels {
			req := analytics.AroundInt(src, 400, 80)
			tokens := req * analytics.AroundInt(src, 900, 200)
			out = append(out, store.CostRow{
				Date:     d,
				Model:    m,
				Requests: req,
				Tokens:   tokens,
				CostUSD:  analytics.EstimateCostUSD(m, tokens),
			})
		}
	}
	return out
}

func (s *Server) syntheticModelTrends(days, models []string) []store.ModelTrendRow {
	src := s.rng()
	out := make([]store.ModelTrendRow, 0, len(days)*len(models))
	for _, d := range days {
		for _, m := range models {
			req := analytics.AroundInt(src, 300, 60)
			rate := analytics.Around(src, 97, 3, 0, 100)
			out = append(out, store.ModelTrendRow{
				Date:         d,
				Model:        m,
				Requests:     req,
				Successes:    int64(math.Round(float64(req) * rate / 100)),
				AvgLatencyMS: analytics.Around(src, 850, 150, 1, math.MaxFloat64),
			})
		}
	}
	return out
}

func (s *Server) syntheticConversationTotals() store.ConversationTotals {
	src := s.rng()
	total := analytics.AroundInt(src, 1250, 150)
	completed := int64(float64(total) * analytics.Around(src, 0.72, 0.05, 0, 1))
	return store.ConversationTotals{
		Total:              total,
		Completed:          completed,
		Abandoned:          int64(float64(total-completed) * 0.6),
		AvgMessages:        analytics.Around(src, 8, 1.5, 1, math.MaxFloat64),
		AvgDurationMinutes: analytics.Around(src, 6.5, 1.5, 0.5, math.MaxFloat64),
		AvgSatisfaction:    analytics.Around(src, 4.3, 0.3, 1, 5),
	}
}

func (s *Server) syntheticTopics() []store.TopicCount {
	src := s.rng()
	out := make([]store.TopicCount, 0, len(syntheticTopics))
	base := int64(480)
	for _, t := range syntheticTopics {
		out = append(out, store.TopicCount{
			Topic:           t,
			Count:           analytics.AroundInt(src, base, base/10),
			AvgSatisfaction: analytics.Around(src, 4.2, 0.4, 1, 5),
		})
		base = base * 2 / 3
	}
	return out
}

// syntheticHourly follows a daytime curve peaking mid-afternoon UTC.
func (s *Server) syntheticHourly() []store.HourCount {
	src := s.rng()
	out := make([]store.HourCount, 24)
	for h := range out {
		curve := 60 + 50*math.Sin(float64(h-9)*math.Pi/12)
		out[h] = store.HourCount{Hour: h, Conversations: analytics.AroundInt(src, int64(curve), 10)}
	}
	return out
}

func (s *Server) syntheticOutcomes(days []string) []store.OutcomeRow {
	src := s.rng()
	out := make([]store.OutcomeRow, 0, len(days))
	for _, d := range days {
		out = append(out, store.OutcomeRow{
			Date:      d,
			Completed: analytics.AroundInt(src, 130, 25),
			Abandoned: analytics.AroundInt(src, 30, 10),
			Converted: analytics.AroundInt(src, 32, 8),
		})
	}
	return out
}

func (s *Server) syntheticTopicTotals() store.TopicTotals {
	src := s.rng()
	conv := analytics.AroundInt(src, 420, 60)
	return store.TopicTotals{
		Conversations:   conv,
		Users:           conv * 3 / 4,
		Converted:       int64(float64(conv) * analytics.Around(src, 0.2, 0.05, 0, 1)),
		AvgSatisfaction: analytics.Around(src, 4.3, 0.3, 1, 5),
	}
}

func (s *Server) syntheticDailyCounts(days []string) []store.DailyCount {
	src := s.rng()
	out := make([]store.DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, store.DailyCount{Date: d, Count: analytics.AroundInt(src, 60, 15)})
	}
	return out
}

// syntheticConcernSet narrows the fallback concerns to the requested filter.
func syntheticConcernSet(concern string) []string {
	if concern == "" {
		return syntheticConcerns
	}
	return []string{strings.ToLower(concern)}
}

func (s *Server) syntheticConcernTotals(concern string) store.ConcernTotals {
	src := s.rng()
	set := syntheticConcernSet(concern)
	reports := analytics.AroundInt(src, 150*int64(len(set)), 20*int64(len(set)))
	return store.ConcernTotals{
		Reports:  reports,
		Users:    reports * 2 / 3,
		Distinct: int64(len(set)),
	}
}

func (s *Server) syntheticConcernStats(concern string) []store.ConcernStats {
	src := s.rng()
	set := syntheticConcernSet(concern)
	out := make([]store.ConcernStats, 0, len(set))
	base := int64(320)
	for _, c := range set {
		out = append(out, store.ConcernStats{
			Concern:     c,
			Count:       analytics.AroundInt(src, base, base/10),
			AvgSeverity: analytics.Around(src, 2.8, 0.8, 1, 5),
		})
		base = base * 3 / 4
	}
	return out
}

func (s *Server) syntheticConcernTrends(days []string, concern string) []store.ConcernTrendRow {
	src := s.rng()
	set := syntheticConcernSet(concern)
	if len(set) > 3 {
		set = set[:3]
	}
	out := make([]store.ConcernTrendRow, 0, len(days)*len(set))
	for _, d := range days {
		for _, c := range set {
			out = append(out, store.ConcernTrendRow{Date: d, Concern: c, Count: analytics.AroundInt(src, 25, 8)})
		}
	}
	return out
}

// syntheticServices applies up to ten success-rate points and 100ms of jitter
// to each service baseline.
func (s *Server) syntheticServices() []store.ServiceStats {
	src := s.rng()
	out := make([]store.ServiceStats, 0, len(serviceBaselines))
	for _, b := range serviceBaselines {
		rate := analytics.Around(src, b.SuccessRate, 10, 0, 100)
		req := analytics.AroundInt(src, b.Requests, b.Requests/10)
		out = append(out, store.ServiceStats{
			Service:      b.Service,
			Requests:     req,
			Successes:    int64(math.Round(float64(req) * rate / 100)),
			AvgLatencyMS: analytics.Around(src, b.AvgLatencyMS, 100, 1, math.MaxFloat64),
		})
	}
	return out
}

func (s *Server) syntheticLatency(start, end time.Time, step time.Duration) []store.LatencyBucket {
	src := s.rng()
	var out []store.LatencyBucket
	for t := start.UTC().Truncate(step); !t.After(end); t = t.Add(step) {
		req := analytics.AroundInt(src, 250, 50)
		out = append(out, store.LatencyBucket{
			Bucket:       t,
			Requests:     req,
			Errors:       analytics.AroundInt(src, 3, 3),
			AvgLatencyMS: analytics.Around(src, 750, 100, 1, math.MaxFloat64),
		})
	}
	return out
}

func (s *Server) syntheticRecommendationTotals() store.RecommendationTotals {
	src := s.rng()
	recs := analytics.AroundInt(src, 2400, 300)
	clicks := int64(float64(recs) * analytics.Around(src, 0.35, 0.05, 0, 1))
	return store.RecommendationTotals{
		Recommendations: recs,
		Clicks:          clicks,
		Purchases:       int64(float64(clicks) * analytics.Around(src, 0.25, 0.05, 0, 1)),
	}
}
