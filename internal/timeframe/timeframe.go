package timeframe

import (
	"strings"
	"time"
)

const day = 24 * time.Hour

// Window is the lookback period an aggregation runs over.
type Window struct {
	Token        string
	LookbackDays int
	Start        time.Time
}

// Resolver maps symbolic timeframe tokens to lookback windows. Each endpoint
// owns its own vocabulary and default; resolution never fails.
type Resolver struct {
	vocabulary map[string]int
	fallback   string
}

// NewResolver panics if the default token is not part of the vocabulary or a
// lookback is not positive, so misconfigured endpoints fail at startup.
func NewResolver(vocabulary map[string]int, fallback string) Resolver {
	for token, days := range vocabulary {
		if days <= 0 {
			panic("timeframe: non-positive lookback for " + token)
		}
	}
	if _, ok := vocabulary[fallback]; !ok {
		panic("timeframe: default token " + fallback + " not in vocabulary")
	}
	vocab := make(map[string]int, len(vocabulary))
	for k, v := range vocabulary {
		vocab[k] = v
	}
	return Resolver{vocabulary: vocab, fallback: fallback}
}

func (r Resolver) Resolve(token string, now time.Time) Window {
	token = strings.ToLower(strings.TrimSpace(token))
	days, ok := r.vocabulary[token]
	if !ok {
		token = r.fallback
		days = r.vocabulary[token]
	}
	return Window{
		Token:        token,
		LookbackDays: days,
		Start:        now.UTC().Add(-time.Duration(days) * day),
	}
}

// Per-endpoint vocabularies. They differ on purpose; callers depend on the
// individual defaults.
var (
	DashboardMetrics = NewResolver(map[string]int{"24h": 1, "7d": 7, "30d": 30, "90d": 90}, "7d")
	CostAnalytics    = NewResolver(map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365}, "30d")
	ModelPerformance = NewResolver(map[string]int{"24h": 1, "7d": 7, "30d": 30}, "7d")
	Conversations    = NewResolver(map[string]int{"1d": 1, "7d": 7, "30d": 30, "90d": 90}, "30d")
	TopicInsights    = NewResolver(map[string]int{"7d": 7, "30d": 30, "90d": 90}, "7d")
	HairConcerns     = NewResolver(map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365}, "30d")
	SystemHealth     = NewResolver(map[string]int{"24h": 1, "7d": 7}, "24h")
	Recommendations  = NewResolver(map[string]int{"7d": 7, "30d": 30, "90d": 90}, "30d")
)
