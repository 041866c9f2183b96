package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestResolve_KnownTokens(t *testing.T) {
	tests := []struct {
		resolver Resolver
		token    string
		wantDays int
	}{
		{DashboardMetrics, "24h", 1},
		{DashboardMetrics, "90d", 90},
		{CostAnalytics, "1y", 365},
		{ModelPerformance, "30d", 30},
		{Conversations, "1d", 1},
		{SystemHealth, "7d", 7},
		{HairConcerns, " 7D ", 7},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			w := tt.resolver.Resolve(tt.token, fixedNow)
			assert.Equal(t, tt.wantDays, w.LookbackDays)
			assert.Equal(t, fixedNow.Add(-time.Duration(tt.wantDays)*24*time.Hour), w.Start)
		})
	}
}

func TestResolve_UnknownOrMissingFallsBackPerEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		resolver  Resolver
		wantToken string
		wantDays  int
	}{
		{"dashboard", DashboardMetrics, "7d", 7},
		{"cost", CostAnalytics, "30d", 30},
		{"models", ModelPerformance, "7d", 7},
		{"conversations", Conversations, "30d", 30},
		{"topics", TopicInsights, "7d", 7},
		{"concerns", HairConcerns, "30d", 30},
		{"health", SystemHealth, "24h", 1},
		{"recommendations", Recommendations, "30d", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, token := range []string{"", "banana", "14d", "-7d"} {
				w := tt.resolver.Resolve(token, fixedNow)
				assert.Equal(t, tt.wantToken, w.Token, "token %q", token)
				assert.Equal(t, tt.wantDays, w.LookbackDays, "token %q", token)
			}
		})
	}
}

func TestResolve_VocabularyIsPerEndpoint(t *testing.T) {
	// "1y" is valid for cost analytics but not for the dashboard.
	assert.Equal(t, 365, CostAnalytics.Resolve("1y", fixedNow).LookbackDays)
	assert.Equal(t, 7, DashboardMetrics.Resolve("1y", fixedNow).LookbackDays)
	// "1d" only exists for conversation intelligence.
	assert.Equal(t, 1, Conversations.Resolve("1d", fixedNow).LookbackDays)
	assert.Equal(t, 1, SystemHealth.Resolve("1d", fixedNow).LookbackDays)
	assert.Equal(t, 7, ModelPerformance.Resolve("1d", fixedNow).LookbackDays)
}

func TestResolve_AlwaysPositive(t *testing.T) {
	for _, r := range []Resolver{DashboardMetrics, CostAnalytics, ModelPerformance, Conversations, TopicInsights, HairConcerns, SystemHealth, Recommendations} {
		tokens := []string{"", "nope"}
		for token := range r.vocabulary {
			tokens = append(tokens, token)
		}
		for _, token := range tokens {
			w := r.Resolve(token, fixedNow)
			require.Positive(t, w.LookbackDays)
			require.True(t, w.Start.Before(fixedNow))
		}
	}
}

func TestResolve_EndpointDefaults(t *testing.T) {
	assert.Equal(t, "24h", SystemHealth.Resolve("", fixedNow).Token)
	assert.Equal(t, "30d", CostAnalytics.Resolve("", fixedNow).Token)
	assert.Equal(t, "7d", DashboardMetrics.Resolve("", fixedNow).Token)
}

func TestNewResolver_PanicsOnBadDefault(t *testing.T) {
	assert.Panics(t, func() { NewResolver(map[string]int{"7d": 7}, "30d") })
	assert.Panics(t, func() { NewResolver(map[string]int{"0d": 0}, "0d") })
}
