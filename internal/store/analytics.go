package store

import (
	"context"
	"time"
)

// ---- Dashboard ----

type DashboardTotals struct {
	Conversations int64
	ActiveUsers   int64
	Converted     int64
	Messages      int64
	// AvgResponseMS is nil when no conversation recorded a response time.
	AvgResponseMS *float64
}

type DailyConversations struct {
	Date          string `json:"date"`
	Conversations int64  `json:"conversations"`
	Users         int64  `json:"users"`
}

type ConcernCount struct {
	Concern string `json:"concern"`
	Count   int64  `json:"count"`
}

func (s *Store) DashboardTotals(ctx context.Context, since time.Time) (DashboardTotals, error) {
	var t DashboardTotals
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT user_id),
		       COUNT(*) FILTER (WHERE converted),
		       COALESCE(SUM(message_count), 0),
		       AVG(avg_response_ms)
		FROM conversations WHERE created_at >= $1
	`, since).Scan(&t.Conversations, &t.ActiveUsers, &t.Converted, &t.Messages, &t.AvgResponseMS)
	return t, err
}

func (s *Store) DailyConversations(ctx context.Context, since time.Time) ([]DailyConversations, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       COUNT(*),
		       COUNT(DISTINCT user_id)
		FROM conversations
		WHERE created_at >= $1
		GROUP BY day ORDER BY day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyConversations
	for rows.Next() {
		var d DailyConversations
		if err := rows.Scan(&d.Date, &d.Conversations, &d.Users); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) TopConcerns(ctx context.Context, since time.Time, limit int) ([]ConcernCount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT concern, COUNT(*) AS n
		FROM hair_issues
		WHERE created_at >= $1
		GROUP BY concern ORDER BY n DESC, concern LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcernCount
	for rows.Next() {
		var c ConcernCount
		if err := rows.Scan(&c.Concern, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- Cost ----

type CostRow struct {
	Date     string
	Model    string
	Requests int64
	Tokens   int64
	CostUSD  float64
	// UncostedTokens counts tokens from requests with no recorded cost.
	UncostedTokens int64
}

func (s *Store) CostByDayAndModel(ctx context.Context, since time.Time) ([]CostRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       model,
		       COUNT(*),
		       COALESCE(SUM(prompt_tokens + completion_tokens), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COALESCE(SUM(prompt_tokens + completion_tokens) FILTER (WHERE cost_usd IS NULL), 0)
		FROM model_requests
		WHERE created_at >= $1
		GROUP BY day, model ORDER BY day, model
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CostRow
	for rows.Next() {
		var c CostRow
		if err := rows.Scan(&c.Date, &c.Model, &c.Requests, &c.Tokens, &c.CostUSD, &c.UncostedTokens); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- Model performance ----

type ModelStats struct {
	Model        string
	Requests     int64
	Successes    int64
	AvgLatencyMS float64
	P95LatencyMS float64
	Tokens       int64
	CostUSD      float64
}

type ModelTrendRow struct {
	Date         string
	Model        string
	Requests     int64
	Successes    int64
	AvgLatencyMS float64
}

type ModelErrorRow struct {
	Model     string `json:"model"`
	ErrorType string `json:"error_type"`
	Count     int64  `json:"count"`
}

func (s *Store) ModelStats(ctx context.Context, since time.Time, model string) ([]ModelStats, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT model,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COALESCE(AVG(latency_ms), 0),
		       COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms), 0),
		       COALESCE(SUM(prompt_tokens + completion_tokens), 0),
		       COALESCE(SUM(cost_usd), 0)
		FROM model_requests
		WHERE created_at >= $1 AND ($2::text = '' OR model = $2)
		GROUP BY model ORDER BY model
	`, since, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelStats
	for rows.Next() {
		var m ModelStats
		if err := rows.Scan(&m.Model, &m.Requests, &m.Successes, &m.AvgLatencyMS, &m.P95LatencyMS, &m.Tokens, &m.CostUSD); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ModelTrends(ctx context.Context, since time.Time, model string) ([]ModelTrendRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       model,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COALESCE(AVG(latency_ms), 0)
		FROM model_requests
		WHERE created_at >= $1 AND ($2::text = '' OR model = $2)
		GROUP BY day, model ORDER BY day, model
	`, since, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelTrendRow
	for rows.Next() {
		var m ModelTrendRow
		if err := rows.Scan(&m.Date, &m.Model, &m.Requests, &m.Successes, &m.AvgLatencyMS); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ModelErrors(ctx context.Context, since time.Time, model string) ([]ModelErrorRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT model, COALESCE(error_type, 'unknown') AS error_type, COUNT(*) AS n
		FROM model_requests
		WHERE created_at >= $1 AND NOT success AND ($2::text = '' OR model = $2)
		GROUP BY model, error_type ORDER BY n DESC, model
	`, since, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelErrorRow
	for rows.Next() {
		var m ModelErrorRow
		if err := rows.Scan(&m.Model, &m.ErrorType, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- Conversation intelligence ----

type ConversationTotals struct {
	Total              int64
	Completed          int64
	Abandoned          int64
	AvgMessages        float64
	AvgDurationMinutes float64
	AvgSatisfaction    float64
}

type TopicCount struct {
	Topic           string
	Count           int64
	AvgSatisfaction float64
}

type HourCount struct {
	Hour          int   `json:"hour"`
	Conversations int64 `json:"conversations"`
}

type OutcomeRow struct {
	Date      string `json:"date"`
	Completed int64  `json:"completed"`
	Abandoned int64  `json:"abandoned"`
	Converted int64  `json:"converted"`
}

func (s *Store) ConversationTotals(ctx context.Context, since time.Time) (ConversationTotals, error) {
	var t ConversationTotals
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'abandoned'),
		       COALESCE(AVG(message_count), 0),
		       COALESCE(AVG(EXTRACT(EPOCH FROM (ended_at - created_at)) / 60) FILTER (WHERE ended_at IS NOT NULL), 0),
		       COALESCE(AVG(satisfaction), 0)
		FROM conversations WHERE created_at >= $1
	`, since).Scan(&t.Total, &t.Completed, &t.Abandoned, &t.AvgMessages, &t.AvgDurationMinutes, &t.AvgSatisfaction)
	return t, err
}

func (s *Store) TopicDistribution(ctx context.Context, since time.Time) ([]TopicCount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT topic, COUNT(*) AS n, COALESCE(AVG(satisfaction), 0)
		FROM conversations
		WHERE created_at >= $1
		GROUP BY topic ORDER BY n DESC, topic
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopicCount
	for rows.Next() {
		var t TopicCount
		if err := rows.Scan(&t.Topic, &t.Count, &t.AvgSatisfaction); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) HourlyActivity(ctx context.Context, since time.Time) ([]HourCount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')::int AS hour, COUNT(*)
		FROM conversations
		WHERE created_at >= $1
		GROUP BY hour ORDER BY hour
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HourCount
	for rows.Next() {
		var h HourCount
		if err := rows.Scan(&h.Hour, &h.Conversations); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) OutcomeTrends(ctx context.Context, since time.Time) ([]OutcomeRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'abandoned'),
		       COUNT(*) FILTER (WHERE converted)
		FROM conversations
		WHERE created_at >= $1
		GROUP BY day ORDER BY day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutcomeRow
	for rows.Next() {
		var o OutcomeRow
		if err := rows.Scan(&o.Date, &o.Completed, &o.Abandoned, &o.Converted); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ---- Topic insights ----
// An empty topic means every topic.

type TopicTotals struct {
	Conversations   int64
	Users           int64
	Converted       int64
	AvgSatisfaction float64
}

type ProductFunnel struct {
	ProductID       string
	ProductName     string
	Recommendations int64
	Clicks          int64
	Purchases       int64
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"conversations"`
}

func (s *Store) TopicTotals(ctx context.Context, since time.Time, topic string) (TopicTotals, error) {
	var t TopicTotals
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT user_id),
		       COUNT(*) FILTER (WHERE converted),
		       COALESCE(AVG(satisfaction), 0)
		FROM conversations
		WHERE created_at >= $1 AND ($2::text = '' OR lower(topic) = lower($2))
	`, since, topic).Scan(&t.Conversations, &t.Users, &t.Converted, &t.AvgSatisfaction)
	return t, err
}

func (s *Store) TopicConcerns(ctx context.Context, since time.Time, topic string, limit int) ([]ConcernCount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT h.concern, COUNT(*) AS n
		FROM hair_issues h
		JOIN conversations c ON c.id = h.conversation_id
		WHERE h.created_at >= $1 AND ($2::text = '' OR lower(c.topic) = lower($2))
		GROUP BY h.concern ORDER BY n DESC, h.concern LIMIT $3
	`, since, topic, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcernCount
	for rows.Next() {
		var c ConcernCount
		if err := rows.Scan(&c.Concern, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) TopicProducts(ctx context.Context, since time.Time, topic string, limit int) ([]ProductFunnel, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT p.product_id::text, p.product_name,
		       COUNT(*) AS n,
		       COUNT(*) FILTER (WHERE r.clicked),
		       COUNT(*) FILTER (WHERE r.purchased)
		FROM recommendations r
		JOIN conversations c ON c.id = r.conversation_id
		JOIN products p ON p.product_id = r.product_id
		WHERE r.created_at >= $1 AND ($2::text = '' OR lower(c.topic) = lower($2))
		GROUP BY p.product_id, p.product_name ORDER BY n DESC, p.product_name LIMIT $3
	`, since, topic, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFunnels(rows)
}

func (s *Store) TopicDailyVolume(ctx context.Context, since time.Time, topic string) ([]DailyCount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM conversations
		WHERE created_at >= $1 AND ($2::text = '' OR lower(topic) = lower($2))
		GROUP BY day ORDER BY day
	`, since, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- Hair concerns ----
// An empty concern means every concern.

type ConcernTotals struct {
	Reports  int64
	Users    int64
	Distinct int64
}

type ConcernStats struct {
	Concern     string
	Count       int64
	AvgSeverity float64
}

type ConcernTrendRow struct {
	Date    string `json:"date"`
	Concern string `json:"concern"`
	Count   int64  `json:"count"`
}

func (s *Store) ConcernTotals(ctx context.Context, since time.Time, concern string) (ConcernTotals, error) {
	var t ConcernTotals
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT concern)
		FROM hair_issues
		WHERE created_at >= $1 AND ($2::text = '' OR lower(concern) = lower($2))
	`, since, concern).Scan(&t.Reports, &t.Users, &t.Distinct)
	return t, err
}

func (s *Store) ConcernBreakdown(ctx context.Context, since time.Time, concern string) ([]ConcernStats, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT concern, COUNT(*) AS n, COALESCE(AVG(severity), 0)
		FROM hair_issues
		WHERE created_at >= $1 AND ($2::text = '' OR lower(concern) = lower($2))
		GROUP BY concern ORDER BY n DESC, concern
	`, since, concern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcernStats
	for rows.Next() {
		var c ConcernStats
		if err := rows.Scan(&c.Concern, &c.Count, &c.AvgSeverity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ConcernTrends(ctx context.Context, since time.Time, concern string) ([]ConcernTrendRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day, concern, COUNT(*)
		FROM hair_issues
		WHERE created_at >= $1 AND ($2::text = '' OR lower(concern) = lower($2))
		GROUP BY day, concern ORDER BY day, concern
	`, since, concern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcernTrendRow
	for rows.Next() {
		var c ConcernTrendRow
		if err := rows.Scan(&c.Date, &c.Concern, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- System health ----

type ServiceStats struct {
	Service      string
	Requests     int64
	Successes    int64
	AvgLatencyMS float64
}

type LatencyBucket struct {
	Bucket       time.Time
	Requests     int64
	Errors       int64
	AvgLatencyMS float64
}

func (s *Store) ServiceStats(ctx context.Context, since time.Time) ([]ServiceStats, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT provider, COUNT(*), COUNT(*) FILTER (WHERE success), COALESCE(AVG(latency_ms), 0)
		FROM model_requests
		WHERE created_at >= $1
		GROUP BY provider ORDER BY provider
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ServiceStats
	for rows.Next() {
		var st ServiceStats
		if err := rows.Scan(&st.Service, &st.Requests, &st.Successes, &st.AvgLatencyMS); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// LatencyTrend buckets requests by "hour" or "day"; any other granularity is treated as "hour".
func (s *Store) LatencyTrend(ctx context.Context, since time.Time, granularity string) ([]LatencyBucket, error) {
	if granularity != "day" {
		granularity = "hour"
	}
	rows, err := s.DB.Query(ctx, `
		SELECT date_trunc($2::text, created_at) AS bucket,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE NOT success),
		       COALESCE(AVG(latency_ms), 0)
		FROM model_requests
		WHERE created_at >= $1
		GROUP BY bucket ORDER BY bucket
	`, since, granularity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LatencyBucket
	for rows.Next() {
		var b LatencyBucket
		if err := rows.Scan(&b.Bucket, &b.Requests, &b.Errors, &b.AvgLatencyMS); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ---- Recommendations ----

type RecommendationTotals struct {
	Recommendations int64
	Clicks          int64
	Purchases       int64
}

func (s *Store) RecommendationTotals(ctx context.Context, since time.Time) (RecommendationTotals, error) {
	var t RecommendationTotals
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE clicked), COUNT(*) FILTER (WHERE purchased)
		FROM recommendations WHERE created_at >= $1
	`, since).Scan(&t.Recommendations, &t.Clicks, &t.Purchases)
	return t, err
}

func (s *Store) RecommendationFunnel(ctx context.Context, since time.Time, limit int) ([]ProductFunnel, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT p.product_id::text, p.product_name,
		       COUNT(*) AS n,
		       COUNT(*) FILTER (WHERE r.clicked),
		       COUNT(*) FILTER (WHERE r.purchased)
		FROM recommendations r
		JOIN products p ON p.product_id = r.product_id
		WHERE r.created_at >= $1
		GROUP BY p.product_id, p.product_name ORDER BY n DESC, p.product_name LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFunnels(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanFunnels(rows rowScanner) ([]ProductFunnel, error) {
	var out []ProductFunnel
	for rows.Next() {
		var f ProductFunnel
		if err := rows.Scan(&f.ProductID, &f.ProductName, &f.Recommendations, &f.Clicks, &f.Purchases); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
