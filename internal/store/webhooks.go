package store

import (
	"context"

	"hairdash/internal/models"
)

// ---- Webhooks ----

func (s *Store) ListWebhooks(ctx context.Context) ([]models.Webhook, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, url, events, secret, enabled, created_at FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

func (s *Store) CreateWebhook(ctx context.Context, url string, events []string, secret string) (models.Webhook, error) {
	var h models.Webhook
	err := s.DB.QueryRow(ctx, `INSERT INTO webhooks (url, events, secret) VALUES ($1, $2, $3)
		RETURNING id, url, events, secret, enabled, created_at`, url, nonNil(events), secret).
		Scan(&h.ID, &h.URL, &h.Events, &h.Secret, &h.Enabled, &h.CreatedAt)
	return h, mapErr(err)
}

func (s *Store) DeleteWebhook(ctx context.Context, id int) error {
	return affected(s.DB.Exec(ctx, `DELETE FROM webhooks WHERE id=$1`, id))
}

func (s *Store) GetEnabledWebhooks(ctx context.Context, event string) ([]models.Webhook, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, url, events, secret, enabled, created_at FROM webhooks WHERE enabled=true AND $1=ANY(events)`, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

func scanWebhooks(rows rowScanner) ([]models.Webhook, error) {
	hooks := []models.Webhook{}
	for rows.Next() {
		var h models.Webhook
		if err := rows.Scan(&h.ID, &h.URL, &h.Events, &h.Secret, &h.Enabled, &h.CreatedAt); err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}
