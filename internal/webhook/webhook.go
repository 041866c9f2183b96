package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"hairdash/internal/models"
)

const SignatureHeader = "X-Hairdash-Signature"

// Source lists the enabled subscribers for an event type.
type Source interface {
	GetEnabledWebhooks(ctx context.Context, event string) ([]models.Webhook, error)
}

// Dispatcher notifies subscribers (typically the chatbot) that catalogue data changed.
type Dispatcher struct {
	Store  Source
	Client *http.Client
	Logger *zap.Logger

	inflight sync.WaitGroup
}

func New(src Source, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Store:  src,
		Client: &http.Client{Timeout: 5 * time.Second},
		Logger: logger,
	}
}

// Event represents a webhook payload.
type Event struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Fire sends an event to all enabled webhooks matching the event type.
// Deliveries run in the background; Wait blocks until they finish.
func (d *Dispatcher) Fire(ctx context.Context, eventType string, data interface{}) {
	hooks, err := d.Store.GetEnabledWebhooks(ctx, eventType)
	if err != nil {
		d.Logger.Warn("webhook lookup failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	if len(hooks) == 0 {
		return
	}
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	body, err := json.Marshal(event)
	if err != nil {
		d.Logger.Error("webhook encode failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	for _, hook := range hooks {
		d.inflight.Add(1)
		go func(h models.Webhook) {
			defer d.inflight.Done()
			d.send(h, eventType, body)
		}(hook)
	}
}

func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *Dispatcher) send(hook models.Webhook, eventType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		d.Logger.Warn("webhook request invalid", zap.Int("webhook_id", hook.ID), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Hairdash-Webhook/1.0")
	req.Header.Set("X-Hairdash-Event", eventType)
	if hook.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(hook.Secret, body))
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		d.Logger.Warn("webhook delivery failed", zap.Int("webhook_id", hook.ID), zap.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.Logger.Warn("webhook rejected", zap.Int("webhook_id", hook.ID), zap.Int("status", resp.StatusCode))
	}
}
