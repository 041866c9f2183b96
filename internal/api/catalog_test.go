package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hairdash/internal/models"
	"hairdash/internal/store"
)

func TestHealthAndReadiness(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", nil).Code)

	st.down = errDBDown
	rec := do(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestProductLifecycle(t *testing.T) {
	st := newFakeStore()
	notifier := &recordingNotifier{}
	s := newTestServer(st)
	s.Webhooks = notifier

	rec := do(t, s, http.MethodPost, "/api/products", map[string]interface{}{
		"product_name": "  Curl   Defining Cream ",
		"price":        18.5,
		"category":     "styling",
		"hair_types":   []string{"curly", "coily"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Product](t, rec)
	assert.NotEmpty(t, created.ProductID)
	assert.Equal(t, "Curl Defining Cream", created.ProductName)
	assert.True(t, created.IsActive)

	rec = do(t, s, http.MethodGet, "/api/products/"+created.ProductID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/products/"+created.ProductID, map[string]interface{}{
		"product_name": "Curl Defining Cream",
		"price":        19,
		"is_active":    false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeBody[models.Product](t, rec).IsActive)

	page := decodeBody[store.ProductPage](t, do(t, s, http.MethodGet, "/api/products?page=1&page_size=10", nil))
	assert.Equal(t, 1, page.Total)

	rec = do(t, s, http.MethodDelete, "/api/products/"+created.ProductID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/products/"+created.ProductID, nil).Code)

	require.Len(t, notifier.events, 3)
	for _, e := range notifier.events {
		assert.Equal(t, models.EventProductsChanged, e.Type)
	}
	assert.Equal(t, changeEvent{Action: "deleted", ID: created.ProductID}, notifier.events[2].Data)
}

func TestCreateProductDuplicateName(t *testing.T) {
	s := newTestServer(newFakeStore())
	body := map[string]interface{}{"product_name": "Repair Mask", "price": 24}

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/products", body).Code)
	rec := do(t, s, http.MethodPost, "/api/products", map[string]interface{}{"product_name": "repair mask", "price": 30})
	assert.Equal(t, http.StatusConflict, rec.Code)
	got := decodeBody[models.ErrorResponse](t, rec)
	assert.Equal(t, "duplicate", got.Code)
}

func TestCreateProductValidation(t *testing.T) {
	s := newTestServer(newFakeStore())

	rec := do(t, s, http.MethodPost, "/api/products", map[string]interface{}{"price": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[map[string]interface{}](t, rec)
	assert.Equal(t, "validation_error", got["code"])
	details, ok := got["details"].([]interface{})
	require.True(t, ok, rec.Body.String())
	fields := map[string]bool{}
	for _, d := range details {
		fields[d.(map[string]interface{})["field"].(string)] = true
	}
	assert.True(t, fields["product_name"])
	assert.True(t, fields["price"])

	rec = do(t, s, http.MethodPost, "/api/products", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeBody[models.ErrorResponse](t, rec).Code)
}

func TestUpdateMissingProduct(t *testing.T) {
	s := newTestServer(newFakeStore())
	rec := do(t, s, http.MethodPut, "/api/products/0d9d1c2e-4b51-4c36-9a57-5a4f1b7e6d11", map[string]interface{}{"product_name": "x", "price": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestimonials(t *testing.T) {
	s := newTestServer(newFakeStore())

	rec := do(t, s, http.MethodPost, "/api/testimonials", map[string]interface{}{
		"customer_name": "Ada",
		"content":       "My curls finally behave.",
		"rating":        6,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/testimonials", map[string]interface{}{
		"customer_name": "Ada",
		"content":       "My curls finally behave.",
		"rating":        5,
		"is_featured":   true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Testimonial](t, rec)

	featured := decodeBody[[]models.Testimonial](t, do(t, s, http.MethodGet, "/api/testimonials?featured=true", nil))
	assert.Len(t, featured, 1)
	plain := decodeBody[[]models.Testimonial](t, do(t, s, http.MethodGet, "/api/testimonials?featured=false", nil))
	assert.Empty(t, plain)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/testimonials/"+created.TestimonialID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/testimonials/"+created.TestimonialID, nil).Code)
}

func TestBotInstructions(t *testing.T) {
	s := newTestServer(newFakeStore())

	rec := do(t, s, http.MethodPost, "/api/bot-instructions", map[string]interface{}{
		"title":   "Tone",
		"content": "Be warm and concise.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.BotInstruction](t, rec)
	assert.Equal(t, "general", created.Category)
	assert.True(t, created.IsActive)

	rec = do(t, s, http.MethodPut, "/api/bot-instructions", map[string]interface{}{
		"instruction_id": created.InstructionID,
		"title":          "Tone",
		"content":        "Be warm.",
		"priority":       10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, decodeBody[models.BotInstruction](t, rec).Priority)

	// Updating an id that does not exist is a 404, not a silent no-op.
	rec = do(t, s, http.MethodPut, "/api/bot-instructions", map[string]interface{}{
		"instruction_id": "missing",
		"title":          "Tone",
		"content":        "Be warm.",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/bot-instructions", map[string]interface{}{"title": "Tone", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, "/api/bot-instructions", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/bot-instructions?instruction_id="+created.InstructionID, nil).Code)
	assert.Empty(t, decodeBody[[]models.BotInstruction](t, do(t, s, http.MethodGet, "/api/bot-instructions", nil)))
}

func TestWebhooksRedactSecrets(t *testing.T) {
	s := newTestServer(newFakeStore())

	rec := do(t, s, http.MethodPost, "/api/webhooks", map[string]interface{}{
		"url":    "https://hooks.example.com/catalog",
		"events": []string{models.EventProductsChanged},
		"secret": "shh",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "shh")

	list := do(t, s, http.MethodGet, "/api/webhooks", nil)
	assert.NotContains(t, list.Body.String(), "shh")
	assert.Len(t, decodeBody[[]models.Webhook](t, list), 1)

	rec = do(t, s, http.MethodPost, "/api/webhooks", map[string]interface{}{
		"url":    "https://hooks.example.com/catalog",
		"events": []string{"orders.created"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, "/api/webhooks/abc", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/webhooks/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/webhooks/1", nil).Code)
}

type brokenCatalog struct {
	*fakeStore
}

func (brokenCatalog) GetProduct(_ context.Context, _ string) (models.Product, error) {
	return models.Product{}, errors.New("relation \"products\" does not exist")
}

func TestInternalErrorDetailsHiddenInProduction(t *testing.T) {
	s := newTestServer(newFakeStore())
	s.Store = brokenCatalog{newFakeStore()}

	rec := do(t, s, http.MethodGet, "/api/products/abc", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not exist")

	s.Production = true
	rec = do(t, s, http.MethodGet, "/api/products/abc", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "does not exist")
	assert.Equal(t, "internal_error", decodeBody[models.ErrorResponse](t, rec).Code)
}
