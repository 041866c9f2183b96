package vision

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, inspect func(body map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(body)
		}
		resp := map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   body["model"],
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		w.Header().Set("Content-Type", "application/json")
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
}

func TestDummyMode(t *testing.T) {
	c := New(Config{EnableReal: false})
	a, err := c.AnalyzeHair(context.Background(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, dummyAnalysis(), a)

	again, _ := c.AnalyzeHair(context.Background(), "https://example.com/b.jpg")
	assert.Equal(t, a, again, "canned response is deterministic")

	d, err := c.ExtractProduct(context.Background(), "  Bond Repair Mask\nWith keratin")
	require.NoError(t, err)
	assert.Equal(t, "Bond Repair Mask", d.ProductName)
	assert.NotNil(t, d.Ingredients)
}

func TestAnalyzeHairSendsImagePart(t *testing.T) {
	srv := completionServer(t, "```json\n{\"hair_type\":\"curly\",\"porosity\":\"high\",\"concerns\":[\" Frizz \"],\"confidence\":1.7}\n```", func(body map[string]interface{}) {
		assert.Equal(t, "gpt-4o", body["model"])
		msgs := body["messages"].([]interface{})
		require.Len(t, msgs, 2)
		user := msgs[1].(map[string]interface{})
		parts := user["content"].([]interface{})
		img := parts[1].(map[string]interface{})
		assert.Equal(t, "image_url", img["type"])
		assert.Equal(t, "https://example.com/a.jpg", img["image_url"].(map[string]interface{})["url"])
	})
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o", EnableReal: true, RPS: 100})
	a, err := c.AnalyzeHair(context.Background(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "curly", a.HairType)
	assert.Equal(t, []string{"frizz"}, a.Concerns)
	assert.Equal(t, []string{}, a.Recommendations)
	assert.Equal(t, 1.0, a.Confidence)
}

func TestExtractProduct(t *testing.T) {
	srv := completionServer(t, `{"product_name":" Curl Cream ","category":"Styling","price":-3,"ingredients":["shea butter"]}`, nil)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, EnableReal: true, RPS: 100})
	d, err := c.ExtractProduct(context.Background(), "Curl Cream, 24 USD")
	require.NoError(t, err)
	assert.Equal(t, "Curl Cream", d.ProductName)
	assert.Equal(t, "styling", d.Category)
	assert.Equal(t, 0.0, d.Price)
	assert.Equal(t, []string{}, d.HairTypes)
}

func TestUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, EnableReal: true, RPS: 100})
	_, err := c.AnalyzeHair(context.Background(), "https://example.com/a.jpg")
	require.Error(t, err)
}

func TestEmptyContent(t *testing.T) {
	srv := completionServer(t, "  ", nil)
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, EnableReal: true, RPS: 100})
	_, err := c.ExtractProduct(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
