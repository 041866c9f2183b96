package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("../../My Curl Photo!.png")
	assert.True(t, strings.HasPrefix(k, "uploads/"))
	assert.True(t, strings.HasSuffix(k, "-My-Curl-Photo-.png"))
	assert.NotContains(t, k, "..")
	assert.NotEqual(t, Key("a.png"), Key("a.png"))
	assert.True(t, strings.HasSuffix(Key(""), "-upload"))
}

func TestPut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/uploads/x.png", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "image/png", r.Header.Get("x-content-type"))
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "png-bytes", string(b))
		_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/uploads/x.png","pathname":"uploads/x.png","contentType":"image/png"}`)
	}))
	defer srv.Close()

	obj, err := New(srv.URL, "tok").Put(context.Background(), "uploads/x.png", "image/png", 9, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, Object{URL: "https://cdn.example.com/uploads/x.png", Pathname: "uploads/x.png", ContentType: "image/png", Size: 9}, obj)
}

func TestPutUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").Put(context.Background(), "uploads/x.png", "image/png", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
