package identity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userJSON = `{
  "id": "user_1",
  "first_name": "Ada",
  "last_name": "Lovelace",
  "primary_email_address_id": "e2",
  "email_addresses": [{"id": "e1", "email_address": "old@example.com"}, {"id": "e2", "email_address": "ada@example.com"}],
  "public_metadata": {"role": "admin"},
  "banned": false,
  "last_sign_in_at": 1767225600000,
  "created_at": 1735689600000
}`

func TestListMembersReshapesUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, "["+userJSON+`,{"id":"user_2","banned":true,"created_at":0}]`)
	}))
	defer srv.Close()

	members, err := New(srv.URL, "sk_test", 100).ListMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)

	ada := members[0]
	assert.Equal(t, "ada@example.com", ada.Email)
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, "admin", ada.Role)
	assert.Equal(t, StatusActive, ada.Status)
	require.NotNil(t, ada.LastSignInAt)
	assert.Equal(t, 2026, ada.LastSignInAt.Year())

	assert.Equal(t, StatusSuspended, members[1].Status)
	assert.Equal(t, "viewer", members[1].Role)
	assert.Nil(t, members[1].LastSignInAt)
}

func TestInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/invitations", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new@example.com", body["email_address"])
		_, _ = io.WriteString(w, `{"id":"inv_1","email_address":"new@example.com","status":"pending","public_metadata":{"role":"editor"},"created_at":1735689600000}`)
	}))
	defer srv.Close()

	m, err := New(srv.URL, "sk", 100).Invite(context.Background(), "new@example.com", "editor")
	require.NoError(t, err)
	assert.Equal(t, StatusInvited, m.Status)
	assert.Equal(t, "editor", m.Role)
}

func TestUpdateRoleAndSuspend(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, userJSON)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk", 100).Update(context.Background(), "user_1", "editor", StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, []string{"PATCH /v1/users/user_1/metadata", "POST /v1/users/user_1/ban"}, calls)
}

func TestErrorsAreTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"errors":[{"message":"duplicate"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "sk", 100)
	assert.ErrorIs(t, c.Remove(context.Background(), "missing"), ErrNotFound)

	_, err := c.Invite(context.Background(), "x@example.com", "viewer")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "duplicate")
}
