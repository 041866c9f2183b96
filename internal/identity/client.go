// Package identity talks to the hosted identity provider that owns dashboard
// team members. The dashboard never stores members itself.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("member not found")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Body)
}

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusInvited   = "invited"
)

type Member struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	limiter   *rate.Limiter
}

// New builds a client that issues at most rps requests per second.
func New(baseURL, secretKey string, rps float64) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type providerUser struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PublicMetadata        metadata       `json:"public_metadata"`
	Banned                bool           `json:"banned"`
	LastSignInAt          *int64         `json:"last_sign_in_at"`
	CreatedAt             int64          `json:"created_at"`
}

type metadata struct {
	Role string `json:"role,omitempty"`
}

type providerInvitation struct {
	ID           string   `json:"id"`
	EmailAddress string   `json:"email_address"`
	Status       string   `json:"status"`
	Metadata     metadata `json:"public_metadata"`
	CreatedAt    int64    `json:"created_at"`
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (u providerUser) member() Member {
	m := Member{
		ID:        u.ID,
		Name:      strings.TrimSpace(u.FirstName + " " + u.LastName),
		Role:      u.PublicMetadata.Role,
		Status:    StatusActive,
		CreatedAt: fromMillis(u.CreatedAt),
	}
	if m.Role == "" {
		m.Role = "viewer"
	}
	if u.Banned {
		m.Status = StatusSuspended
	}
	for _, e := range u.EmailAddresses {
		if m.Email == "" || e.ID == u.PrimaryEmailAddressID {
			m.Email = e.EmailAddress
		}
	}
	if u.LastSignInAt != nil {
		t := fromMillis(*u.LastSignInAt)
		m.LastSignInAt = &t
	}
	return m
}

func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	var users []providerUser
	q := url.Values{"limit": {"100"}, "order_by": {"-created_at"}}
	if err := c.do(ctx, http.MethodGet, "/v1/users?"+q.Encode(), nil, &users); err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, u.member())
	}
	return out, nil
}

func (c *Client) Invite(ctx context.Context, email, role string) (Member, error) {
	payload := map[string]interface{}{
		"email_address":   email,
		"public_metadata": metadata{Role: role},
		"notify":          true,
	}
	var inv providerInvitation
	if err := c.do(ctx, http.MethodPost, "/v1/invitations", payload, &inv); err != nil {
		return Member{}, err
	}
	return Member{
		ID:        inv.ID,
		Email:     inv.EmailAddress,
		Role:      inv.Metadata.Role,
		Status:    StatusInvited,
		CreatedAt: fromMillis(inv.CreatedAt),
	}, nil
}

// Update changes a member's role and/or status. Empty values are left alone.
func (c *Client) Update(ctx context.Context, id, role, status string) (Member, error) {
	path := "/v1/users/" + url.PathEscape(id)
	var u providerUser
	if role != "" {
		payload := map[string]interface{}{"public_metadata": metadata{Role: role}}
		if err := c.do(ctx, http.MethodPatch, path+"/metadata", payload, &u); err != nil {
			return Member{}, err
		}
	}
	switch status {
	case StatusSuspended:
		if err := c.do(ctx, http.MethodPost, path+"/ban", nil, &u); err != nil {
			return Member{}, err
		}
	case StatusActive:
		if err := c.do(ctx, http.MethodPost, path+"/unban", nil, &u); err != nil {
			return Member{}, err
		}
	}
	if u.ID == "" {
		if err := c.do(ctx, http.MethodGet, path, nil, &u); err != nil {
			return Member{}, err
		}
	}
	return u.member(), nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
