// Package blob uploads dashboard assets (product and testimonial images) to
// the hosted object store.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/ksuid"
)

type Object struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Key builds a unique object path that keeps a readable form of the filename.
func Key(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "upload"
	}
	if len(base) > 80 {
		base = base[len(base)-80:]
	}
	return "uploads/" + ksuid.New().String() + "-" + base
}

// Put stores body under pathname and returns the public object.
func (c *Client) Put(ctx context.Context, pathname, contentType string, size int64, body io.Reader) (Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+pathname, body)
	if err != nil {
		return Object{}, err
	}
	req.ContentLength = size
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-content-type", contentType)
	req.Header.Set("x-add-random-suffix", "0")
	resp, err := c.http.Do(req)
	if err != nil {
		return Object{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Object{}, fmt.Errorf("object store returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		URL         string `json:"url"`
		Pathname    string `json:"pathname"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Object{}, fmt.Errorf("decode object store response: %w", err)
	}
	obj := Object{URL: out.URL, Pathname: out.Pathname, ContentType: out.ContentType, Size: size}
	if obj.Pathname == "" {
		obj.Pathname = pathname
	}
	if obj.ContentType == "" {
		obj.ContentType = contentType
	}
	return obj, nil
}
