// Package cookie persists notification watermarks in a browser cookie.
package cookie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"nrsnotify/internal/core"
)

const (
	// Name is the cookie holding the JSON watermark object.
	Name = "notification_timestamps"
	// MaxAge is how long the browser keeps the watermarks.
	MaxAge = 100 * 24 * time.Hour
)

// Encode serializes watermarks as a URL-escaped JSON object keyed by ts_<type>_<subtype>.
func Encode(w core.Watermarks) (string, error) {
	data, err := json.Marshal(w.Encode())
	if err != nil {
		return "", fmt.Errorf("marshal watermarks: %w", err)
	}
	return url.QueryEscape(string(data)), nil
}

// Decode parses a cookie value produced by Encode. Unknown keys are dropped.
func Decode(value string) (core.Watermarks, error) {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil, fmt.Errorf("unescape cookie: %w", err)
	}
	var m map[string]core.Timestamp
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal watermarks: %w", err)
	}
	return core.DecodeWatermarks(m), nil
}

// New builds the watermark cookie.
func New(w core.Watermarks, now time.Time) (*http.Cookie, error) {
	value, err := Encode(w)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(MaxAge),
		MaxAge:   int(MaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Store is a request-scoped WatermarkStore reading from the request cookie
// and writing Set-Cookie on the response. The account is ignored since the
// cookie already belongs to one browser.
type Store struct {
	r *http.Request
	w http.ResponseWriter

	saved core.Watermarks
}

// NewStore binds a store to one request/response pair.
func NewStore(w http.ResponseWriter, r *http.Request) *Store {
	return &Store{r: r, w: w}
}

// Load implements ports.WatermarkStore. A missing cookie is an empty result;
// a malformed one is reported so the caller can log it.
func (s *Store) Load(_ context.Context, _ string) (core.Watermarks, error) {
	if s.saved != nil {
		return s.saved, nil
	}
	c, err := s.r.Cookie(Name)
	if err != nil {
		return core.Watermarks{}, nil
	}
	w, err := Decode(c.Value)
	if err != nil {
		return core.Watermarks{}, err
	}
	return w, nil
}

// Save implements ports.WatermarkStore.
func (s *Store) Save(_ context.Context, _ string, w core.Watermarks) error {
	c, err := New(w, time.Now())
	if err != nil {
		return err
	}
	http.SetCookie(s.w, c)
	s.saved = w
	return nil
}
