package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   error
	}{
		{"token object", http.StatusOK, `{"token":"a.b.c"}`, "a.b.c", nil},
		{"json string", http.StatusOK, `"a.b.c"`, "a.b.c", nil},
		{"bare text", http.StatusOK, "a.b.c\n", "a.b.c", nil},
		{"empty body", http.StatusOK, "", "", ErrInvalidCredentials},
		{"bad request", http.StatusBadRequest, `{"message":"Credenciales inválidas"}`, "", ErrInvalidCredentials},
		{"unauthorized", http.StatusUnauthorized, "", "", ErrInvalidCredentials},
		{"forbidden", http.StatusForbidden, "", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/usuario/login", r.URL.Path)
				var req LoginRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "verde", req.Username)
				assert.Equal(t, "s3cret", req.Password)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			token, err := New(srv.URL).Login(context.Background(), " verde ", "s3cret")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestLogin_BlankFieldsNeverCallServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Login(context.Background(), "  ", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.Login(context.Background(), "verde", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, calls.Load())
}

func TestLogin_ServerErrorIsNotInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "verde", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
}

func TestDo_ErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		sentinel error
		message  string
	}{
		{http.StatusUnauthorized, `{"message":"token expirado"}`, ErrUnauthorized, "token expirado"},
		{http.StatusForbidden, `{"error":{"message":"rol insuficiente"}}`, ErrForbidden, "rol insuficiente"},
		{http.StatusNotFound, `{"error":"actividad no existe"}`, ErrNotFound, "actividad no existe"},
		{http.StatusBadGateway, "upstream down", nil, "upstream down"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.NotErrorIs(t, err, ErrNetworkUnavailable)
		})
	}
}

func TestDo_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url).Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestDo_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL, WithRateLimit(100, 1)).Do(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, nil)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_DecodesBodyAndSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]int{"sum": in["a"] + in["b"]})
	}))
	defer srv.Close()

	var out struct {
		Sum int `json:"sum"`
	}
	c := New(srv.URL+"/", WithTimeout(5*time.Second))
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/add", map[string]int{"a": 2, "b": 3}, &out))
	assert.Equal(t, 5, out.Sum)
}

func TestDo_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(0.001, 1))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNetworkUnavailable)
}
