// Copyright 2026 Peter Edge
//
// All rights reserved.

package restclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/pkg/backoff"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/items", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("page"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "token", r.Header.Get("X-Token"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"a"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()
	observer := &recordingObserver{}
	client := NewClient("items", server.URL+"/", ClientWithObserver(observer))
	response, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/items",
		Query:  url.Values{"page": []string{"1"}},
		Header: http.Header{"X-Token": []string{"token"}},
		JSON:   map[string]string{"name": "a"},
	})
	require.NoError(t, err)
	var decoded struct {
		ID int `json:"id"`
	}
	require.NoError(t, response.DecodeJSON(&decoded))
	require.Equal(t, 7, decoded.ID)
	require.Equal(t, "items", observer.client)
	require.Equal(t, http.StatusOK, observer.statusCode)
	require.NoError(t, observer.err)
}

func TestDoForm(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	response, err := NewClient("form", server.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/token",
		Form:   url.Values{"grant_type": []string{"password"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, response.StatusCode)
}

func TestDoHTTPRequestError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "account not found", http.StatusNotFound)
	}))
	defer server.Close()
	observer := &recordingObserver{}
	_, err := NewClient("errors", server.URL, ClientWithObserver(observer)).Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/missing",
	})
	var httpErr *HTTPRequestError
	require.True(t, errors.As(err, &httpErr), "expected *HTTPRequestError, got %T: %v", err, err)
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	require.Equal(t, "account not found", httpErr.Body)
	require.Equal(t, server.URL+"/missing", httpErr.URL)
	require.Equal(t, http.StatusNotFound, observer.statusCode)
	require.Error(t, observer.err)
}

func TestDoRateLimitCanceled(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	client := NewClient("paced", server.URL, ClientWithRateLimit(0.001))
	// The first request consumes the single burst token.
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
}

func TestDoRetry(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()
	client := NewClient(
		"retrying",
		server.URL,
		ClientWithRetry(backoff.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)
	response, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, int32(3), calls.Load())
}

func TestDoRetrySkipsClientErrorsAndPost(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodPost {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "no such account", http.StatusNotFound)
	}))
	defer server.Close()
	client := NewClient(
		"retrying",
		server.URL,
		ClientWithRetry(backoff.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}),
	)
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
	_, err = client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	require.Error(t, err)
	require.Equal(t, int32(2), calls.Load())
}

type recordingObserver struct {
	client     string
	statusCode int
	err        error
}

func (o *recordingObserver) ObserveRequest(client string, _ string, statusCode int, _ time.Duration, err error) {
	o.client = client
	o.statusCode = statusCode
	o.err = err
}
