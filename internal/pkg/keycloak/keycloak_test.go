// Copyright 2026 Peter Edge
//
// All rights reserved.

package keycloak

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/pkg/restclient"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	t.Parallel()
	expiresAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	accessToken, err := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{"exp": expiresAt.Unix(), "sub": "ops"},
	).SignedString([]byte("test-key"))
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/realms/master/protocol/openid-connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		require.Equal(t, "ops", r.PostForm.Get("username"))
		require.Equal(t, "pw", r.PostForm.Get("password"))
		require.Equal(t, DefaultClientID, r.PostForm.Get("client_id"))
		require.Equal(t, "shh", r.PostForm.Get("client_secret"))
		require.Equal(t, "openid", r.PostForm.Get("scope"))
		_, _ = w.Write([]byte(`{"access_token":"` + accessToken + `","expires_in":300}`))
	}))
	t.Cleanup(server.Close)
	client := NewClient(
		slog.New(slog.DiscardHandler),
		server.URL,
		Credentials{ClientSecret: "shh", Username: "ops", Password: "pw"},
	)
	token, err := client.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, accessToken, token.AccessToken)
	require.True(t, token.ExpiresAt.Equal(expiresAt))
}

func TestTokenOpaque(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"opaque"}`))
	}))
	t.Cleanup(server.Close)
	client := NewClient(slog.New(slog.DiscardHandler), server.URL, Credentials{})
	token, err := client.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "opaque", token.AccessToken)
	require.True(t, token.ExpiresAt.IsZero())
}

func TestTokenUnauthorized(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	client := NewClient(slog.New(slog.DiscardHandler), server.URL, Credentials{})
	_, err := client.Token(context.Background())
	var httpRequestError *restclient.HTTPRequestError
	require.True(t, errors.As(err, &httpRequestError))
	require.Equal(t, http.StatusUnauthorized, httpRequestError.StatusCode)
}

func TestLookupUsers(t *testing.T) {
	t.Parallel()
	server := newUsersServer(t)
	client := NewClient(slog.New(slog.DiscardHandler), server.URL, Credentials{})
	users, err := client.LookupUsers(context.Background(), "tok-1", []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(
		t,
		map[string]string{
			"username":         "alice",
			"email":            "alice@example.com",
			"enabled":          "true",
			"createdTimestamp": "1700000000000",
			"country":          "DE",
			"phoneNumber":      "+49 1,+49 2",
		},
		users[0].Fields,
	)
	require.Equal(t, "bob", users[1].Username())
	columns := Columns(users)
	require.Equal(t, []string{"username", "country", "createdTimestamp", "email", "enabled", "phoneNumber"}, columns)
	require.Equal(t, []string{"bob", "", "", "", "false", ""}, users[1].Row(columns))
}

func TestLookupUsersOverwrite(t *testing.T) {
	t.Parallel()
	server := newUsersServer(t)
	client := NewClient(
		slog.New(slog.DiscardHandler),
		server.URL,
		Credentials{},
		ClientWithLookupMode(LookupModeOverwrite),
		ClientWithRealm("general"),
	)
	users, err := client.LookupUsers(context.Background(), "tok-1", []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "bob", users[0].Username())
}

func TestLookupUsersNotAnObject(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["alice"]`))
	}))
	t.Cleanup(server.Close)
	client := NewClient(slog.New(slog.DiscardHandler), server.URL, Credentials{})
	_, err := client.LookupUsers(context.Background(), "tok-1", []string{"alice"})
	require.Error(t, err)
}

func TestParseLookupMode(t *testing.T) {
	t.Parallel()
	lookupMode, err := ParseLookupMode("")
	require.NoError(t, err)
	require.Equal(t, LookupModeAccumulate, lookupMode)
	lookupMode, err = ParseLookupMode("Overwrite")
	require.NoError(t, err)
	require.Equal(t, LookupModeOverwrite, lookupMode)
	require.Equal(t, "overwrite", lookupMode.String())
	_, err = ParseLookupMode("merge")
	require.Error(t, err)
}

func newUsersServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/auth/admin/realms/general/users", r.URL.Path)
		require.Equal(t, "bearer tok-1", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("username") {
		case "alice":
			_, _ = w.Write([]byte(`[{
				"username": "alice",
				"email": "alice@example.com",
				"enabled": true,
				"createdTimestamp": 1700000000000,
				"attributes": {"country": ["DE"], "phoneNumber": ["+49 1", "+49 2"]}
			}]`))
		case "bob":
			_, _ = w.Write([]byte(`[{"username": "bob", "enabled": false}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}
