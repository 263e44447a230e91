package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bloom-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/couple-requests", r.URL.Path)
		json.NewEncoder(w).Encode(services.CoupleRequestViews{})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok", nil)
	views, err := c.ListRequests(context.Background())
	require.NoError(t, err)
	require.NotNil(t, views)
}

func TestClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"a pending request already exists"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	_, err := c.SendRequest(context.Background(), "ABC123", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "a pending request already exists")
}

func TestClientNon2xxPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, "", nil).DeclineRequest(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, "server returned 502: boom", err.Error())
}

func TestClientNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/couple-requests/r%201/cancel", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, "tok", nil).CancelRequest(context.Background(), "r 1"))
}

func TestClientSummarizeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "journal_summary", body["kind"])
		assert.Equal(t, "j1", body["journal_id"])
		w.Write([]byte(`{"ok":true,"summary":"short"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "tok", nil).Summarize(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "short", resp.Summary)
}

func TestClientTodayQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("date"))
		w.Write([]byte(`{"date":"2026-03-01","question":null}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "tok", nil).Today(context.Background(), "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", resp.Date)
	assert.Nil(t, resp.Question)
}
