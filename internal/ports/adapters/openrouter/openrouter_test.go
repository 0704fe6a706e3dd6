package openrouter

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

func chatReply(t *testing.T, w http.ResponseWriter, content any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	}))
}

func TestComplete_StringContent(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		chatReply(t, w, "```json\n{\"sugestoes\":[]}\n```")
	}))
	defer srv.Close()

	a := New(Options{APIKey: "sk-test", Model: "m1", BaseURL: srv.URL, Temperature: 0.7})
	out, err := a.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)

	assert.Equal(t, "```json\n{\"sugestoes\":[]}\n```", out)
	assert.Equal(t, "/api/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "m1", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "usr", msgs[1].(map[string]any)["content"])
	assert.Equal(t, "m1", a.Model())
}

func TestComplete_ArrayContentAndOllamaPath(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		chatReply(t, w, []any{
			map[string]any{"type": "text", "text": "{\"sugestoes\":"},
			map[string]any{"type": "text", "text": "[]}"},
		})
	}))
	defer srv.Close()

	a := New(Options{BaseURL: srv.URL + "/v1"})
	out, err := a.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)

	assert.Equal(t, `{"sugestoes":[]}`, out)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Empty(t, gotAuth, "no key means no bearer header")
	assert.Equal(t, defaultModel, a.Model())
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		chatReply(t, w, "ok")
	}))
	defer srv.Close()

	a := New(Options{BaseURL: srv.URL, Retries: 2})
	out, err := a.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_ClientErrorIsPermanentAndRedacted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key sk-secret-123", http.StatusBadRequest)
	}))
	defer srv.Close()

	a := New(Options{APIKey: "sk-secret-123", BaseURL: srv.URL, Retries: 3})
	_, err := a.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)

	var se *statusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.code)
	assert.NotContains(t, err.Error(), "sk-secret-123")
	assert.Contains(t, err.Error(), "[REDACTED]")
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	a := New(Options{BaseURL: srv.URL, Retries: 2})
	_, err := a.Complete(ctx, "sys", "usr")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageContentToString_Empty(t *testing.T) {
	t.Parallel()

	_, err := messageContentToString("   ")
	assert.Error(t, err)
	_, err = messageContentToString([]any{map[string]any{"type": "image"}})
	assert.Error(t, err)
	_, err = messageContentToString(42.0)
	assert.Error(t, err)
}
