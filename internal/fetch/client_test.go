// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsFixedHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	c := New(0)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body)
	assert.Equal(t, UserAgent, gotUA)
	assert.Equal(t, "*/*", gotAccept)
}

func TestGetNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(0)
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := New(0)
	require.NoError(t, c.Head(context.Background(), srv.URL+"/ok"))
	require.Error(t, c.Head(context.Background(), srv.URL+"/bad"))
}

func TestGetOpensBreakerAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(0)
	for i := 0; i < defaultFailureThreshold; i++ {
		_, err := c.Get(context.Background(), srv.URL)
		require.Error(t, err)
	}
	_, err := c.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker("h", 1, 10*time.Millisecond)
	fail := errors.New("boom")

	require.Error(t, cb.Execute(func() error { return fail }))
	assert.Equal(t, StateOpen, cb.State())

	// Blocked while open.
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(15 * time.Millisecond)

	// Half-open probe succeeds and closes the circuit.
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("h2", 1, 5*time.Millisecond)
	require.Error(t, cb.Execute(func() error { return errors.New("x") }))
	time.Sleep(10 * time.Millisecond)
	require.Error(t, cb.Execute(func() error { return errors.New("y") }))
	assert.Equal(t, StateOpen, cb.State())
}
