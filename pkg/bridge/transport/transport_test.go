/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/bridge"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := New()
		require.Equal(t, DefaultBridgeURL, c.BridgeURL())
	})

	t.Run("custom bridge url", func(t *testing.T) {
		c := New(WithBridgeURL("https://bridge.example.com/"))
		require.Equal(t, "https://bridge.example.com", c.BridgeURL())
	})

	t.Run("tls config", func(t *testing.T) {
		c := New(WithTLSConfig(nil))
		require.NotNil(t, c.client)
	})
}

func TestCreateRequest(t *testing.T) {
	env := &bridge.Envelope{IV: "aXYtYnl0ZXM=", Payload: "c2VhbGVk"}

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/request", r.URL.Path)
			require.Equal(t, contentType, r.Header.Get("Content-Type"))

			var received bridge.Envelope
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			require.Equal(t, *env, received)

			w.WriteHeader(http.StatusCreated)
			_, err := w.Write([]byte(`{"request_id":"0f254af5-ac0b-4d0b-9d09-a9a51cd6464c"}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL), WithHTTPClient(server.Client()))

		id, err := c.CreateRequest(context.Background(), env)
		require.NoError(t, err)
		require.Equal(t, "0f254af5-ac0b-4d0b-9d09-a9a51cd6464c", id)
	})

	t.Run("missing envelope", func(t *testing.T) {
		_, err := New().CreateRequest(context.Background(), nil)
		require.EqualError(t, err, "envelope is required")
	})

	t.Run("relay rejects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.CreateRequest(context.Background(), env)
		require.Error(t, err)
		require.Contains(t, err.Error(), "relay rejected request")
	})

	t.Run("empty request id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.CreateRequest(context.Background(), env)
		require.EqualError(t, err, "relay returned an empty request id")
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`not-json`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.CreateRequest(context.Background(), env)
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode create response")
	})

	t.Run("relay unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.CreateRequest(context.Background(), env)
		require.Error(t, err)
		require.Contains(t, err.Error(), "post request envelope")
	})
}

func TestFetchStatus(t *testing.T) {
	t.Run("initialized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/response/req-1", r.URL.Path)

			_, err := w.Write([]byte(`{"status":"initialized","response":null}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		poll, err := c.FetchStatus(context.Background(), "req-1")
		require.NoError(t, err)
		require.Equal(t, bridge.StatusInitialized, poll.Status)
		require.Nil(t, poll.Response)
	})

	t.Run("completed with envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"status":"completed","response":{"iv":"aXY=","payload":"cGF5bG9hZA=="}}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		poll, err := c.FetchStatus(context.Background(), "req-1")
		require.NoError(t, err)
		require.Equal(t, bridge.StatusCompleted, poll.Status)
		require.NotNil(t, poll.Response)
		require.Equal(t, "aXY=", poll.Response.IV)
	})

	t.Run("unknown request id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.FetchStatus(context.Background(), "req-missing")
		require.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("missing request id", func(t *testing.T) {
		_, err := New().FetchStatus(context.Background(), "")
		require.EqualError(t, err, "request id is required")
	})

	t.Run("relay error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.FetchStatus(context.Background(), "req-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "relay returned status")
	})

	t.Run("status document missing status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"response":null}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := New(WithBridgeURL(server.URL))

		_, err := c.FetchStatus(context.Background(), "req-1")
		require.EqualError(t, err, "relay status document is missing a status")
	})
}
