package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-forecast-lab/internal/domain"
)

func testClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5 * time.Millisecond),
	}
	return NewClient(url, append(base, opts...)...)
}

func TestSimulate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/simulate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Access-Key"))
		w.Write([]byte(`{"result":{"status":true,"gas_used":"0x64"}}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL, WithAPIKey("secret"))
	doc, err := client.Simulate(context.Background(), &domain.SimulationRequest{
		NetworkID: "1",
		From:      "0xme",
		To:        "0xpool",
	})
	require.NoError(t, err)

	root, ok := doc.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, root, "result")
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	doc, err := client.do(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_RetriesRateLimiting(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.do(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_ClientErrorsAreTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad params"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.do(context.Background(), http.MethodGet, srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.do(context.Background(), http.MethodGet, srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	// Initial attempt plus two retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, WithMaxRetries(5), WithRetryDelay(time.Minute))
	_, err := client.do(ctx, http.MethodGet, srv.URL, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestListSimulations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id":"sim-1","to":"0xa"}]`},
		{"wrapped simulations", `{"simulations":[{"id":"sim-1","to":"0xa"}]}`},
		{"wrapped results", `{"results":[{"id":"sim-1","to":"0xa"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/simulations", r.URL.Path)
				assert.Equal(t, "25", r.URL.Query().Get("limit"))
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := testClient(srv.URL)
			records, err := client.ListSimulations(context.Background(), 25)
			require.NoError(t, err)
			require.Len(t, records, 1)
		})
	}
}

func TestListSimulations_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.ListSimulations(context.Background(), 0)
	require.Error(t, err)
}
