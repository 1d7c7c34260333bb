package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client against srv that records backoff delays
// instead of sleeping.
func newTestClient(t *testing.T, srv *httptest.Server, opts Options) (*Client, *[]time.Duration) {
	t.Helper()
	opts.BaseURL = srv.URL
	c := New(opts, zerolog.Nop())
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

// statusSequence replies with the given status codes in order, then 200.
func statusSequence(hits *atomic.Int32, codes ...int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n < len(codes) {
			w.WriteHeader(codes[n])
			w.Write([]byte(`{"status":"error","message":"nope"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","message":"","result":{"count":1}}`))
	}
}

func TestStoreMessageSendsPayload(t *testing.T) {
	var got MessagePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/memories", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"ok","message":"saved","result":{"count":2,"status_info":"extracted"}}`))
	}))
	defer srv.Close()
	c, _ := newTestClient(t, srv, Options{})

	resp, err := c.StoreMessage(context.Background(), MessagePayload{
		MessageID: "u1", CreateTime: "2026-01-01T00:00:00Z", Sender: "me", Content: "hello",
		GroupID: "cc-s1", GroupName: "proj", SenderName: "User", Role: "user",
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Result.Count)
	assert.Equal(t, "u1", got.MessageID)
	assert.Equal(t, "cc-s1", got.GroupID)
}

func TestRetryClassification(t *testing.T) {
	tests := []struct {
		name       string
		codes      []int
		maxRetries int
		wantHits   int32
		wantErr    bool
		terminal   bool
		wantDelays []time.Duration
	}{
		{
			name:       "success first try",
			maxRetries: 2,
			wantHits:   1,
		},
		{
			name:       "transient twice then success",
			codes:      []int{503, 500},
			maxRetries: 2,
			wantHits:   3,
			wantDelays: []time.Duration{500 * time.Millisecond, time.Second},
		},
		{
			name:       "server errors exhaust retries",
			codes:      []int{500, 502, 503},
			maxRetries: 2,
			wantHits:   3,
			wantErr:    true,
			wantDelays: []time.Duration{500 * time.Millisecond, time.Second},
		},
		{
			name:       "client error is not retried",
			codes:      []int{400},
			maxRetries: 2,
			wantHits:   1,
			wantErr:    true,
			terminal:   true,
		},
		{
			name:       "client error after transient",
			codes:      []int{500, 422},
			maxRetries: 2,
			wantHits:   2,
			wantErr:    true,
			terminal:   true,
			wantDelays: []time.Duration{500 * time.Millisecond},
		},
		{
			name:       "no retries configured",
			codes:      []int{500},
			maxRetries: 0,
			wantHits:   1,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(statusSequence(&hits, tt.codes...))
			defer srv.Close()
			c, delays := newTestClient(t, srv, Options{MaxRetries: tt.maxRetries})

			_, err := c.StoreMessage(context.Background(), MessagePayload{MessageID: "m"})

			assert.Equal(t, tt.wantHits, hits.Load())
			assert.Equal(t, tt.wantDelays, nilIfEmpty(*delays))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.terminal, IsTerminal(err))
			assert.Equal(t, !tt.terminal, IsTransient(err))
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.codes[len(tt.codes)-1], se.StatusCode)
		})
	}
}

func nilIfEmpty(d []time.Duration) []time.Duration {
	if len(d) == 0 {
		return nil
	}
	return d
}

func TestTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()
	defer close(release)

	c, delays := newTestClient(t, srv, Options{Timeout: 50 * time.Millisecond, MaxRetries: 1})

	_, err := c.SaveConversationMeta(context.Background(), ConversationMeta{GroupID: "g"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Len(t, *delays, 1)
}

func TestTransportErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, MaxRetries: 2}, zerolog.Nop())
	var attempts int
	c.sleep = func(context.Context, time.Duration) error { attempts++; return nil }

	_, err := c.StoreMessage(context.Background(), MessagePayload{MessageID: "m"})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "storeMessage")
	assert.Equal(t, 2, attempts)
}

func TestCancelledBackoffReturnsLastError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(statusSequence(&hits, 500, 500, 500))
	defer srv.Close()
	c, _ := newTestClient(t, srv, Options{MaxRetries: 2})
	c.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := c.StoreMessage(context.Background(), MessagePayload{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestUndecodableWriteReplyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("accepted"))
	}))
	defer srv.Close()
	c, _ := newTestClient(t, srv, Options{})

	resp, err := c.StoreMessage(context.Background(), MessagePayload{})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestSearchMemories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memories/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "auth flow", q.Get("query"))
		assert.Equal(t, "rrf", q.Get("retrieve_method"))
		assert.Equal(t, "episodic_memory,foresight", q.Get("memory_types"))
		assert.Equal(t, "5", q.Get("top_k"))
		assert.False(t, q.Has("group_id"))
		w.Write([]byte(`{"status":"ok","result":{
			"memories":[{"g1":[{"summary":"first"},{"summary":"second"}]},{"g2":[{"episode":"third"}]}],
			"scores":[{"g1":[0.9,0.8]}],
			"total_count":3}}`))
	}))
	defer srv.Close()
	c, _ := newTestClient(t, srv, Options{})

	resp, err := c.SearchMemories(context.Background(), SearchParams{
		Query: "auth flow", RetrieveMethod: "rrf", MemoryTypes: "episodic_memory,foresight", TopK: 5,
	})
	require.NoError(t, err)

	mems := resp.Result.Flatten()
	require.Len(t, mems, 3)
	assert.Equal(t, "first", mems[0].Summary)
	require.NotNil(t, mems[0].Score)
	assert.InDelta(t, 0.9, *mems[0].Score, 1e-9)
	assert.InDelta(t, 0.8, *mems[1].Score, 1e-9)
	assert.Equal(t, "third", mems[2].Episode)
	assert.Nil(t, mems[2].Score)
}

func TestFetchMemoriesRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "profile", r.URL.Query().Get("memory_type"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()
	c, _ := newTestClient(t, srv, Options{})

	_, err := c.FetchMemories(context.Background(), FetchParams{MemoryType: "profile", Limit: 3})
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{}`))
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.True(t, New(Options{BaseURL: ok.URL}, zerolog.Nop()).Probe(context.Background()))
	assert.False(t, New(Options{BaseURL: down.URL}, zerolog.Nop()).Probe(context.Background()))
	assert.False(t, New(Options{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop()).Probe(context.Background()))
}
