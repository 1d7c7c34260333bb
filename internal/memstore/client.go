// Package memstore is a client for the EverMemOS memory API.
//
// Every request attempt is bounded by a timeout. Responses in the 4xx range
// fail at once; 5xx responses, transport errors and timeouts are retried
// with exponential backoff. The client never deduplicates requests.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxResponseSize = 8 * 1024 * 1024 // 8MB

type Options struct {
	BaseURL        string
	Timeout        time.Duration
	ProbeTimeout   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
	log     zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{},
		opts:    opts,
		sleep:   sleepContext,
		log:     log,
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.StatusCode, e.Body)
}

// Terminal reports whether retrying cannot help.
func (e *StatusError) Terminal() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsTerminal reports whether err is a client-error response.
func IsTerminal(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Terminal()
}

// IsTransient reports whether err is a failure worth retrying later.
func IsTransient(err error) bool {
	return err != nil && !IsTerminal(err)
}

// Probe checks that the store answers within the probe timeout.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/memories?limit=1", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("store probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) StoreMessage(ctx context.Context, p MessagePayload) (*Response[MemorizeResult], error) {
	c.log.Debug().Str("message_id", p.MessageID).Msg("POST /api/v1/memories")
	body, err := c.do(ctx, "storeMessage", http.MethodPost, "/api/v1/memories", p)
	if err != nil {
		return nil, err
	}
	return decodeLenient[MemorizeResult](c.log, body), nil
}

func (c *Client) SaveConversationMeta(ctx context.Context, m ConversationMeta) (*Response[json.RawMessage], error) {
	c.log.Debug().Str("group_id", m.GroupID).Msg("POST /api/v1/memories/conversation-meta")
	body, err := c.do(ctx, "saveConversationMeta", http.MethodPost, "/api/v1/memories/conversation-meta", m)
	if err != nil {
		return nil, err
	}
	return decodeLenient[json.RawMessage](c.log, body), nil
}

func (c *Client) SearchMemories(ctx context.Context, p SearchParams) (*Response[SearchResult], error) {
	q := url.Values{}
	setParam(q, "query", p.Query)
	setParam(q, "retrieve_method", p.RetrieveMethod)
	setParam(q, "memory_types", p.MemoryTypes)
	setParam(q, "user_id", p.UserID)
	setParam(q, "group_id", p.GroupID)
	if p.TopK > 0 {
		q.Set("top_k", strconv.Itoa(p.TopK))
	}

	path := "/api/v1/memories/search?" + q.Encode()
	c.log.Debug().Msg("GET " + path)
	body, err := c.do(ctx, "searchMemories", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp Response[SearchResult]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("searchMemories: decode response: %w", err)
	}
	return &resp, nil
}

func (c *Client) FetchMemories(ctx context.Context, p FetchParams) (*Response[FetchResult], error) {
	q := url.Values{}
	setParam(q, "memory_type", p.MemoryType)
	setParam(q, "user_id", p.UserID)
	setParam(q, "group_id", p.GroupID)
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}

	path := "/api/v1/memories?" + q.Encode()
	c.log.Debug().Msg("GET " + path)
	body, err := c.do(ctx, "fetchMemories", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp Response[FetchResult]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fetchMemories: decode response: %w", err)
	}
	return &resp, nil
}

// Close drops idle connections so nothing outlives the invocation.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// do sends one logical request, retrying transient failures. The delay
// before retry n (1-based) is RetryBaseDelay * 2^(n-1).
func (c *Client) do(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.opts.RetryBaseDelay << (attempt - 1)
			c.log.Warn().Err(lastErr).Str("op", op).
				Msgf("retry %d/%d after %s", attempt, c.opts.MaxRetries, delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		body, status, err := c.attempt(ctx, method, path, payload)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%s: %w", op, err)
		case status >= 200 && status < 300:
			return body, nil
		case status >= 400 && status < 500:
			return nil, &StatusError{Op: op, StatusCode: status, Body: string(body)}
		default:
			lastErr = &StatusError{Op: op, StatusCode: status, Body: string(body)}
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("timeout after %s: %w", c.opts.Timeout, err)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// decodeLenient parses a write acknowledgement. The store's reply is not
// validated beyond its status code, so an undecodable body is not an error.
func decodeLenient[T any](log zerolog.Logger, body []byte) *Response[T] {
	var resp Response[T]
	if len(body) == 0 {
		return &resp
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Debug().Err(err).Msg("ignoring undecodable store reply")
	}
	return &resp
}

func setParam(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
