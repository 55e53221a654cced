package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"priceoracle-service/internal/domain"
)

const maxBodyBytes = 4 << 20

type Client struct {
	HTTP      *http.Client
	Retrier   *Retrier
	UserAgent string
}

func New(timeout time.Duration, r *Retrier) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		Retrier:   r,
		UserAgent: "Mozilla/5.0 (compatible; priceoracle/1.0)",
	}
}

type Request struct {
	Provider domain.ProviderID
	URL      string
	Header   http.Header
}

// FetchJSON GETs req.URL, decodes the body into R and hands it to parse.
// The whole sequence, parse included, runs under the client's Retrier.
func FetchJSON[R any, T any](ctx context.Context, c *Client, req Request, parse func(R) (T, error)) (T, error) {
	return Retry(ctx, c.Retrier, func() (T, error) {
		var raw R
		if err := c.getJSON(ctx, req, &raw); err != nil {
			var zero T
			return zero, err
		}
		return parse(raw)
	})
}

func (c *Client) getJSON(ctx context.Context, r Request, out any) error {
	provider := string(r.Provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return &domain.APIError{Provider: provider, Msg: fmt.Sprintf("build request: %v", err)}
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return &domain.NetworkError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.NetworkError{Provider: provider, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.APIError{Provider: provider, Status: resp.StatusCode, Msg: snippet(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.APIError{Provider: provider, Status: resp.StatusCode, Msg: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
