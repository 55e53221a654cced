package provider_test

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"priceoracle-service/internal/infrastructure/httpx"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func now() time.Time { return fixedNow }

// recorder answers by URL path and keeps the requests it saw.
type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	routes   map[string]func(r *http.Request) (int, string)
}

func newRecorder(routes map[string]func(r *http.Request) (int, string)) *recorder {
	return &recorder{routes: routes}
}

func (rec *recorder) client(attempts int) *httpx.Client {
	return &httpx.Client{
		HTTP: &http.Client{
			Timeout: 2 * time.Second,
			Transport: roundTripFunc(func(r *http.Request) *http.Response {
				rec.mu.Lock()
				rec.requests = append(rec.requests, r)
				rec.mu.Unlock()
				code, body := 404, `{"error":"no route"}`
				if h, ok := rec.routes[r.URL.Path]; ok {
					code, body = h(r)
				}
				return &http.Response{
					StatusCode: code,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     make(http.Header),
					Request:    r,
				}
			}),
		},
		Retrier: httpx.NewRetrier(attempts, 0, nil),
	}
}

func (rec *recorder) paths() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, 0, len(rec.requests))
	for _, r := range rec.requests {
		out = append(out, r.URL.Path)
	}
	return out
}

func (rec *recorder) last() *http.Request {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.requests[len(rec.requests)-1]
}

func reply(code int, body string) func(*http.Request) (int, string) {
	return func(*http.Request) (int, string) { return code, body }
}
