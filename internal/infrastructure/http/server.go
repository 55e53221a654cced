package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

type Server struct {
	oracle  *application.SharedOracle
	users   *application.UserService
	idem    application.IdempotencyStore
	metrics http.Handler
	ping    func(ctx context.Context) error
}

type ServerOption func(*Server)

// WithUsers enables the user endpoints and token authentication. Without
// it the API is open.
func WithUsers(u *application.UserService) ServerOption { return func(s *Server) { s.users = u } }

func WithIdempotency(st application.IdempotencyStore) ServerOption {
	return func(s *Server) { s.idem = st }
}

func WithMetrics(h http.Handler) ServerOption { return func(s *Server) { s.metrics = h } }

func NewServer(oracle *application.SharedOracle, opts ...ServerOption) *Server {
	s := &Server{oracle: oracle}
	for _, opt := range opts {
		opt(s)
	}
	if s.idem == nil {
		s.idem = application.NoopIdempotency{}
	}
	return s
}

func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

type priceResponse struct {
	domain.PriceRecord
	AssetType domain.AssetClass `json:"asset_type"`
}

type healthResponse struct {
	Status       string `json:"status"`
	LastUpdate   string `json:"last_update"`
	TotalSymbols int    `json:"total_symbols"`
}

type symbolsResponse struct {
	Crypto []string `json:"crypto,omitempty"`
	Stocks []string `json:"stocks,omitempty"`
}

type updateResponse struct {
	AssetType string `json:"asset_type"`
	Updated   int    `json:"updated"`
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	total := 0
	for _, c := range domain.AssetClasses {
		total += len(s.oracle.GetAllPrices(c))
	}
	writeData(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		LastUpdate:   s.oracle.LastUpdate().UTC().Format(time.RFC3339),
		TotalSymbols: total,
	})
}

func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	class, err := domain.ParseAssetClass(chi.URLParam(r, "asset_type"))
	if err != nil {
		fail(w, r, err)
		return
	}
	rec, err := s.oracle.GetPrice(r.Context(), class, chi.URLParam(r, "symbol"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, priceResponse{PriceRecord: rec, AssetType: class})
}

func (s *Server) ListPrices(w http.ResponseWriter, r *http.Request) {
	class, err := domain.ParseAssetClass(chi.URLParam(r, "asset_type"))
	if err != nil {
		fail(w, r, err)
		return
	}
	recs := s.oracle.GetAllPrices(class)
	out := make([]priceResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, priceResponse{PriceRecord: rec, AssetType: class})
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) ListSymbols(w http.ResponseWriter, r *http.Request) {
	var resp symbolsResponse
	switch at := r.URL.Query().Get("asset_type"); at {
	case "", "all":
		resp.Crypto = s.oracle.GetSymbols(domain.AssetClassCrypto)
		resp.Stocks = s.oracle.GetSymbols(domain.AssetClassStock)
	default:
		class, err := domain.ParseAssetClass(at)
		if err != nil {
			fail(w, r, err)
			return
		}
		if class == domain.AssetClassCrypto {
			resp.Crypto = s.oracle.GetSymbols(class)
		} else {
			resp.Stocks = s.oracle.GetSymbols(class)
		}
	}
	writeData(w, http.StatusOK, resp)
}

func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.oracle.Statistics())
}

// ForceUpdate refreshes one class, or both for "all". A repeated
// X-Idempotency-Key inside its TTL is rejected with 409.
func (s *Server) ForceUpdate(w http.ResponseWriter, r *http.Request) {
	at := chi.URLParam(r, "asset_type")
	var class domain.AssetClass
	if at != "all" {
		c, err := domain.ParseAssetClass(at)
		if err != nil {
			fail(w, r, err)
			return
		}
		class = c
	}

	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		ok, err := s.idem.TryReserve(r.Context(), key)
		if err != nil {
			fail(w, r, fmt.Errorf("reserve idempotency key: %w", err))
			return
		}
		if !ok {
			fail(w, r, fmt.Errorf("%w: duplicate idempotency key", application.ErrConflict))
			return
		}
	}

	if class == "" {
		n := s.oracle.UpdateAllPrices(r.Context())
		writeData(w, http.StatusOK, updateResponse{AssetType: "all", Updated: n})
		return
	}
	n, err := s.oracle.Update(r.Context(), class)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, updateResponse{AssetType: string(class), Updated: n})
}
