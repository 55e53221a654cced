package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/config"
	"priceoracle-service/internal/domain"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type fixture struct {
	handler http.Handler
	crypto  *mapProvider
	stocks  *mapProvider
}

func newFixture(t *testing.T, opts ...ServerOption) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Crypto.Symbols = []string{"btc", "eth"}
	cfg.Stocks.Symbols = []string{"AAPL"}

	f := &fixture{
		crypto: &mapProvider{id: domain.ProviderBinance, class: domain.AssetClassCrypto, prices: map[string]float64{"btc": 65000, "eth": 3000}},
		stocks: &mapProvider{id: domain.ProviderYahoo, class: domain.AssetClassStock},
	}
	o, err := application.NewOracle(cfg, []application.PriceProvider{f.crypto, f.stocks})
	require.NoError(t, err)
	f.handler = NewRouter(NewServer(application.NewSharedOracle(o), opts...))
	return f
}

func withUserService() ServerOption {
	return WithUsers(application.NewUserService(newMemUsers(), newMemTokens(), application.WithBcryptCost(bcrypt.MinCost)))
}

func (f *fixture) do(t *testing.T, method, target string, body any, hdr map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestReadyz_PingFailure(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	srv := NewServer(nil)
	srv.SetReadyCheck(func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	NewRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": "rid-1"})
	require.Equal(t, "rid-1", rec.Header().Get("X-Request-ID"))
}

func TestHealth_CountsCachedRecords(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/update/crypto", nil, nil)

	rec, resp := f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var h healthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &h))
	require.Equal(t, "healthy", h.Status)
	require.Equal(t, 2, h.TotalSymbols)
}

func TestGetPrice_FromCacheAfterUpdate(t *testing.T) {
	f := newFixture(t)
	rec, resp := f.do(t, http.MethodPost, "/update/crypto", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var upd updateResponse
	require.NoError(t, json.Unmarshal(resp.Data, &upd))
	require.Equal(t, updateResponse{AssetType: "crypto", Updated: 2}, upd)

	calls := f.crypto.calls
	rec, resp = f.do(t, http.MethodGet, "/price/crypto/BTC", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	var p priceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	require.Equal(t, 65000.0, p.Price)
	require.Equal(t, "binance", p.Source)
	require.Equal(t, domain.AssetClassCrypto, p.AssetType)
	require.Equal(t, calls, f.crypto.calls)
}

func TestGetPrice_Errors(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.do(t, http.MethodGet, "/price/forex/EURUSD", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)

	rec, resp = f.do(t, http.MethodGet, "/price/stock/ZZZZ", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, resp.Success)
}

func TestListPricesAndSymbols(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/update/all", nil, nil)

	rec, resp := f.do(t, http.MethodGet, "/prices/crypto", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prices []priceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &prices))
	require.Len(t, prices, 2)

	rec, resp = f.do(t, http.MethodGet, "/symbols?asset_type=stocks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var syms symbolsResponse
	require.NoError(t, json.Unmarshal(resp.Data, &syms))
	require.Empty(t, syms.Crypto)
	require.Equal(t, []string{"AAPL"}, syms.Stocks)

	_, resp = f.do(t, http.MethodGet, "/symbols", nil, nil)
	syms = symbolsResponse{}
	require.NoError(t, json.Unmarshal(resp.Data, &syms))
	require.Equal(t, []string{"btc", "eth"}, syms.Crypto)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/update/crypto", nil, nil)

	rec, resp := f.do(t, http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	require.EqualValues(t, 2, stats["total_crypto_symbols"])
	require.EqualValues(t, 34000, stats["avg_crypto_price"])
	require.NotContains(t, stats, "avg_stock_price")
}

func TestForceUpdate_AllSourcesFailedIsBadGateway(t *testing.T) {
	f := newFixture(t)
	rec, resp := f.do(t, http.MethodPost, "/update/stock", nil, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.False(t, resp.Success)
}

func TestForceUpdate_AllToleratesFailingClass(t *testing.T) {
	f := newFixture(t)
	rec, resp := f.do(t, http.MethodPost, "/update/all", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var upd updateResponse
	require.NoError(t, json.Unmarshal(resp.Data, &upd))
	require.Equal(t, updateResponse{AssetType: "all", Updated: 2}, upd)
}

func TestForceUpdate_DuplicateIdempotencyKey(t *testing.T) {
	f := newFixture(t, WithIdempotency(application.NewMemoryIdempotency(time.Minute, nil)))
	hdr := map[string]string{"X-Idempotency-Key": "k1"}

	rec, _ := f.do(t, http.MethodPost, "/update/crypto", nil, hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp := f.do(t, http.MethodPost, "/update/crypto", nil, hdr)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, resp.Success)
}

func TestUserRoutesAbsentWithoutUserService(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodPost, "/users/register", map[string]string{"username": "alice", "password": "password1"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth_RequiresToken(t *testing.T) {
	f := newFixture(t, withUserService())

	rec, resp := f.do(t, http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, resp.Success)

	rec, _ = f.do(t, http.MethodGet, "/stats", nil, map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture(t, withUserService())
	creds := map[string]string{"username": "alice", "password": "password1"}

	rec, resp := f.do(t, http.MethodPost, "/users/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tok tokenResponse
	require.NoError(t, json.Unmarshal(resp.Data, &tok))
	require.NotEmpty(t, tok.Token)

	rec, _ = f.do(t, http.MethodPost, "/users/register", creds, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/users/login", map[string]string{"username": "alice", "password": "wrong-pass"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = f.do(t, http.MethodPost, "/users/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &tok))
	auth := map[string]string{"Authorization": "Bearer " + tok.Token}

	rec, resp = f.do(t, http.MethodGet, "/users/profile", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var prof userProfile
	require.NoError(t, json.Unmarshal(resp.Data, &prof))
	require.Equal(t, "alice", prof.Username)

	rec, _ = f.do(t, http.MethodGet, "/stats?token="+tok.Token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/users/list", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var list userListResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Equal(t, 1, list.TotalCount)

	rec, _ = f.do(t, http.MethodPost, "/users/delete", map[string]string{"password": "password1"}, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/users/profile", nil, auth)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_InvalidBody(t *testing.T) {
	f := newFixture(t, withUserService())
	req := httptest.NewRequest(http.MethodPost, "/users/register", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec2, _ := f.do(t, http.MethodPost, "/users/register", map[string]string{"username": "bob", "password": "short"}, nil)
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}
