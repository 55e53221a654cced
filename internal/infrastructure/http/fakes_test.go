package httpserver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

type mapProvider struct {
	id     domain.ProviderID
	class  domain.AssetClass
	prices map[string]float64
	calls  int
	mu     sync.Mutex
}

func (p *mapProvider) ID() domain.ProviderID { return p.id }

func (p *mapProvider) Fetch(_ context.Context, symbol string) (domain.PriceRecord, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	price, ok := p.prices[domain.CacheKey(symbol)]
	if !ok {
		return domain.PriceRecord{}, &domain.APIError{Provider: string(p.id), Status: 404, Msg: "unknown symbol"}
	}
	return domain.NewPriceRecord(p.class.DisplaySymbol(symbol), price, string(p.id), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{byName: map[string]domain.User{}} }

func (m *memUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[u.Username]; ok {
		return domain.User{}, fmt.Errorf("%w: username taken", application.ErrConflict)
	}
	m.nextID++
	u.ID = m.nextID
	m.byName[u.Username] = u
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[username]
	if !ok {
		return domain.User{}, application.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.byName))
	for _, u := range m.byName {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[username]; !ok {
		return application.ErrNotFound
	}
	delete(m.byName, username)
	return nil
}

type memTokens struct {
	mu   sync.Mutex
	toks map[string]domain.APIToken
}

func newMemTokens() *memTokens { return &memTokens{toks: map[string]domain.APIToken{}} }

func (m *memTokens) Create(_ context.Context, t domain.APIToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toks[t.Token] = t
	return nil
}

func (m *memTokens) Get(_ context.Context, token string) (domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.toks[token]
	if !ok {
		return domain.APIToken{}, application.ErrNotFound
	}
	return t, nil
}

func (m *memTokens) DeleteByUsername(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.toks {
		if t.Username == username {
			delete(m.toks, k)
		}
	}
	return nil
}
