package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"priceoracle-service/internal/domain"
)

var errDown = errors.New("provider down")

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

// callLog records provider calls across providers in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type stubProvider struct {
	id     domain.ProviderID
	prices map[string]float64
	log    *callLog
}

func (s *stubProvider) ID() domain.ProviderID { return s.id }

func (s *stubProvider) Fetch(_ context.Context, symbol string) (domain.PriceRecord, error) {
	if s.log != nil {
		s.log.add(string(s.id) + ":" + symbol)
	}
	p, ok := s.prices[domain.CacheKey(symbol)]
	if !ok {
		return domain.PriceRecord{}, errDown
	}
	return domain.PriceRecord{Symbol: domain.CacheKey(symbol), Price: p, Source: string(s.id)}, nil
}

type mockProvider struct {
	mock.Mock
	id domain.ProviderID
}

func (m *mockProvider) ID() domain.ProviderID { return m.id }

func (m *mockProvider) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.PriceRecord), args.Error(1)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	next  int64
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{users: map[string]domain.User{}} }

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return domain.User{}, ErrConflict
	}
	f.next++
	u.ID = f.next
	f.users[u.Username] = u
	return u, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		return ErrNotFound
	}
	delete(f.users, username)
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.APIToken
	err    error
}

func newFakeTokenRepo() *fakeTokenRepo { return &fakeTokenRepo{tokens: map[string]domain.APIToken{}} }

func (f *fakeTokenRepo) Create(_ context.Context, t domain.APIToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeTokenRepo) Get(_ context.Context, token string) (domain.APIToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return domain.APIToken{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeTokenRepo) DeleteByUsername(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, t := range f.tokens {
		if t.Username == username {
			delete(f.tokens, k)
		}
	}
	return nil
}

type seqTokens struct{ n int }

func (s *seqTokens) NewToken() string {
	s.n++
	return "tok-" + string(rune('0'+s.n))
}

// gateProvider blocks every fetch until release is closed.
type gateProvider struct {
	id      domain.ProviderID
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateProvider(id domain.ProviderID) *gateProvider {
	return &gateProvider{id: id, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateProvider) ID() domain.ProviderID { return g.id }

func (g *gateProvider) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return domain.PriceRecord{}, ctx.Err()
	}
	return domain.PriceRecord{Symbol: domain.CacheKey(symbol), Price: 42, Source: string(g.id)}, nil
}
