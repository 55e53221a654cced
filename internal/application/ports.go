package application

import (
	"context"
	"time"

	"priceoracle-service/internal/domain"
)

// PriceProvider turns one symbol into a normalized price record.
type PriceProvider interface {
	ID() domain.ProviderID
	Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error)
}

type UserRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, username string) error
}

type TokenRepo interface {
	Create(ctx context.Context, t domain.APIToken) error
	Get(ctx context.Context, token string) (domain.APIToken, error)
	DeleteByUsername(ctx context.Context, username string) error
}

// Observer receives measurements from the oracle; the metrics package
// implements it.
type Observer interface {
	ProviderResult(id domain.ProviderID, err error)
	CacheSize(class domain.AssetClass, n int)
	UpdateDuration(class domain.AssetClass, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ProviderResult(domain.ProviderID, error)         {}
func (noopObserver) CacheSize(domain.AssetClass, int)                {}
func (noopObserver) UpdateDuration(domain.AssetClass, time.Duration) {}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// UnitOfWork runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopUoW runs fn directly.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Worker runs until ctx is canceled.
type Worker interface {
	Start(ctx context.Context)
}
