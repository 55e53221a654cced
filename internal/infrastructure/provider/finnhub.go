package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/httpx"
)

const FinnhubBaseURL = "https://finnhub.io"

type Finnhub struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Now     func() time.Time
	Log     *zap.Logger
}

var _ application.PriceProvider = (*Finnhub)(nil)

type finnhubQuote struct {
	Current       *looseFloat `json:"c"`
	Change        *looseFloat `json:"d"`
	ChangePercent *looseFloat `json:"dp"`
	PrevClose     *looseFloat `json:"pc"`
}

func (p *Finnhub) ID() domain.ProviderID { return domain.ProviderFinnhub }

func (p *Finnhub) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	if p.APIKey == "" {
		return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: "missing api key"}
	}
	ticker := domain.AssetClassStock.DisplaySymbol(symbol)
	base := p.BaseURL
	if base == "" {
		base = FinnhubBaseURL
	}
	u, err := buildURL(base, "/api/v1/quote", url.Values{"symbol": {ticker}, "token": {p.APIKey}})
	if err != nil {
		return domain.PriceRecord{}, fmt.Errorf("finnhub: %w", err)
	}

	return httpx.FetchJSON(ctx, p.Client, httpx.Request{Provider: p.ID(), URL: u}, func(q finnhubQuote) (domain.PriceRecord, error) {
		// finnhub answers unknown tickers with an all-zero quote
		if q.Current != nil && q.Current.v != nil && *q.Current.v == 0 {
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: "no quote for " + ticker}
		}
		price, err := requirePrice(p.ID(), "c", q.Current)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec, err := domain.NewPriceRecord(ticker, price, string(p.ID()), nowFn(p.Now))
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec.ChangeAbsolute = optional(q.Change)
		rec.ChangePercent = optional(q.ChangePercent)
		return rec, nil
	})
}
