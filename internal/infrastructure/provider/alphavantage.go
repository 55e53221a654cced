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

const AlphaVantageBaseURL = "https://www.alphavantage.co"

type AlphaVantage struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Now     func() time.Time
	Log     *zap.Logger
}

var _ application.PriceProvider = (*AlphaVantage)(nil)

type alphaVantageResp struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

func (p *AlphaVantage) ID() domain.ProviderID { return domain.ProviderAlphaVantage }

func (p *AlphaVantage) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
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
		base = AlphaVantageBaseURL
	}
	u, err := buildURL(base, "/query", url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {ticker},
		"apikey":   {p.APIKey},
	})
	if err != nil {
		return domain.PriceRecord{}, fmt.Errorf("alpha_vantage: %w", err)
	}

	return httpx.FetchJSON(ctx, p.Client, httpx.Request{Provider: p.ID(), URL: u}, func(body alphaVantageResp) (domain.PriceRecord, error) {
		switch {
		case body.ErrorMessage != "":
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: body.ErrorMessage}
		case body.Note != "":
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: body.Note}
		case body.Information != "":
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: body.Information}
		case len(body.GlobalQuote) == 0:
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: "no quote for " + ticker}
		}
		q := body.GlobalQuote
		price, err := parsePrice(p.ID(), "price", q["05. price"])
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec, err := domain.NewPriceRecord(ticker, price, string(p.ID()), nowFn(p.Now))
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec.ChangeAbsolute = parseOptional(q["09. change"])
		rec.ChangePercent = parseOptional(q["10. change percent"])
		rec.Volume = parseOptional(q["06. volume"])
		return rec, nil
	})
}
