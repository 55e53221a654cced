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

const YahooBaseURL = "https://query1.finance.yahoo.com"

type Yahoo struct {
	BaseURL string
	Client  *httpx.Client
	Now     func() time.Time
	Log     *zap.Logger
}

var _ application.PriceProvider = (*Yahoo)(nil)

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol              string      `json:"symbol"`
				RegularMarketPrice  *looseFloat `json:"regularMarketPrice"`
				PreviousClose       *looseFloat `json:"previousClose"`
				ChartPreviousClose  *looseFloat `json:"chartPreviousClose"`
				RegularMarketVolume *looseFloat `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *Yahoo) ID() domain.ProviderID { return domain.ProviderYahoo }

func (p *Yahoo) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	ticker := domain.AssetClassStock.DisplaySymbol(symbol)
	base := p.BaseURL
	if base == "" {
		base = YahooBaseURL
	}
	u, err := buildURL(base, "/v8/finance/chart/"+ticker, url.Values{"interval": {"1d"}, "range": {"1d"}})
	if err != nil {
		return domain.PriceRecord{}, fmt.Errorf("yahoo_finance: %w", err)
	}

	return httpx.FetchJSON(ctx, p.Client, httpx.Request{Provider: p.ID(), URL: u}, func(body yahooChartResp) (domain.PriceRecord, error) {
		if body.Chart.Error != nil {
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: body.Chart.Error.Code + ": " + body.Chart.Error.Description}
		}
		if len(body.Chart.Result) == 0 {
			return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: "no chart for " + ticker}
		}
		meta := body.Chart.Result[0].Meta
		price, err := requirePrice(p.ID(), "regularMarketPrice", meta.RegularMarketPrice)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec, err := domain.NewPriceRecord(ticker, price, string(p.ID()), nowFn(p.Now))
		if err != nil {
			return domain.PriceRecord{}, err
		}
		prev := optional(meta.PreviousClose)
		if prev == nil {
			prev = optional(meta.ChartPreviousClose)
		}
		rec.ChangeAbsolute, rec.ChangePercent = changeFrom(price, prev)
		rec.Volume = optional(meta.RegularMarketVolume)
		return rec, nil
	})
}
