package domain

type ProviderID string

const (
	ProviderBinance      ProviderID = "binance"
	ProviderCoinbase     ProviderID = "coinbase"
	ProviderCoinGecko    ProviderID = "coingecko"
	ProviderAlphaVantage ProviderID = "alpha_vantage"
	ProviderFinnhub      ProviderID = "finnhub"
	ProviderYahoo        ProviderID = "yahoo_finance"
)

// Credentialed providers are only usable when an API key is configured.
func (p ProviderID) Credentialed() bool {
	switch p {
	case ProviderCoinbase, ProviderAlphaVantage, ProviderFinnhub:
		return true
	}
	return false
}

// PreferenceOrder is the fixed order providers of a class are attempted in.
func PreferenceOrder(c AssetClass) []ProviderID {
	switch c {
	case AssetClassCrypto:
		return []ProviderID{ProviderBinance, ProviderCoinbase, ProviderCoinGecko}
	case AssetClassStock:
		return []ProviderID{ProviderAlphaVantage, ProviderFinnhub, ProviderYahoo}
	}
	return nil
}
