package domain

import (
	"fmt"
	"strings"
)

type AssetClass string

const (
	AssetClassCrypto AssetClass = "crypto"
	AssetClassStock  AssetClass = "stock"
)

var AssetClasses = []AssetClass{AssetClassCrypto, AssetClassStock}

// ParseAssetClass accepts "crypto", "stock" and the "stocks" alias.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto":
		return AssetClassCrypto, nil
	case "stock", "stocks":
		return AssetClassStock, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAssetClass, s)
}

// DisplaySymbol applies the casing records of this class carry:
// lowercase for crypto, uppercase tickers for equities.
func (c AssetClass) DisplaySymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if c == AssetClassStock {
		return strings.ToUpper(symbol)
	}
	return strings.ToLower(symbol)
}

func CacheKey(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
