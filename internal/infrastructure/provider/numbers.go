package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"priceoracle-service/internal/domain"
)

// parsePrice parses a required price field. Garbage, NaN and negative
// values are API errors, never a zero price.
func parsePrice(id domain.ProviderID, field, s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, &domain.APIError{Provider: string(id), Msg: fmt.Sprintf("invalid %s %q", field, s)}
	}
	if d.IsNegative() {
		return 0, &domain.APIError{Provider: string(id), Msg: fmt.Sprintf("negative %s %s", field, d)}
	}
	return d.InexactFloat64(), nil
}

// parseOptional degrades unparsable optional fields to nil.
func parseOptional(s string) *float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return domain.Float(d.InexactFloat64())
}

// looseFloat decodes a JSON number or numeric string. Any other value
// leaves it unset instead of failing the whole document.
type looseFloat struct {
	raw string
	v   *float64
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	f.raw = s
	f.v = parseOptional(s)
	return nil
}

func requirePrice(id domain.ProviderID, field string, f *looseFloat) (float64, error) {
	if f == nil || f.raw == "" {
		return 0, &domain.APIError{Provider: string(id), Msg: "missing " + field}
	}
	if f.v == nil {
		return 0, &domain.APIError{Provider: string(id), Msg: fmt.Sprintf("invalid %s %q", field, f.raw)}
	}
	if err := domain.CheckPrice(*f.v); err != nil {
		return 0, &domain.APIError{Provider: string(id), Msg: fmt.Sprintf("%s: %v", field, err)}
	}
	return *f.v, nil
}

func optional(f *looseFloat) *float64 {
	if f == nil || f.v == nil {
		return nil
	}
	return domain.Float(*f.v)
}

// changeFrom derives absolute and percent change of price against a
// reference (open or previous close).
func changeFrom(price float64, ref *float64) (abs, pct *float64) {
	if ref == nil || *ref <= 0 {
		return nil, nil
	}
	p := decimal.NewFromFloat(price)
	r := decimal.NewFromFloat(*ref)
	diff := p.Sub(r)
	return domain.Float(diff.InexactFloat64()), domain.Float(diff.Div(r).Mul(decimal.NewFromInt(100)).InexactFloat64())
}

func buildURL(base, path string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func nowFn(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}

func logOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func checkSymbol(symbol string) (string, error) {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return "", domain.ErrEmptySymbol
	}
	return s, nil
}
