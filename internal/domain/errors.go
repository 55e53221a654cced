package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPriceNotFound     = errors.New("price not found")
	ErrConfig            = errors.New("config error")
	ErrAllSourcesFailed  = errors.New("all sources failed")
	ErrEmptySymbol       = errors.New("empty symbol")
	ErrUnknownAssetClass = errors.New("unknown asset class")
	ErrInvalidPrice      = errors.New("invalid price")
)

// NetworkError is a transport level failure (dial, timeout, reset).
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response or a payload the provider could not be
// understood from.
type APIError struct {
	Provider string
	Status   int
	Msg      string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}
