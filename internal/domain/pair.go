package domain

import (
	"fmt"
	"strings"
)

// Pair identifies a (crypto-asset, fiat-currency) market on the P2P
// marketplace, e.g. USDT/VES.
type Pair struct {
	Asset string
	Fiat  string
}

// NewPair creates a Pair with upper-cased asset and fiat codes.
func NewPair(asset, fiat string) Pair {
	return Pair{
		Asset: strings.ToUpper(strings.TrimSpace(asset)),
		Fiat:  strings.ToUpper(strings.TrimSpace(fiat)),
	}
}

// ParsePair parses a "ASSET/FIAT" string such as "USDT/VES".
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q: want ASSET/FIAT", s)
	}
	return NewPair(parts[0], parts[1]), nil
}

// String returns the canonical "ASSET/FIAT" form.
func (p Pair) String() string {
	return p.Asset + "/" + p.Fiat
}

// Key returns a lower-cased "asset_fiat" identifier safe for cache keys
// and object paths.
func (p Pair) Key() string {
	return strings.ToLower(p.Asset) + "_" + strings.ToLower(p.Fiat)
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Asset == "" && p.Fiat == ""
}
