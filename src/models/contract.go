package models

import "strings"

const (
	QuoteAsset        = "USDT"
	ContractPerpetual = "PERPETUAL"
	tagSuffix         = "/USDT:USDT"
)

// MContractSymbol is an exchange-native perpetual identifier such as BTCUSDT.
type MContractSymbol string

// IsUSDT reports whether the symbol carries the USDT quote suffix.
func (s MContractSymbol) IsUSDT() bool {
	return strings.HasSuffix(string(s), QuoteAsset) && len(s) > len(QuoteAsset)
}

// Base strips the quote suffix and upper-cases what remains.
func (s MContractSymbol) Base() string {
	return strings.ToUpper(strings.TrimSuffix(string(s), QuoteAsset))
}

// Tag is the downstream pair identifier, e.g. SOL/USDT:USDT.
func (s MContractSymbol) Tag() string {
	return TagForBase(s.Base())
}

func (s MContractSymbol) String() string {
	return string(s)
}

func TagForBase(base string) string {
	return strings.ToUpper(base) + tagSuffix
}
