package collector

import (
	"fmt"
	"regexp"
	"strings"
)

// AssetClass tells a collector how to spell a bare pair for its source.
type AssetClass string

const (
	AssetAuto   AssetClass = ""
	AssetForex  AssetClass = "forex"
	AssetCrypto AssetClass = "crypto"
	AssetOther  AssetClass = "other"
)

var currencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"AUD": true, "NZD": true, "CAD": true, "SEK": true, "NOK": true,
	"DKK": true, "SGD": true, "HKD": true, "CNH": true, "MXN": true,
	"ZAR": true, "TRY": true, "PLN": true,
}

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

var validPair = regexp.MustCompile(`^[A-Za-z0-9]{1,12}([-/_=.][A-Za-z0-9]{1,6})?$`)

// ValidatePair checks if a pair has valid format
func ValidatePair(pair string) error {
	if pair == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if len(pair) > 20 {
		return fmt.Errorf("pair too long: %s", pair)
	}
	if !validPair.MatchString(pair) {
		return fmt.Errorf("invalid pair format: %s", pair)
	}
	return nil
}

// Classify guesses the asset class of a pair: six letters made of two known
// currency codes is forex, anything ending in a stablecoin or with a dash
// quote is crypto.
func Classify(pair string) AssetClass {
	s := strings.ToUpper(pair)
	switch {
	case strings.HasSuffix(s, "=X"):
		return AssetForex
	case len(s) == 6 && currencies[s[:3]] && currencies[s[3:]]:
		return AssetForex
	case strings.Contains(s, "-"):
		return AssetCrypto
	}
	for _, q := range quoteCurrencies {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return AssetCrypto
		}
	}
	return AssetOther
}

// ForexPair formats a currency pair for Yahoo: ("EUR", "USD") -> "EURUSD=X".
func ForexPair(base, quote string) string {
	return strings.ToUpper(base+quote) + "=X"
}

// CryptoPair formats a crypto pair for Yahoo: ("BTC", "") -> "BTC-USD".
func CryptoPair(base, quote string) string {
	if quote == "" {
		quote = "USD"
	}
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

// NormalizeSymbol converts various crypto input formats to exchange format
// Input formats: "BTC", "btc", "BTC-USDT", "BTC/USDT", "btcusdt"
// Output: "BTCUSDT"
func NormalizeSymbol(input string, defaultQuote string) string {
	if input == "" {
		return ""
	}

	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")

	// Ensure there's a base currency left (symbol must be longer than quote)
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}

	return s + strings.ToUpper(defaultQuote)
}

// BaseSymbol strips source decorations so results and files use the bare
// pair name: "EURUSD=X" -> "EURUSD", "BTC-USD" -> "BTCUSD".
func BaseSymbol(symbol string) string {
	s := strings.TrimSuffix(strings.ToUpper(symbol), "=X")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}
