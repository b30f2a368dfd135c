package utils

import "strings"

// NormalizeTicker canonicalizes a user-supplied ticker symbol: trimmed,
// upper-cased, with any exchange suffix such as ".US" removed.
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if i := strings.IndexByte(t, '.'); i > 0 {
		t = t[:i]
	}
	return t
}

// ValidTicker reports whether a normalized ticker looks like an exchange
// symbol: 1-6 characters, letters and digits only.
func ValidTicker(ticker string) bool {
	if len(ticker) == 0 || len(ticker) > 6 {
		return false
	}
	for _, c := range ticker {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
