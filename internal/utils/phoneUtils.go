package utils

import "strings"

// NormalizePhoneNumber converts a local or international phone number to
// E.164-like form for the given country calling code (without "+").
//
//	"0812-3456 789" -> "+628123456789"
//	"628123456789"  -> "+628123456789"
//	"8123456789"    -> "+628123456789"
//	"+6281234"      -> "+6281234"
func NormalizePhoneNumber(phone, countryCode string) string {
	normalized := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '-' {
			return -1
		}
		return r
	}, phone)

	switch {
	case strings.HasPrefix(normalized, "0"):
		return "+" + countryCode + normalized[1:]
	case strings.HasPrefix(normalized, countryCode):
		return "+" + normalized
	case !strings.HasPrefix(normalized, "+"):
		return "+" + countryCode + normalized
	}
	return normalized
}
