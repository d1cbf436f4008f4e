// Package phone canonicalizes subscriber numbers into the +<country><subscriber>
// form used as the customer identity key. Normalization is applied at every
// boundary that accepts a phone number and is idempotent.
package phone

import "strings"

// DefaultCountryPrefix is used when no explicit prefix is configured.
const DefaultCountryPrefix = "+961"

// Normalize strips everything except digits and a leading +, replaces a
// leading 0 with the country prefix, and prepends the prefix when the number
// carries none. Normalizing an already-normalized number is a no-op.
func Normalize(raw, countryPrefix string) string {
	if countryPrefix == "" {
		countryPrefix = DefaultCountryPrefix
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	// Only a leading + survives cleaning.
	p := b.String()
	if i := strings.IndexByte(p, '+'); i > 0 {
		p = strings.ReplaceAll(p, "+", "")
	} else if i == 0 {
		p = "+" + strings.ReplaceAll(p[1:], "+", "")
	}

	if strings.HasPrefix(p, "0") {
		p = countryPrefix + p[1:]
	}
	if !strings.HasPrefix(p, "+") {
		p = countryPrefix + p
	}
	return p
}
