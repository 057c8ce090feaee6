package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Card number length bounds accepted by the network simulator.
const (
	MinCardNumberLength = 13
	MaxCardNumberLength = 19
)

var cvvRe = regexp.MustCompile(`^[0-9]{3,4}$`)

// ErrMalformedExpiry is returned by ParseExpiry for anything that is not MM/YY or MM/YYYY.
var ErrMalformedExpiry = errors.New("malformed expiry date")

// NormalizeCardNumber strips whitespace and dashes from a card number.
func NormalizeCardNumber(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// ValidateCardNumber reports whether raw is a 13-19 digit number that passes the Luhn checksum.
// Whitespace and dashes are ignored.
func ValidateCardNumber(raw string) bool {
	number := NormalizeCardNumber(raw)
	if len(number) < MinCardNumberLength || len(number) > MaxCardNumberLength {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return passesLuhn(number)
}

// passesLuhn expects an all-digit string.
func passesLuhn(number string) bool {
	sum := 0
	for i := 0; i < len(number); i++ {
		n := int(number[len(number)-1-i] - '0')
		if i%2 == 1 {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
	}
	return sum%10 == 0
}

// ValidateCVV reports whether raw is exactly 3 or 4 decimal digits.
func ValidateCVV(raw string) bool {
	return cvvRe.MatchString(raw)
}

// Expiry is a card expiry normalized to a four-digit year.
type Expiry struct {
	Month int
	Year  int
}

// maxExpiryYear is the largest four-digit year.
const maxExpiryYear = 9999

// ParseExpiry parses "MM/YY" or "MM/YYYY". Two-digit years are offset by 2000.
func ParseExpiry(raw string) (Expiry, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return Expiry{}, ErrMalformedExpiry
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Expiry{}, ErrMalformedExpiry
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || year < 0 || year > maxExpiryYear {
		return Expiry{}, ErrMalformedExpiry
	}
	if month < 1 || month > 12 {
		return Expiry{}, ErrMalformedExpiry
	}
	if year < 100 {
		year += 2000
	}
	return Expiry{Month: month, Year: year}, nil
}

// ActiveAt reports whether the card is still usable at now. A card is valid through
// the whole of its expiry month; the day of month is ignored.
func (e Expiry) ActiveAt(now time.Time) bool {
	if e.Year != now.Year() {
		return e.Year > now.Year()
	}
	return e.Month >= int(now.Month())
}

// ValidateExpiry reports whether raw parses and is not earlier than now's month.
func ValidateExpiry(raw string, now time.Time) bool {
	exp, err := ParseExpiry(raw)
	if err != nil {
		return false
	}
	return exp.ActiveAt(now)
}
