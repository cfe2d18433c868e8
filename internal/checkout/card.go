package checkout

import (
	"strings"
	"time"

	"storefront/internal/domain"
)

// Card is the payment instrument typed by the shopper.
type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Digits returns the card number without spaces or dashes.
func (c Card) Digits() string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, c.Number)
}

// Validate reports the first incomplete or malformed field.
func (c Card) Validate(now time.Time) error {
	num := c.Digits()
	switch {
	case num == "":
		return domain.Invalid("card.number", "required")
	case len(num) < 12 || len(num) > 19 || !allDigits(num):
		return domain.Invalid("card.number", "must be 12 to 19 digits")
	case !luhn(num):
		return domain.Invalid("card.number", "is not a valid card number")
	}

	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return domain.Invalid("card.expMonth", "must be between 1 and 12")
	}
	year := c.ExpYear
	if year > 0 && year < 100 {
		year += 2000
	}
	if year == 0 {
		return domain.Invalid("card.expYear", "required")
	}
	// Cards are valid through the last day of the expiry month.
	expires := time.Date(year, time.Month(c.ExpMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expires) {
		return domain.Invalid("card.expYear", "card has expired")
	}

	if l := len(c.CVC); l < 3 || l > 4 || !allDigits(c.CVC) {
		return domain.Invalid("card.cvc", "must be 3 or 4 digits")
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func luhn(num string) bool {
	sum := 0
	double := false
	for i := len(num) - 1; i >= 0; i-- {
		d := int(num[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
