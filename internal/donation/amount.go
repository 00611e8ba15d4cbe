package donation

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// amountContext bounds decimal arithmetic for donation amounts. 16 digits
// of precision covers any plausible donation total without rounding cents.
var amountContext = apd.BaseContext.WithPrecision(16)

// ParseAmount parses a decimal amount string ("125.50") into an exact
// decimal. Returns a ValidationError with code BAD_AMOUNT when the string
// is not a valid decimal number.
func ParseAmount(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, &ValidationError{
			Code:    ErrCodeBadAmount,
			Field:   "amount",
			Message: fmt.Sprintf("not a decimal number: %q", s),
		}
	}
	return d, nil
}

// AddAmount returns a+b using the shared amount context. Used by the
// store's statistics queries to total amounts without losing exactness.
func AddAmount(a, b *apd.Decimal) (*apd.Decimal, error) {
	sum := new(apd.Decimal)
	if _, err := amountContext.Add(sum, a, b); err != nil {
		return nil, fmt.Errorf("add amounts: %w", err)
	}
	return sum, nil
}

// ZeroAmount returns a fresh zero decimal.
func ZeroAmount() *apd.Decimal {
	return apd.New(0, 0)
}
