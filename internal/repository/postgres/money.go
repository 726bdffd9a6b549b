package postgres

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric columns are selected as ::text and parsed into decimals.

func parseNumeric(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric string")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func numericArg(d decimal.Decimal) string {
	return d.String()
}

// parseNumerics parses several numeric strings into their destinations.
func parseNumerics(pairs ...any) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("parseNumerics: odd argument count")
	}
	for i := 0; i < len(pairs); i += 2 {
		src, ok := pairs[i].(string)
		dst, ok2 := pairs[i+1].(*decimal.Decimal)
		if !ok || !ok2 {
			return fmt.Errorf("parseNumerics: argument %d has wrong type", i)
		}
		d, err := parseNumeric(src)
		if err != nil {
			return err
		}
		*dst = d
	}
	return nil
}
