package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CentsFromAmount converts a decimal amount to minor units, rounding half away from zero.
func CentsFromAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount is not finite")
	}
	if math.Abs(amount) > float64(math.MaxInt64)/100 {
		return 0, fmt.Errorf("amount out of range")
	}
	return int64(math.Round(amount * 100)), nil
}

func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// FormatCents renders minor units with exactly two decimals.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
}

// ParseAmount accepts plain decimal strings such as "10", "10.5" or "10.50".
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount: %w", err)
	}
	return CentsFromAmount(value)
}

func SumCents(values ...int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}
