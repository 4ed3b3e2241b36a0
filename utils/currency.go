package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatCurrencyAOA formats an amount in Angolan Kwanza the way pt-AO
// renders it.
// Example: 25000 -> "25.000,00 Kz"
func FormatCurrencyAOA(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	cents := int64(math.Round(amount * 100))
	integerPart := fmt.Sprintf("%d", cents/100)
	decimalPart := fmt.Sprintf("%02d", cents%100)

	// thousands separators
	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	formatted := strings.Join(groups, ".") + "," + decimalPart + " Kz"
	if negative {
		return "-" + formatted
	}
	return formatted
}
