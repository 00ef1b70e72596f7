package inventory

import (
	"strconv"
	"strings"
)

// FormatGold renders a currency amount with thousands separators.
//
// Precondition: n >= 0.
// Postcondition: FormatGold(1234567) == "1,234,567 gold".
func FormatGold(n int) string {
	digits := strconv.Itoa(n)
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	b.WriteString(" gold")
	return b.String()
}
