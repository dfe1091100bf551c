package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches money text like "$12.50", "Pot: 1,234" or
// "12,50". Currency markers and labels around the number are ignored.
var amountPattern = regexp.MustCompile(`(?:[$€¥£])?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)`)

// thousandsPattern recognizes comma-grouped integers so "1,234" is not
// read as a decimal.
var thousandsPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)

// ParseAmount extracts the first money amount from OCR text. Comma
// decimals are normalized; comma thousands separators are stripped.
func ParseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	num := m[1]
	if thousandsPattern.MatchString(num) {
		num = strings.ReplaceAll(num, ",", "")
	} else {
		num = strings.ReplaceAll(num, ",", ".")
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
