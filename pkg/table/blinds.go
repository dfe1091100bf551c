package table

import (
	"regexp"
	"strconv"
	"strings"
)

// blindsPattern matches stake pairs like "$0.50 / $1.00", "€2/€4" or
// "100/200" in a table window title. Currency markers are optional.
var blindsPattern = regexp.MustCompile(`(?:[$€¥£C]|BB)?\s*(\d+(?:[.,]\d+)?)\s*/\s*(?:[$€¥£C]|BB)?\s*(\d+(?:[.,]\d+)?)`)

// Windows whose titles never carry stakes.
var blindsBlacklist = []string{"lobby", "manager", "login"}

// ParseBlinds extracts small/big blinds from a window title. Returns
// false for lobby-like windows, unparseable titles and inverted pairs.
func ParseBlinds(title string) (Blinds, bool) {
	if title == "" {
		return Blinds{}, false
	}
	lower := strings.ToLower(title)
	for _, word := range blindsBlacklist {
		if strings.Contains(lower, word) {
			return Blinds{}, false
		}
	}

	m := blindsPattern.FindStringSubmatch(title)
	if m == nil {
		return Blinds{}, false
	}

	sb, err1 := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	bb, err2 := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err1 != nil || err2 != nil {
		return Blinds{}, false
	}
	if bb < sb {
		return Blinds{}, false
	}
	return Blinds{Small: sb, Big: bb}, true
}
