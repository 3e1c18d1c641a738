package costs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Amount is a parsed fee or time rule. A rule is either a fixed quantity
// ("$1,500", "5 days") or a percentage of a base ("2%").
type Amount struct {
	Fixed   int
	Percent float64
}

// IsZero reports whether the amount has no effect.
func (a Amount) IsZero() bool {
	return a.Fixed == 0 && a.Percent == 0
}

// Resolve turns the amount into a concrete quantity. base is only used by
// percentage amounts; for fees it is the player's project scope.
func (a Amount) Resolve(base int) int {
	return a.Fixed + int(math.Round(a.Percent*float64(base)/100))
}

func (a Amount) String() string {
	if a.Percent != 0 {
		return strconv.FormatFloat(a.Percent, 'f', -1, 64) + "%"
	}
	return strconv.Itoa(a.Fixed)
}

var (
	percentPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*%`)
	numberPattern  = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([km])?\b`)
	unitPattern    = regexp.MustCompile(`(?i)^\s*(days?|d|weeks?|w)\b`)
)

// Parse reads a fee or time rule. Accepted forms:
//   - "$1,500", "1500", "$50k", "$1.2m"
//   - "2%", "0.5% of scope"
//   - "5 days", "2 weeks"
//
// Blank input yields the zero amount. Text after the leading quantity is
// ignored so authored notes like "1500 (permit)" still parse.
func Parse(rule string) (Amount, error) {
	s := strings.TrimSpace(rule)
	if s == "" {
		return Amount{}, nil
	}

	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")

	if m := percentPattern.FindStringSubmatch(s); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Amount{}, fmt.Errorf("parse percent %q: %w", rule, err)
		}
		return Amount{Percent: pct}, nil
	}

	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Amount{}, fmt.Errorf("cannot parse amount %q", rule)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", rule, err)
	}

	switch m[2] {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	}

	if u := unitPattern.FindStringSubmatch(s[len(m[0]):]); u != nil && strings.HasPrefix(u[1], "w") {
		value *= 7
	}

	return Amount{Fixed: int(math.Round(value))}, nil
}

// ProjectScope is the base for percentage fees: the summed cost of the work
// cards a player holds.
func ProjectScope(workCardCosts []int) int {
	total := 0
	for _, c := range workCardCosts {
		total += c
	}
	return total
}
