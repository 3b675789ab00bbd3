package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sign of a value change
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Change is the percent change between a player's previous and current value
type Change struct {
	Percent   decimal.Decimal // rounded to two places
	Direction Direction
}

// Label renders the change as a signed percentage, e.g. "+5.00%" or "-10.00%"
func (c Change) Label() string {
	s := c.Percent.StringFixed(2) + "%"
	if c.Direction == DirectionUp {
		return "+" + s
	}
	return s
}

// PercentChange computes (current - previous) / previous * 100.
// It reports false when there is no previous value or it is zero.
func PercentChange(current float64, previous *float64) (Change, bool) {
	if previous == nil || *previous == 0 {
		return Change{}, false
	}

	prev := decimal.NewFromFloat(*previous)
	pct := decimal.NewFromFloat(current).Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)

	dir := DirectionUp
	if pct.IsNegative() {
		dir = DirectionDown
	}
	return Change{Percent: pct, Direction: dir}, true
}

// FormatCurrency renders a value as US dollars with thousands separators, e.g. "$1,234.50"
func FormatCurrency(value float64) string {
	fixed := decimal.NewFromFloat(value).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// FormatDate renders the last-updated date, e.g. "Jan 2, 2024"
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// RankBadge returns the badge style for a 1-based rank
func RankBadge(rank int) string {
	switch rank {
	case 1:
		return "rank-gold"
	case 2:
		return "rank-silver"
	case 3:
		return "rank-bronze"
	default:
		return "rank-default"
	}
}

// EmptyMessage is shown when there are no players
const EmptyMessage = "No players yet. Be the first to submit your portfolio!"

// ConfirmDeleteMessage is the question asked before deleting a player
func ConfirmDeleteMessage(name string) string {
	return fmt.Sprintf("Are you sure you want to delete %s's data? This action cannot be undone.", name)
}

// RemovedMessage confirms a deletion
func RemovedMessage(name string) string {
	return name + "'s data removed"
}
