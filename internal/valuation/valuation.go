// Package valuation implements the portfolio valuator: a pure function
// turning cash plus asset holdings into a single derived value used by the
// leaderboard.
package valuation

import "reuben/internal/common"

// Portfolio computes a user's total value: cash held, plus each asset's
// held quantity times its configured unit value, plus a complete-set bonus
// multiplied by the smallest held quantity across all assets. An asset the
// user never registered on contributes a held of zero, which both adds
// nothing to the sum and disqualifies the bonus.
func Portfolio(cashHeld uint64, held, unitValue [common.NumAssets]uint64, bonus uint64) uint64 {
	total := cashHeld
	min := held[0]
	for i, h := range held {
		total += h * unitValue[i]
		if h < min {
			min = h
		}
	}
	if min > 0 {
		total += bonus * min
	}
	return total
}
