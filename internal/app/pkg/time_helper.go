package pkg

import "time"

// BudgetWindowStart returns the start of the current payout-budget window for
// a merchant whose budget resets on resetDay of each month. resetDay is
// clamped to [1, 28] so every month has the day.
func BudgetWindowStart(now time.Time, resetDay int) time.Time {
	if resetDay < 1 {
		resetDay = 1
	}
	if resetDay > 28 {
		resetDay = 28
	}

	start := time.Date(now.Year(), now.Month(), resetDay, 0, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, -1, 0)
	}
	return start
}
