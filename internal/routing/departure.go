package routing

import "time"

// departureHour is the fixed modeled departure time of day.
const departureHour = 8

// NextMondayMorning returns the upcoming Monday at 08:00 in now's location.
// If now already falls on a Monday the result is a full week out, so the
// modeled departure is always in the future. Pinning every duration query to
// the same weekday morning keeps results comparable across criteria evaluated
// at different wall-clock moments.
func NextMondayMorning(now time.Time) time.Time {
	days := int(time.Monday) - int(now.Weekday())
	if days <= 0 {
		days += 7
	}
	next := now.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), departureHour, 0, 0, 0, now.Location())
}
