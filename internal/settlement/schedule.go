package settlement

import "time"

// cycleDay is the day of month on which a settlement cycle starts. February
// is always 28 days here, so leap years sweep on the 28th as well.
func cycleDay(m time.Month) int {
	switch m {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.February:
		return 28
	default:
		return 30
	}
}

// NextCycle returns the first cycle instant strictly after now: midnight at
// the start of the month's last day in loc. Once this month's instant has
// passed, next month's is returned.
func NextCycle(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = now.Location()
	}
	local := now.In(loc)

	year, month := local.Year(), local.Month()
	boundary := time.Date(year, month, cycleDay(month), 0, 0, 0, 0, loc)
	if boundary.After(local) {
		return boundary
	}

	month++
	if month > time.December {
		month = time.January
		year++
	}
	return time.Date(year, month, cycleDay(month), 0, 0, 0, 0, loc)
}
