package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// WeekdayNames lists weekdays Monday first, the order every report uses.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayIndex returns 0 for Monday through 6 for Sunday.
func WeekdayIndex(d civil.Date) int {
	return (int(d.In(time.UTC).Weekday()) + 6) % 7
}

// WeekdayName returns the English weekday name of d.
func WeekdayName(d civil.Date) string {
	return WeekdayNames[WeekdayIndex(d)]
}

// ISOWeek returns the ISO 8601 year and week number of d.
func ISOWeek(d civil.Date) (year, week int) {
	return d.In(time.UTC).ISOWeek()
}

// ISOWeekBounds returns the Monday and Sunday of the ISO week containing d.
func ISOWeekBounds(d civil.Date) (monday, sunday civil.Date) {
	monday = d.AddDays(-WeekdayIndex(d))
	return monday, monday.AddDays(6)
}

// CompareDates orders a before b as -1, equal as 0, after as 1.
func CompareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
