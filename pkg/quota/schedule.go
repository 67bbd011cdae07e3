package quota

import (
	"fmt"
	"time"
)

// Schedule determines when the next counter reset should run.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

type monthlySchedule struct {
	day    int
	hour   int
	minute int
}

func (s monthlySchedule) Next(from time.Time) time.Time {
	year, month := from.Year(), from.Month()

	// Day 31 in a short month becomes its last day.
	day := min(s.day, daysInMonth(year, month))
	next := time.Date(year, month, day, s.hour, s.minute, 0, 0, from.Location())

	if !next.After(from) {
		if month == time.December {
			year++
			month = time.January
		} else {
			month++
		}
		day = min(s.day, daysInMonth(year, month))
		next = time.Date(year, month, day, s.hour, s.minute, 0, 0, from.Location())
	}
	return next
}

func (s monthlySchedule) String() string {
	return fmt.Sprintf("monthly on day %d at %02d:%02d", s.day, s.hour, s.minute)
}

// Every runs at a fixed interval.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		panic("quota: schedule interval must be positive")
	}
	return intervalSchedule{every: d}
}

// MonthlyOn runs once a month on day at hour:minute. Day is clamped to 1..31.
func MonthlyOn(day, hour, minute int) Schedule {
	return monthlySchedule{day: max(1, min(day, 31)), hour: hour, minute: minute}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
