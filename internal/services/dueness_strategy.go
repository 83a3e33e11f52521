package services

import (
	"fmt"
	"time"

	"conti/internal/core"
)

// DuenessChecker decides whether a recurring template owes a new occurrence.
// anchor is the template's own date; its day and month pin the schedule.
type DuenessChecker interface {
	IsDue(last, now, anchor time.Time) bool
}

type DailyChecker struct{}

// IsDue reports whether last fell on an earlier calendar day than now.
func (DailyChecker) IsDue(last, now, _ time.Time) bool {
	if last.IsZero() {
		return true
	}
	if last.After(now) {
		return false
	}
	return last.Format(time.DateOnly) != now.Format(time.DateOnly)
}

type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(last, now, _ time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= 7*24*time.Hour
}

type MonthlyChecker struct{}

// IsDue reports whether now is in a later month than last and has reached
// the anchor day, clamped to the month's length.
func (MonthlyChecker) IsDue(last, now, anchor time.Time) bool {
	if last.IsZero() {
		return true
	}
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}
	if now.Before(last) {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
}

type YearlyChecker struct{}

func (YearlyChecker) IsDue(last, now, anchor time.Time) bool {
	if last.IsZero() {
		return true
	}
	if now.Year() <= last.Year() {
		return false
	}
	switch {
	case now.Month() < anchor.Month():
		return false
	case now.Month() > anchor.Month():
		return true
	default:
		return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
	}
}

// clampDay caps day at the last day of the month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.Interval]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

func GetDuenessChecker(interval core.Interval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[interval]
	if !ok {
		return nil, fmt.Errorf("%w: unknown recurring interval %q", core.ErrInvalidPeriod, interval)
	}
	return checker, nil
}

// RegisterDuenessChecker adds or replaces the checker of an interval.
// Not safe for use concurrently with GetDuenessChecker.
func RegisterDuenessChecker(interval core.Interval, checker DuenessChecker) {
	duenessStrategies[interval] = checker
}
