package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date represents a calendar date
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateDifference represents the difference between two dates
type DateDifference struct {
	Months int
	Days   int
}

// RentalCostBreakdown compares the per-day price of a rental with the total
// the server quoted.
type RentalCostBreakdown struct {
	Days        int
	PricePerDay int64
	BaseCost    int64
	QuotedTotal int64
	Surcharge   int64
	DateDiff    DateDifference
}

// ParseDate converts a yyyy-mm-dd formatted string into a Date struct. A
// trailing time part ("2020-01-15T00:00:00Z") is ignored.
func ParseDate(dateStr string) (Date, error) {
	if i := strings.IndexAny(dateStr, "T "); i >= 0 {
		dateStr = dateStr[:i]
	}
	parts := strings.Split(dateStr, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd")
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("invalid year: %v", err)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("invalid month: %v", err)
	}

	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, fmt.Errorf("invalid day: %v", err)
	}

	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("month must be between 1 and 12")
	}

	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, fmt.Errorf("day must be between 1 and %d", DaysInMonth(year, month))
	}

	return Date{Year: year, Month: month, Day: day}, nil
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year, month int) int {
	if month == 2 {
		// Check for leap year
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}

	// Months with 30 days: April, June, September, November
	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}

	return 31
}

// CalculateDateDifference computes the difference between two dates
// Returns (months, days) where both start and end dates are included
func CalculateDateDifference(startDate, endDate Date) (DateDifference, error) {
	if endDate.Year < startDate.Year ||
		(endDate.Year == startDate.Year && endDate.Month < startDate.Month) ||
		(endDate.Year == startDate.Year && endDate.Month == startDate.Month && endDate.Day < startDate.Day) {
		return DateDifference{}, fmt.Errorf("end date must be >= start date")
	}

	years := endDate.Year - startDate.Year
	months := endDate.Month - startDate.Month
	days := endDate.Day - startDate.Day + 1 // +1 to include both ends

	// If days < 0, borrow from months
	if days < 0 {
		months -= 1
		prevMonth := endDate.Month - 1
		prevYear := endDate.Year
		if prevMonth < 1 {
			prevMonth = 12
			prevYear -= 1
		}
		days = DaysInMonth(prevYear, prevMonth) + days
	}

	if months < 0 {
		years -= 1
		months += 12
	}

	months += 12 * years

	return DateDifference{Months: months, Days: days}, nil
}

// RentalDays counts the charged days between pickup and return. Every
// started 24h period is charged and a rental is at least one day.
func RentalDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("end date must be >= start date")
	}
	hours := end.Sub(start).Hours()
	days := int(hours / 24)
	if hours > float64(days*24) {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days, nil
}

// CalculateRentalCost breaks the quoted total of a rental down against the
// daily price. loc decides which calendar days the period covers.
func CalculateRentalCost(start, end time.Time, pricePerDay, quotedTotal int64, loc *time.Location) (RentalCostBreakdown, error) {
	days, err := RentalDays(start, end)
	if err != nil {
		return RentalCostBreakdown{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	s, e := start.In(loc), end.In(loc)
	diff, err := CalculateDateDifference(
		Date{Year: s.Year(), Month: int(s.Month()), Day: s.Day()},
		Date{Year: e.Year(), Month: int(e.Month()), Day: e.Day()},
	)
	if err != nil {
		return RentalCostBreakdown{}, err
	}

	base := int64(days) * pricePerDay
	b := RentalCostBreakdown{
		Days:        days,
		PricePerDay: pricePerDay,
		BaseCost:    base,
		QuotedTotal: quotedTotal,
		DateDiff:    diff,
	}
	if quotedTotal > base {
		b.Surcharge = quotedTotal - base
	}
	return b, nil
}

// FormatMoney renders an amount in dong with dot thousand separators,
// e.g. 1500000 -> "1.500.000".
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
