package warranty

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period units are approximations: a year is 365 days and a month is 30 days.
// End dates therefore drift from calendar arithmetic and this is accepted.
const (
	DaysPerYear  = 365
	DaysPerMonth = 30
)

const (
	LabelUnderWarranty = "Under Warranty"
	LabelExpired       = "Expired"
	LabelNoWarranty    = "No Warranty"
	LabelUnknown       = "Unknown"
)

var periodPattern = regexp.MustCompile(`(?i)(\d+)\s*(year|month|day)`)

// Coverage is the warranty status of an installed unit at a point in time
type Coverage struct {
	IsUnderWarranty bool       `json:"isUnderWarranty"`
	RemainingDays   *int       `json:"remainingDays,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	Label           string     `json:"label"`
}

// ParsePeriodDays extracts the warranty length in days from free text like "2 Years"
// or "18 months". ok is false when the text holds no recognizable period.
func ParsePeriodDays(text string) (days int, ok bool) {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "year":
		return n * DaysPerYear, true
	case "month":
		return n * DaysPerMonth, true
	default:
		return n, true
	}
}

// ComputeWarrantyStatus never fails: missing or unreadable input resolves to a
// not-under-warranty result with a descriptive label.
func ComputeWarrantyStatus(installationDate *time.Time, periodText string, now time.Time) Coverage {
	text := strings.TrimSpace(periodText)
	if installationDate == nil || installationDate.IsZero() || text == "" ||
		strings.Contains(strings.ToLower(text), "no warranty") {
		return Coverage{Label: LabelNoWarranty}
	}

	days, ok := ParsePeriodDays(text)
	if !ok {
		return Coverage{Label: LabelUnknown}
	}

	start := truncateDay(*installationDate)
	end := start.AddDate(0, 0, days)
	remaining := int(end.Sub(truncateDay(now)).Hours() / 24)
	if remaining <= 0 {
		zero := 0
		return Coverage{RemainingDays: &zero, EndDate: &end, Label: LabelExpired}
	}
	return Coverage{
		IsUnderWarranty: true,
		RemainingDays:   &remaining,
		EndDate:         &end,
		Label:           LabelUnderWarranty,
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
