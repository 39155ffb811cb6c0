// Package meettime resolves the time strings users type when booking a meeting.
//
// Input is "[HH:MM [DD/MM/YYYY]]" read at the fixed +08:00 offset:
//   - ""                  now
//   - "12:00"             today at 12:00, or tomorrow if 12:00 already passed
//   - "08:00 01/06/2023"  exactly that local time, past or future
//
// Results are absolute instants in UTC.
package meettime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poly000/tg-google-meet-bot/server/timezone"
)

var (
	// 24-hour clock, hour may drop its leading zero.
	timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	// Day and month may drop their leading zero, the year may not.
	datePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// Resolution describes how an input string was turned into an instant.
type Resolution struct {
	// Input is the raw string that was resolved.
	Input string `json:"input"`
	// Local is the resolved instant at +08:00.
	Local time.Time `json:"local"`
	// UTC is the resolved instant in UTC.
	UTC time.Time `json:"utc"`
	// DefaultedTime is set when no time token was given and now's clock was used.
	DefaultedTime bool `json:"defaulted_time"`
	// ExplicitDate is set when the caller supplied a date token.
	ExplicitDate bool `json:"explicit_date"`
	// RolledForward is set when the date was moved to tomorrow.
	RolledForward bool `json:"rolled_forward"`
}

// Resolver resolves inputs against a clock.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a resolver reading now, or the wall clock at +08:00
// when now is nil.
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = timezone.Now
	}
	return &Resolver{now: now}
}

// Explain resolves input against the resolver's current time.
func (r *Resolver) Explain(input string) (*Resolution, error) {
	return Explain(input, r.now())
}

// Resolve converts input into a UTC instant using now as the reference.
// It is a pure function of its arguments.
func Resolve(input string, now time.Time) (time.Time, error) {
	res, err := Explain(input, now)
	if err != nil {
		return time.Time{}, err
	}
	return res.UTC, nil
}

// Explain converts input into a UTC instant and reports how it got there.
func Explain(input string, now time.Time) (*Resolution, error) {
	now = timezone.ToLocal(now)
	nowClock := timezone.TimeOfDay(now)

	// Only the first two tokens are meaningful; anything after is ignored.
	tokens := strings.Fields(input)

	res := &Resolution{Input: input}

	clock := nowClock
	if len(tokens) == 0 {
		res.DefaultedTime = true
	} else {
		parsed, err := parseClock(tokens[0])
		if err != nil {
			return nil, err
		}
		clock = parsed
	}

	var day time.Time
	if len(tokens) >= 2 {
		explicit, err := parseDate(tokens[1])
		if err != nil {
			return nil, err
		}
		day = explicit
		res.ExplicitDate = true
	} else {
		day = timezone.StartOfDay(now)
		if clock < nowClock {
			day = day.AddDate(0, 0, 1)
			res.RolledForward = true
		}
	}

	// The zone is a fixed +08:00, so adding a clock offset to midnight is exact.
	res.Local = day.Add(clock)
	res.UTC = res.Local.UTC()
	return res, nil
}

// parseClock parses a strict 24-hour "H:MM" or "HH:MM" token.
func parseClock(token string) (time.Duration, error) {
	m := timePattern.FindStringSubmatch(token)
	if m == nil {
		return 0, timeError(token, "expected HH:MM")
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 {
		return 0, timeError(token, "hour out of range")
	}
	if minute > 59 {
		return 0, timeError(token, "minute out of range")
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// parseDate parses a strict "DD/MM/YYYY" token into local midnight of that day.
func parseDate(token string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, dateError(token, "expected DD/MM/YYYY")
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if year < 1 {
		return time.Time{}, dateError(token, "year out of range")
	}
	if month < 1 || month > 12 {
		return time.Time{}, dateError(token, "month out of range")
	}
	if day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, dateError(token, "day out of range")
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, timezone.UTC8), nil
}

// daysIn returns the number of days in month of year.
func daysIn(month time.Month, year int) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
