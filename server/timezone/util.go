// Package timezone provides the fixed UTC+8 zone the bot works in.
//
// All meeting times are entered and displayed at a fixed +08:00 offset.
// No timezone database is consulted: the offset never changes, so there is
// no DST handling to get wrong. The IANA label is only attached to requests
// sent to the calendar provider.
package timezone

import (
	"fmt"
	"time"
)

const (
	// OffsetSeconds is the fixed offset east of UTC.
	OffsetSeconds = 8 * 60 * 60

	// Offset is OffsetSeconds as a duration.
	Offset = OffsetSeconds * time.Second

	// Label is the IANA name sent alongside event times.
	Label = "Asia/Shanghai"

	// zoneName is what time.Time prints for the fixed zone.
	zoneName = "UTC+8"
)

// UTC8 is the fixed +08:00 location used for every local time.
var UTC8 = time.FixedZone(zoneName, OffsetSeconds)

// Now returns the current instant expressed at +08:00.
func Now() time.Time {
	return time.Now().In(UTC8)
}

// ToLocal converts t to the fixed +08:00 zone.
func ToLocal(t time.Time) time.Time {
	return t.In(UTC8)
}

// ToUserTimezone converts a Unix timestamp to +08:00.
func ToUserTimezone(ts int64) time.Time {
	return time.Unix(ts, 0).In(UTC8)
}

// DateOf returns the local calendar date of t.
func DateOf(t time.Time) (year int, month time.Month, day int) {
	return t.In(UTC8).Date()
}

// TimeOfDay returns the elapsed time since local midnight, nanoseconds included.
func TimeOfDay(t time.Time) time.Duration {
	local := t.In(UTC8)
	h, m, s := local.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(local.Nanosecond())
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := DateOf(t)
	return time.Date(y, m, d, 0, 0, 0, 0, UTC8)
}

// FormatMeetingTime formats a meeting's time range for display.
// Rules:
//   - Same day: "2006-01-02 15:04 - 16:00"
//   - Across days: "2006-01-02 15:04 - 2006-01-03 01:00"
//   - No end time: "2006-01-02 15:04"
func FormatMeetingTime(startTs int64, endTs *int64) string {
	start := ToUserTimezone(startTs)
	if endTs == nil {
		return start.Format("2006-01-02 15:04")
	}

	end := ToUserTimezone(*endTs)
	if StartOfDay(start).Equal(StartOfDay(end)) {
		return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
}

// FormatMeetingLine formats a meeting for chat replies and feeds.
// Format: "1. 2026-01-21 14:00 - 15:00 - Weekly sync"
func FormatMeetingLine(startTs int64, endTs *int64, summary string, index int) string {
	return fmt.Sprintf("%d. %s - %s", index+1, FormatMeetingTime(startTs, endTs), summary)
}
