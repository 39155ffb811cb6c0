package meettime

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poly000/tg-google-meet-bot/server/timezone"
)

func mustRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return v
}

func TestResolve_RollForward(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00+08:00")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"later today", "12:00", "2023-04-01T12:00:00+08:00"},
		{"earlier rolls to tomorrow", "8:00", "2023-04-02T08:00:00+08:00"},
		{"zero padded earlier", "08:00", "2023-04-02T08:00:00+08:00"},
		{"equal stays today", "10:00", "2023-04-01T10:00:00+08:00"},
		{"one minute before", "09:59", "2023-04-02T09:59:00+08:00"},
		{"midnight rolls", "0:00", "2023-04-02T00:00:00+08:00"},
		{"last minute of day", "23:59", "2023-04-01T23:59:00+08:00"},
		{"surrounding whitespace", "  12:00  ", "2023-04-01T12:00:00+08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input, now)
			require.NoError(t, err)
			want := mustRFC3339(t, tt.want)
			assert.True(t, want.Equal(got), "got %s, want %s", got.In(timezone.UTC8), want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestResolve_EqualityKeepsToday(t *testing.T) {
	// Seconds on the reference clock make 10:00 strictly earlier than now.
	now := mustRFC3339(t, "2023-04-01T10:00:30+08:00")

	got, err := Resolve("10:00", now)
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2023-04-02T10:00:00+08:00").Equal(got))

	exact := mustRFC3339(t, "2023-04-01T10:00:00+08:00")
	got, err = Resolve("10:00", exact)
	require.NoError(t, err)
	assert.True(t, exact.Equal(got))
}

func TestResolve_RollForwardAcrossMonthAndYear(t *testing.T) {
	tests := []struct {
		name string
		now  string
		want string
	}{
		{"month end", "2023-04-30T22:00:00+08:00", "2023-05-01T07:30:00+08:00"},
		{"year end", "2023-12-31T22:00:00+08:00", "2024-01-01T07:30:00+08:00"},
		{"leap day", "2024-02-28T22:00:00+08:00", "2024-02-29T07:30:00+08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve("7:30", mustRFC3339(t, tt.now))
			require.NoError(t, err)
			assert.True(t, mustRFC3339(t, tt.want).Equal(got), "got %s", got.In(timezone.UTC8))
		})
	}
}

func TestResolve_EmptyInputIsNow(t *testing.T) {
	nows := []time.Time{
		timezone.Now(),
		time.Now(),
		time.Date(2023, 4, 1, 23, 59, 59, 999999999, timezone.UTC8),
		time.Date(2023, 4, 1, 16, 0, 0, 1, time.UTC),
	}

	for _, now := range nows {
		for _, input := range []string{"", "   ", "\t\n"} {
			got, err := Resolve(input, now)
			require.NoError(t, err)
			assert.True(t, now.Equal(got), "input %q: got %s, want %s", input, got, now)
		}
	}
}

func TestResolve_ExplicitDate(t *testing.T) {
	want := mustRFC3339(t, "2023-06-01T08:00:00+08:00")

	nows := []time.Time{
		timezone.Now(),
		mustRFC3339(t, "2023-06-01T09:00:00+08:00"),
		mustRFC3339(t, "2030-01-01T00:00:00+08:00"),
		mustRFC3339(t, "2000-01-01T00:00:00Z"),
	}

	for _, now := range nows {
		got, err := Resolve("08:00 01/06/2023", now)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "now %s: got %s", now, got)
	}
}

func TestResolve_ExplicitDateBypassesRollForward(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00+08:00")

	// Earlier time on today's date stays today.
	got, err := Resolve("08:00 01/04/2023", now)
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2023-04-01T08:00:00+08:00").Equal(got))

	// Dates in the past are kept as given.
	got, err = Resolve("08:00 1/1/1999", now)
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "1999-01-01T08:00:00+08:00").Equal(got))
}

func TestResolve_RoundTrip(t *testing.T) {
	nows := []time.Time{
		mustRFC3339(t, "2023-04-01T10:00:00+08:00"),
		mustRFC3339(t, "1990-12-31T23:59:59Z"),
	}
	dates := []string{"01/01/2000", "29/02/2024", "31/12/2023", "15/07/1111", "1/3/9999"}

	for _, now := range nows {
		for _, date := range dates {
			for hour := 0; hour < 24; hour += 5 {
				for _, minute := range []int{0, 7, 59} {
					input := fmt.Sprintf("%02d:%02d %s", hour, minute, date)
					got, err := Resolve(input, now)
					require.NoError(t, err, input)

					back := got.Add(timezone.Offset).UTC()
					assert.Equal(t, fmt.Sprintf("%02d:%02d", hour, minute), back.Format("15:04"), input)
					d, err := time.Parse("2/1/2006", date)
					require.NoError(t, err)
					assert.Equal(t, d.Format("02/01/2006"), back.Format("02/01/2006"), input)
				}
			}
		}
	}
}

func TestResolve_TodayOrTomorrowOnly(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T13:27:41.5+08:00")
	today := timezone.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	for hour := 0; hour < 24; hour++ {
		for minute := 0; minute < 60; minute += 3 {
			input := fmt.Sprintf("%d:%02d", hour, minute)
			res, err := Explain(input, now)
			require.NoError(t, err)

			local := res.Local
			clock := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
			if clock >= timezone.TimeOfDay(now) {
				assert.True(t, timezone.StartOfDay(local).Equal(today), input)
				assert.False(t, res.RolledForward, input)
			} else {
				assert.True(t, timezone.StartOfDay(local).Equal(tomorrow), input)
				assert.True(t, res.RolledForward, input)
			}
		}
	}
}

func TestResolve_SubtractsExactlyEightHours(t *testing.T) {
	got, err := Resolve("05:00 01/01/2024", time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 21, 0, 0, 0, time.UTC), got)
}

func TestResolve_TimeFormatErrors(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00+08:00")

	tests := []struct {
		input  string
		token  string
		reason string
	}{
		{"noon", "noon", "expected HH:MM"},
		{"12", "12", "expected HH:MM"},
		{"12:5", "12:5", "expected HH:MM"},
		{"12:000", "12:000", "expected HH:MM"},
		{"123:00", "123:00", "expected HH:MM"},
		{"12.30", "12.30", "expected HH:MM"},
		{"-1:00", "-1:00", "expected HH:MM"},
		{"12:00pm", "12:00pm", "expected HH:MM"},
		{"24:00", "24:00", "hour out of range"},
		{"99:00 01/06/2023", "99:00", "hour out of range"},
		{"12:60", "12:60", "minute out of range"},
		{"01/06/2023", "01/06/2023", "expected HH:MM"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Resolve(tt.input, now)
			require.Error(t, err)
			assert.True(t, got.IsZero())
			assert.True(t, IsKind(err, KindTimeFormat))
			assert.False(t, IsKind(err, KindDateFormat))

			var pErr *ParseError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.token, pErr.Token)
			assert.Equal(t, tt.reason, pErr.Reason)
		})
	}
}

func TestResolve_DateFormatErrors(t *testing.T) {
	now := timezone.Now()

	tests := []struct {
		input  string
		token  string
		reason string
	}{
		{"05:12 1/20/1111", "1/20/1111", "month out of range"},
		{"05:12 01/00/2023", "01/00/2023", "month out of range"},
		{"05:12 00/01/2023", "00/01/2023", "day out of range"},
		{"05:12 32/01/2023", "32/01/2023", "day out of range"},
		{"05:12 31/04/2023", "31/04/2023", "day out of range"},
		{"05:12 29/02/2023", "29/02/2023", "day out of range"},
		{"05:12 29/02/1900", "29/02/1900", "day out of range"},
		{"05:12 01/01/0000", "01/01/0000", "year out of range"},
		{"05:12 2023-06-01", "2023-06-01", "expected DD/MM/YYYY"},
		{"05:12 01/06/23", "01/06/23", "expected DD/MM/YYYY"},
		{"05:12 tomorrow", "tomorrow", "expected DD/MM/YYYY"},
		{"05:12 001/06/2023", "001/06/2023", "expected DD/MM/YYYY"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Resolve(tt.input, now)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindDateFormat))

			var pErr *ParseError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.token, pErr.Token)
			assert.Equal(t, tt.reason, pErr.Reason)
			assert.Contains(t, err.Error(), "date format")
		})
	}
}

func TestResolve_LeapDayAccepted(t *testing.T) {
	got, err := Resolve("12:00 29/02/2000", time.Now())
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2000-02-29T12:00:00+08:00").Equal(got))
}

func TestResolve_ExtraTokensIgnored(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00+08:00")

	got, err := Resolve("08:00 01/06/2023 standup", now)
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2023-06-01T08:00:00+08:00").Equal(got))
}

func TestResolve_Idempotent(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00.123456789+08:00")

	for _, input := range []string{"", "9:15", "18:45", "08:00 01/06/2023"} {
		first, err := Resolve(input, now)
		require.NoError(t, err)
		second, err := Resolve(input, now)
		require.NoError(t, err)
		assert.Equal(t, first, second, input)
	}
}

func TestExplain_Flags(t *testing.T) {
	now := mustRFC3339(t, "2023-04-01T10:00:00+08:00")

	res, err := Explain("", now)
	require.NoError(t, err)
	assert.True(t, res.DefaultedTime)
	assert.False(t, res.ExplicitDate)
	assert.False(t, res.RolledForward)

	res, err = Explain("8:00", now)
	require.NoError(t, err)
	assert.False(t, res.DefaultedTime)
	assert.True(t, res.RolledForward)
	assert.Equal(t, "2023-04-02 08:00", res.Local.Format("2006-01-02 15:04"))
	assert.Equal(t, "2023-04-02 00:00", res.UTC.Format("2006-01-02 15:04"))

	res, err = Explain("8:00 01/04/2023", now)
	require.NoError(t, err)
	assert.True(t, res.ExplicitDate)
	assert.False(t, res.RolledForward)
	assert.Equal(t, "8:00 01/04/2023", res.Input)
}

func TestResolver_UsesInjectedClock(t *testing.T) {
	fixedNow := mustRFC3339(t, "2023-04-01T10:00:00+08:00")
	r := NewResolver(func() time.Time { return fixedNow })

	got, err := r.Explain("8:00")
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2023-04-02T08:00:00+08:00").Equal(got.Local))
	assert.True(t, got.RolledForward)

	res, err := r.Explain("")
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(res.UTC))
}

func TestResolver_NormalizesReferenceZone(t *testing.T) {
	// 01:00 UTC is 09:00 at +08:00, so 08:30 has passed locally.
	now := time.Date(2023, 4, 1, 1, 0, 0, 0, time.UTC)

	got, err := Resolve("08:30", now)
	require.NoError(t, err)
	assert.True(t, mustRFC3339(t, "2023-04-02T08:30:00+08:00").Equal(got))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "time format", KindTimeFormat.String())
	assert.Equal(t, "date format", KindDateFormat.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}
