package meeting

import (
	"context"
	"time"

	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	"github.com/poly000/tg-google-meet-bot/plugin/meettime"
	"github.com/poly000/tg-google-meet-bot/store"
)

// Service defines the meeting operations shared by every front-end.
type Service interface {
	// Resolve turns a time string into an instant against the service clock.
	Resolve(ctx context.Context, input string) (*meettime.Resolution, error)

	// ScheduleMeeting books a Meet event for an authorized principal.
	ScheduleMeeting(ctx context.Context, principalID int64, req *ScheduleMeetingRequest) (*Meeting, error)

	// ListMeetings returns the principal's recorded meetings, most recent start first.
	ListMeetings(ctx context.Context, principalID int64, limit int) ([]*store.Meeting, error)

	// IsAuthorized reports whether principalID may schedule meetings.
	IsAuthorized(principalID int64) bool
}

// Scheduler creates calendar events with an attached Meet conference.
type Scheduler interface {
	InsertMeetEvent(ctx context.Context, summary string, start, end time.Time) (*gcal.InsertedEvent, error)
}

// Store is the interface for store operations needed by the meeting service.
type Store interface {
	CreateMeeting(ctx context.Context, create *store.Meeting) (*store.Meeting, error)
	ListMeetings(ctx context.Context, find *store.FindMeeting) ([]*store.Meeting, error)
}

var _ Store = (*store.Store)(nil)

// ScheduleMeetingRequest represents the request to schedule a meeting.
type ScheduleMeetingRequest struct {
	// Time is "[HH:MM [DD/MM/YYYY]]" at +08:00; empty means now.
	Time string
	// Summary is the event title; blank falls back to the configured default.
	Summary string
	// Duration is the meeting length; zero falls back to the configured default.
	Duration time.Duration
}

// Meeting is a scheduled meeting as reported back to the caller.
type Meeting struct {
	Summary    string
	Start      time.Time
	End        time.Time
	Resolution *meettime.Resolution

	EventID   string
	JoinLink  string
	HTMLLink  string
	RequestID string

	// Record is the persisted row, nil when no store is configured or persisting failed.
	Record *store.Meeting
}

// HasJoinLink reports whether the provider returned a conference entry point.
func (m *Meeting) HasJoinLink() bool {
	return m.JoinLink != ""
}
