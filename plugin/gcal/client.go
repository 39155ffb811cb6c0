// Package gcal creates Google Calendar events that carry a Google Meet conference.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/poly000/tg-google-meet-bot/server/timezone"
)

const (
	// DefaultCalendarID is the authenticated user's primary calendar.
	DefaultCalendarID = "primary"

	// ConferenceTypeMeet is the conference solution key for Google Meet.
	ConferenceTypeMeet = "hangoutsMeet"

	// levelTrace matches observability.LevelTrace.
	levelTrace = slog.Level(-8)
)

// TransportError means the request never produced a provider answer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calendar transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError means the provider answered with a failure status.
type RejectedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("calendar rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("calendar rejected request with status %d: %s", e.StatusCode, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Client inserts Meet events into one calendar.
// It is safe for concurrent use.
type Client struct {
	service    *calendar.Service
	calendarID string
	requestIDs RequestIDGenerator
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCalendarID sets the calendar events are inserted into.
func WithCalendarID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.calendarID = id
		}
	}
}

// WithRequestIDGenerator replaces the conference request ID source.
func WithRequestIDGenerator(g RequestIDGenerator) Option {
	return func(c *Client) {
		if g != nil {
			c.requestIDs = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient wraps an authenticated calendar service.
func NewClient(service *calendar.Service, opts ...Option) (*Client, error) {
	if service == nil {
		return nil, errors.New("calendar service is required")
	}
	c := &Client{
		service:    service,
		calendarID: DefaultCalendarID,
		requestIDs: UUIDRequestID{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CalendarID returns the target calendar.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// BuildMeetEvent builds the event body for a meeting with an attached Meet conference.
func BuildMeetEvent(summary string, start, end time.Time, requestID string) *calendar.Event {
	return &calendar.Event{
		Summary: summary,
		Start:   eventDateTime(start),
		End:     eventDateTime(end),
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: ConferenceTypeMeet,
				},
				RequestId: requestID,
			},
		},
	}
}

func eventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: timezone.ToLocal(t).Format(time.RFC3339),
		TimeZone: timezone.Label,
	}
}

// InsertedEvent is a created event together with the conference request id
// sent to create it.
type InsertedEvent struct {
	*calendar.Event
	RequestID string
}

// InsertMeetEvent creates an event from start to end with a new Meet conference.
// Failures are reported once as *TransportError or *RejectedError; nothing is retried.
func (c *Client) InsertMeetEvent(ctx context.Context, summary string, start, end time.Time) (*InsertedEvent, error) {
	requestID := c.requestIDs.NewRequestID()
	event := BuildMeetEvent(summary, start, end, requestID)

	created, err := c.service.Events.Insert(c.calendarID, event).
		SupportsAttachments(true).
		SendNotifications(true).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			c.logger.ErrorContext(ctx, "calendar rejected event insert",
				slog.String("calendar_id", c.calendarID),
				slog.String("request_id", requestID),
				slog.Int("status", apiErr.Code),
				slog.String("message", apiErr.Message),
				slog.String("body", apiErr.Body),
				slog.Any("details", apiErr.Errors),
			)
			return nil, &RejectedError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		}
		c.logger.ErrorContext(ctx, "calendar event insert failed",
			slog.String("calendar_id", c.calendarID),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Err: err}
	}

	c.logger.Log(ctx, levelTrace, "calendar event inserted",
		slog.String("calendar_id", c.calendarID),
		slog.String("request_id", requestID),
		slog.String("event_id", created.Id),
		slog.Int("status", created.HTTPStatusCode),
		slog.Any("event", created),
	)
	return &InsertedEvent{Event: created, RequestID: requestID}, nil
}

// ExtractJoinLink returns the URI of the event's first conference entry point.
func ExtractJoinLink(event *calendar.Event) (string, bool) {
	if event == nil || event.ConferenceData == nil {
		return "", false
	}
	entryPoints := event.ConferenceData.EntryPoints
	if len(entryPoints) == 0 || entryPoints[0] == nil || entryPoints[0].Uri == "" {
		return "", false
	}
	return entryPoints[0].Uri, true
}
