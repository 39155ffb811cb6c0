package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/poly000/tg-google-meet-bot/plugin/meettime"
	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
	"github.com/poly000/tg-google-meet-bot/store"
)

// ResolveTimeRequest is the body of POST /api/v1/time/resolve.
type ResolveTimeRequest struct {
	Input string `json:"input"`
}

// ResolveTimeResponse reports a resolved instant in both zones.
type ResolveTimeResponse struct {
	Input         string    `json:"input"`
	Local         time.Time `json:"local"`
	UTC           time.Time `json:"utc"`
	DefaultedTime bool      `json:"defaulted_time"`
	ExplicitDate  bool      `json:"explicit_date"`
	RolledForward bool      `json:"rolled_forward"`
}

// CreateMeetingRequest is the body of POST /api/v1/meetings.
type CreateMeetingRequest struct {
	Time            string `json:"time"`
	Summary         string `json:"summary"`
	DurationMinutes int    `json:"duration_minutes"`
}

// MeetingResponse describes a meeting created or listed through the API.
type MeetingResponse struct {
	UID       string    `json:"uid,omitempty"`
	Summary   string    `json:"summary"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	EventID   string    `json:"event_id"`
	JoinLink  string    `json:"join_link,omitempty"`
	HTMLLink  string    `json:"html_link,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ListMeetingsResponse is the body of GET /api/v1/meetings.
type ListMeetingsResponse struct {
	Meetings []*MeetingResponse `json:"meetings"`
}

// ResolveTime resolves a time string against the server clock.
// POST /api/v1/time/resolve
func (s *APIV1Service) ResolveTime(c echo.Context) error {
	var req ResolveTimeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid request body"))
	}

	res, err := s.MeetingService.Resolve(c.Request().Context(), req.Input)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertResolution(res))
}

// CreateMeeting schedules a Meet event for the authenticated principal.
// POST /api/v1/meetings
func (s *APIV1Service) CreateMeeting(c echo.Context) error {
	principalID, _ := c.Get(principalIDContextKey).(int64)

	var req CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid request body"))
	}
	if req.DurationMinutes < 0 {
		return writeError(c, apperrors.InvalidArgument("duration_minutes must not be negative"))
	}

	m, err := s.MeetingService.ScheduleMeeting(c.Request().Context(), principalID, &meeting.ScheduleMeetingRequest{
		Time:     req.Time,
		Summary:  req.Summary,
		Duration: time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, convertMeeting(m))
}

// ListMeetings returns the authenticated principal's recorded meetings.
// GET /api/v1/meetings?limit=
func (s *APIV1Service) ListMeetings(c echo.Context) error {
	principalID, _ := c.Get(principalIDContextKey).(int64)

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return writeError(c, apperrors.InvalidArgument("limit must be a non-negative integer"))
		}
		limit = v
	}

	list, err := s.MeetingService.ListMeetings(c.Request().Context(), principalID, limit)
	if err != nil {
		return writeError(c, err)
	}

	resp := &ListMeetingsResponse{Meetings: make([]*MeetingResponse, 0, len(list))}
	for _, m := range list {
		resp.Meetings = append(resp.Meetings, convertMeetingFromStore(m))
	}
	return c.JSON(http.StatusOK, resp)
}

func convertResolution(res *meettime.Resolution) *ResolveTimeResponse {
	return &ResolveTimeResponse{
		Input:         res.Input,
		Local:         res.Local,
		UTC:           res.UTC,
		DefaultedTime: res.DefaultedTime,
		ExplicitDate:  res.ExplicitDate,
		RolledForward: res.RolledForward,
	}
}

func convertMeeting(m *meeting.Meeting) *MeetingResponse {
	resp := &MeetingResponse{
		Summary:   m.Summary,
		Start:     m.Start,
		End:       m.End,
		EventID:   m.EventID,
		JoinLink:  m.JoinLink,
		HTMLLink:  m.HTMLLink,
		RequestID: m.RequestID,
	}
	if m.Record != nil {
		resp.UID = m.Record.UID
		resp.CreatedAt = time.Unix(m.Record.CreatedTs, 0).UTC()
	}
	return resp
}

func convertMeetingFromStore(m *store.Meeting) *MeetingResponse {
	return &MeetingResponse{
		UID:       m.UID,
		Summary:   m.Summary,
		Start:     time.Unix(m.StartTs, 0).UTC(),
		End:       time.Unix(m.EndTs, 0).UTC(),
		EventID:   m.EventID,
		JoinLink:  m.JoinLink,
		HTMLLink:  m.HTMLLink,
		RequestID: m.RequestID,
		CreatedAt: time.Unix(m.CreatedTs, 0).UTC(),
	}
}
