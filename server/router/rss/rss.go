// Package rss publishes a principal's meetings as an RSS feed.
package rss

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/server/auth"
	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
	"github.com/poly000/tg-google-meet-bot/server/timezone"
	"github.com/poly000/tg-google-meet-bot/store"
)

const (
	maxRSSItemCount = meeting.MaxListLimit
	rssContentType  = "application/rss+xml; charset=utf-8"
)

type RSSService struct {
	Profile        *profile.Profile
	MeetingService meeting.Service
	Authenticator  *auth.Authenticator
}

func NewRSSService(p *profile.Profile, meetingService meeting.Service, authenticator *auth.Authenticator) *RSSService {
	return &RSSService{
		Profile:        p,
		MeetingService: meetingService,
		Authenticator:  authenticator,
	}
}

func (s *RSSService) RegisterRoutes(g *echo.Group) {
	g.GET("/meetings/rss", s.GetMeetingsRSS)
}

// GetMeetingsRSS renders the caller's recent meetings.
// The token is taken from ?token= since feed readers cannot send headers.
func (s *RSSService) GetMeetingsRSS(c echo.Context) error {
	principalID, err := s.authenticate(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, "authentication required")
	}

	list, err := s.MeetingService.ListMeetings(c.Request().Context(), principalID, maxRSSItemCount)
	if err != nil {
		code := apperrors.Classify(err)
		return c.String(apperrors.HTTPStatus(code), apperrors.UserMessage(err))
	}

	rss, err := s.generateRSS(principalID, list)
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to generate rss")
	}
	c.Response().Header().Set(echo.HeaderContentType, rssContentType)
	return c.String(http.StatusOK, rss)
}

func (s *RSSService) authenticate(c echo.Context) (int64, error) {
	if token := c.QueryParam("token"); token != "" {
		return s.Authenticator.VerifyToken(token)
	}
	return s.Authenticator.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
}

func (s *RSSService) generateRSS(principalID int64, list []*store.Meeting) (string, error) {
	baseURL := strings.TrimRight(s.Profile.InstanceURL, "/")
	feed := &feeds.Feed{
		Title:       "Meetings",
		Link:        &feeds.Link{Href: baseURL + "/api/v1/meetings"},
		Description: fmt.Sprintf("Google Meet meetings scheduled by %d", principalID),
		Created:     time.Now(),
	}

	feed.Items = make([]*feeds.Item, 0, len(list))
	for _, m := range list {
		endTs := m.EndTs
		link := m.JoinLink
		if link == "" {
			link = m.HTMLLink
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          m.UID,
			Title:       m.Summary,
			Link:        &feeds.Link{Href: link},
			Description: timezone.FormatMeetingTime(m.StartTs, &endTs),
			Created:     time.Unix(m.CreatedTs, 0),
		})
	}
	return feed.ToRss()
}
