// Package meeting books Google Meet meetings on behalf of authorized principals.
//
// Every front-end (HTTP API, Telegram, CLI) goes through Service, which
// resolves the requested time, bounds concurrent calendar inserts and records
// what was created.
package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	"github.com/poly000/tg-google-meet-bot/plugin/meettime"
	"github.com/poly000/tg-google-meet-bot/server/auth"
	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
	"github.com/poly000/tg-google-meet-bot/server/timezone"
	"github.com/poly000/tg-google-meet-bot/store"
)

// Config holds the settings of the meeting service.
type Config struct {
	Principals           *auth.PrincipalSet
	DefaultSummary       string
	DefaultDuration      time.Duration
	MaxConcurrentInserts int

	// Now is the clock used to resolve times. Defaults to timezone.Now.
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// ConfigFromProfile builds a Config from the bot profile.
func ConfigFromProfile(p *profile.Profile, principals *auth.PrincipalSet) Config {
	return Config{
		Principals:           principals,
		DefaultSummary:       p.DefaultSummary,
		DefaultDuration:      p.MeetingDuration,
		MaxConcurrentInserts: p.MaxConcurrentInserts,
	}
}

type service struct {
	scheduler Scheduler
	store     Store
	resolver  *meettime.Resolver
	inserts   *semaphore.Weighted

	principals      *auth.PrincipalSet
	defaultSummary  string
	defaultDuration time.Duration
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewService creates a new meeting service. store may be nil, in which case
// meetings are created but not recorded.
func NewService(scheduler Scheduler, store Store, cfg Config) Service {
	if cfg.DefaultSummary == "" {
		cfg.DefaultSummary = profile.DefaultSummary
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = profile.DefaultMeetingDuration
	}
	if cfg.MaxConcurrentInserts <= 0 {
		cfg.MaxConcurrentInserts = profile.DefaultMaxConcurrentInserts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.GlobalMetrics()
	}
	if cfg.Principals == nil {
		cfg.Principals = auth.NewPrincipalSet()
	}

	return &service{
		scheduler:       scheduler,
		store:           store,
		resolver:        meettime.NewResolver(cfg.Now),
		inserts:         semaphore.NewWeighted(int64(cfg.MaxConcurrentInserts)),
		principals:      cfg.Principals,
		defaultSummary:  cfg.DefaultSummary,
		defaultDuration: cfg.DefaultDuration,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
	}
}

func (s *service) IsAuthorized(principalID int64) bool {
	return s.principals.Contains(principalID)
}

func (s *service) Resolve(ctx context.Context, input string) (*meettime.Resolution, error) {
	res, err := s.resolver.Explain(input)
	if err != nil {
		rc := observability.FromContextOrNew(ctx, s.logger)
		rc.Debug("failed to resolve time",
			slog.String(observability.LogFieldInput, input),
			slog.String(observability.LogFieldErrorCode, string(apperrors.Classify(err))),
		)
		return nil, err
	}
	return res, nil
}

func (s *service) ScheduleMeeting(ctx context.Context, principalID int64, req *ScheduleMeetingRequest) (*Meeting, error) {
	rc := observability.FromContextOrNew(ctx, s.logger)
	s.metrics.RecordRequest(rc.Channel)
	defer func() {
		s.metrics.RecordDuration(rc.Channel, rc.Duration())
	}()

	meeting, err := s.scheduleMeeting(ctx, rc, principalID, req)
	if err != nil {
		s.metrics.RecordFailure(rc.Channel)
		attrs := append([]slog.Attr{
			slog.Int64(observability.LogFieldPrincipalID, principalID),
			slog.String(observability.LogFieldErrorCode, string(apperrors.Classify(err))),
			slog.String("error", err.Error()),
		}, apperrors.LogAttrs(err)...)
		rc.Warn("failed to schedule meeting", attrs...)
		return nil, err
	}
	s.metrics.RecordMeeting()
	return meeting, nil
}

func (s *service) scheduleMeeting(ctx context.Context, rc *observability.RequestContext, principalID int64, req *ScheduleMeetingRequest) (*Meeting, error) {
	if req == nil {
		return nil, apperrors.InvalidArgument("request is required")
	}
	if !s.principals.Contains(principalID) {
		return nil, apperrors.Unauthorized(fmt.Sprintf("principal %d is not authorized", principalID))
	}

	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		summary = s.defaultSummary
	}

	duration := req.Duration
	if duration == 0 {
		duration = s.defaultDuration
	}
	if duration < 0 || duration > profile.MaxMeetingDuration {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("duration must be positive and at most %s", profile.MaxMeetingDuration))
	}

	res, err := s.Resolve(ctx, req.Time)
	if err != nil {
		return nil, err
	}
	start := res.UTC
	end := start.Add(duration)

	if err := s.inserts.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(err, classifyContextErr(err), "waiting for a calendar slot")
	}
	event, err := s.scheduler.InsertMeetEvent(ctx, summary, start, end)
	s.inserts.Release(1)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Classify(err), "failed to insert calendar event").
			WithContext("summary", summary).
			WithContext("start", timezone.ToLocal(start).Format(time.RFC3339)).
			WithContext("duration", duration.String())
	}

	meeting := &Meeting{
		Summary:    summary,
		Start:      start,
		End:        end,
		Resolution: res,
		EventID:    event.Id,
		HTMLLink:   event.HtmlLink,
		RequestID:  event.RequestID,
	}
	if link, ok := gcal.ExtractJoinLink(event.Event); ok {
		meeting.JoinLink = link
	} else {
		rc.Warn("calendar event has no conference entry point", slog.String(observability.LogFieldEventID, event.Id))
	}

	rc.Info("meeting scheduled",
		slog.String(observability.LogFieldEventID, meeting.EventID),
		slog.Time("start", timezone.ToLocal(start)),
		slog.Duration("duration", duration),
	)

	if s.store != nil {
		record, err := s.store.CreateMeeting(ctx, &store.Meeting{
			UID:       shortuuid.New(),
			CreatorID: principalID,
			Summary:   summary,
			StartTs:   start.Unix(),
			EndTs:     end.Unix(),
			Timezone:  timezone.Label,
			EventID:   meeting.EventID,
			JoinLink:  meeting.JoinLink,
			HTMLLink:  meeting.HTMLLink,
			RequestID: meeting.RequestID,
		})
		if err != nil {
			// The calendar event already exists; losing the record must not hide it.
			rc.Error("failed to record meeting", err, slog.String(observability.LogFieldEventID, meeting.EventID))
		} else {
			meeting.Record = record
		}
	}
	return meeting, nil
}

func (s *service) ListMeetings(ctx context.Context, principalID int64, limit int) ([]*store.Meeting, error) {
	if !s.principals.Contains(principalID) {
		return nil, apperrors.Unauthorized(fmt.Sprintf("principal %d is not authorized", principalID))
	}
	if s.store == nil {
		return nil, apperrors.ServiceUnavailable("meeting records are not enabled")
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	list, err := s.store.ListMeetings(ctx, &store.FindMeeting{
		CreatorID: &principalID,
		Limit:     &limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "failed to list meetings").
			WithContext("limit", limit)
	}
	return list, nil
}

func classifyContextErr(err error) apperrors.ErrorCode {
	if code := apperrors.Classify(err); code != apperrors.ErrCodeInternal {
		return code
	}
	return apperrors.ErrCodeServiceUnavailable
}
