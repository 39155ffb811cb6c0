// Package telegram routes bot commands to the meeting service.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poly000/tg-google-meet-bot/plugin/telegram"
	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
	ratelimit "github.com/poly000/tg-google-meet-bot/server/middleware"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
	"github.com/poly000/tg-google-meet-bot/server/timezone"
)

const (
	// listLimit bounds the /list reply.
	listLimit = 5
	// handleTimeout bounds the work done for a single update.
	handleTimeout = 30 * time.Second

	summarySeparator = "|"
	localLayout      = "2006-01-02 15:04 (UTC+8)"
)

const helpText = `Commands:
/meet [HH:MM [DD/MM/YYYY]] [| title] - create a Google Meet
/time [HH:MM [DD/MM/YYYY]] - show how a time is resolved
/list - your recent meetings
/whoami - your Telegram user id`

type Router struct {
	meetings meeting.Service
	sender   telegram.Sender
	limiter  *ratelimit.RateLimiter
	logger   *slog.Logger

	wg sync.WaitGroup
}

func NewRouter(meetings meeting.Service, sender telegram.Sender, limiter *ratelimit.RateLimiter, logger *slog.Logger) *Router {
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{meetings: meetings, sender: sender, limiter: limiter, logger: logger}
}

// Run handles every update in its own goroutine until updates is closed or
// ctx is done, then waits for in-flight handlers. Cancelling ctx stops
// accepting updates but lets started handlers finish and reply within
// their own timeout.
func (r *Router) Run(ctx context.Context, updates <-chan telegram.Update) error {
	handlerCtx := context.WithoutCancel(ctx)
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.Handle(handlerCtx, u)
			}()
		}
	}
}

// Handle answers a single update.
func (r *Router) Handle(ctx context.Context, u telegram.Update) {
	if u.Command == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	rc := observability.NewRequestContext(r.logger, observability.ChannelTelegram, u.UserID)
	ctx = observability.WithRequestContext(ctx, rc)
	rc.Debug("telegram command", slog.String("command", u.Command), slog.String(observability.LogFieldInput, u.Args))

	var text string
	switch u.Command {
	case "meet":
		text = r.limited(u, func() string { return r.scheduleMeeting(ctx, u) })
	case "time":
		text = r.limited(u, func() string { return r.resolveTime(ctx, u) })
	case "list":
		text = r.limited(u, func() string { return r.listMeetings(ctx, u) })
	case "whoami":
		text = fmt.Sprintf("Your user id is %d.", u.UserID)
	case "start", "help":
		text = helpText
	default:
		return
	}

	reply := telegram.Reply{
		ChatID:                u.ChatID,
		ReplyToMessageID:      u.MessageID,
		Text:                  text,
		DisableWebPagePreview: u.Command != "meet",
	}
	if err := r.sender.Send(ctx, reply); err != nil {
		rc.Error("failed to send reply", err)
	}
}

func (r *Router) limited(u telegram.Update, fn func() string) string {
	if !r.limiter.AllowPrincipal(u.UserID) {
		return apperrors.UserMessage(apperrors.RateLimitExceeded("telegram"))
	}
	return fn()
}

func (r *Router) scheduleMeeting(ctx context.Context, u telegram.Update) string {
	if !r.meetings.IsAuthorized(u.UserID) {
		return apperrors.UserMessage(apperrors.Unauthorized("telegram"))
	}

	timeArgs, summary := splitSummary(u.Args)
	m, err := r.meetings.ScheduleMeeting(ctx, u.UserID, &meeting.ScheduleMeetingRequest{
		Time:    timeArgs,
		Summary: summary,
	})
	if err != nil {
		return apperrors.UserMessage(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s - %s\n",
		m.Summary,
		timezone.ToLocal(m.Start).Format(localLayout),
		timezone.ToLocal(m.End).Format("15:04"),
	)
	if m.HasJoinLink() {
		sb.WriteString(m.JoinLink)
	} else {
		sb.WriteString("The event was created without a Meet link.")
		if m.HTMLLink != "" {
			sb.WriteString("\n" + m.HTMLLink)
		}
	}
	return sb.String()
}

func (r *Router) resolveTime(ctx context.Context, u telegram.Update) string {
	res, err := r.meetings.Resolve(ctx, u.Args)
	if err != nil {
		return apperrors.UserMessage(err)
	}
	text := fmt.Sprintf("%s\n%s", res.Local.Format(localLayout), res.UTC.Format(time.RFC3339))
	if res.RolledForward {
		text += "\n(already passed today, moved to tomorrow)"
	}
	return text
}

func (r *Router) listMeetings(ctx context.Context, u telegram.Update) string {
	list, err := r.meetings.ListMeetings(ctx, u.UserID, listLimit)
	if err != nil {
		return apperrors.UserMessage(err)
	}
	if len(list) == 0 {
		return "No meetings yet."
	}

	lines := make([]string, 0, len(list))
	for i, m := range list {
		endTs := m.EndTs
		line := timezone.FormatMeetingLine(m.StartTs, &endTs, m.Summary, i)
		if m.JoinLink != "" {
			line += "\n   " + m.JoinLink
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// splitSummary splits "12:00 01/06/2023 | Weekly sync" into the time
// arguments and the meeting title.
func splitSummary(args string) (timeArgs, summary string) {
	timeArgs, summary, _ = strings.Cut(args, summarySeparator)
	return strings.TrimSpace(timeArgs), strings.TrimSpace(summary)
}
