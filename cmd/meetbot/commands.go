package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	"github.com/poly000/tg-google-meet-bot/plugin/meettime"
	"github.com/poly000/tg-google-meet-bot/server"
	"github.com/poly000/tg-google-meet-bot/server/auth"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
	"github.com/poly000/tg-google-meet-bot/server/timezone"
)

const outputLayout = "2006-01-02 15:04 -07:00"

func newScheduleCmd() *cobra.Command {
	var (
		summary  string
		duration time.Duration
		as       int64
		noStore  bool
	)
	cmd := &cobra.Command{
		Use:   "schedule [HH:MM [DD/MM/YYYY]]",
		Short: "Create a Google Meet event",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadProfile()
			if err != nil {
				return err
			}
			principalID := as
			if principalID == 0 && len(p.AuthorizedUsers) > 0 {
				principalID = p.AuthorizedUsers[0]
			}

			scheduler, err := newCalendarClient(ctx, p)
			if err != nil {
				return err
			}
			var meetingStore meeting.Store
			if !noStore {
				storeInstance, err := openStore(ctx, p)
				if err != nil {
					return err
				}
				defer storeInstance.Close()
				meetingStore = storeInstance
			}

			cfg := meeting.ConfigFromProfile(p, auth.NewPrincipalSet(p.AuthorizedUsers...))
			cfg.Logger = slog.Default()
			svc := meeting.NewService(scheduler, meetingStore, cfg)

			ctx = server.WithCLIRequest(ctx, slog.Default(), principalID)
			m, err := svc.ScheduleMeeting(ctx, principalID, &meeting.ScheduleMeetingRequest{
				Time:     strings.Join(args, " "),
				Summary:  summary,
				Duration: duration,
			})
			if err != nil {
				return err
			}
			printMeeting(cmd.OutOrStdout(), m)
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "event title (default from MEETBOT_DEFAULT_SUMMARY)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "meeting length (default from MEETBOT_MEETING_DURATION)")
	cmd.Flags().Int64Var(&as, "as", 0, "principal to schedule as (default the first authorized user)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the meeting")
	return cmd
}

func printMeeting(w io.Writer, m *meeting.Meeting) {
	fmt.Fprintf(w, "Summary:  %s\n", m.Summary)
	fmt.Fprintf(w, "Start:    %s\n", timezone.ToLocal(m.Start).Format(outputLayout))
	fmt.Fprintf(w, "End:      %s\n", timezone.ToLocal(m.End).Format(outputLayout))
	fmt.Fprintf(w, "Event:    %s\n", m.EventID)
	if m.HasJoinLink() {
		fmt.Fprintf(w, "Join:     %s\n", m.JoinLink)
	} else {
		fmt.Fprintln(w, "Join:     (no conference link returned)")
	}
	if m.Record != nil {
		fmt.Fprintf(w, "Record:   %s\n", m.Record.UID)
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [HH:MM [DD/MM/YYYY]]",
		Short: "Print how a time string resolves right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := meettime.Explain(strings.Join(args, " "), timezone.Now())
			if err != nil {
				return err
			}
			printResolution(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printResolution(w io.Writer, res *meettime.Resolution) {
	fmt.Fprintf(w, "Local:  %s\n", res.Local.Format(outputLayout))
	fmt.Fprintf(w, "UTC:    %s\n", res.UTC.Format(time.RFC3339))
	if res.RolledForward {
		fmt.Fprintln(w, "(moved to tomorrow)")
	}
}

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar and cache the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			config, err := gcal.LoadOAuthConfig(p.GoogleCredentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open the following link, then paste the authorization code:\n\n%s\n\nCode: ", gcal.AuthCodeURL(config))
			code, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if _, err := gcal.ExchangeAndSave(cmd.Context(), config, code, p.GoogleTokenFile); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", p.GoogleTokenFile)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "failed to read authorization code")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no authorization code given")
	}
	return line, nil
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <principal-id>",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principalID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid principal id %q", args[0])
			}
			// Only secrets are needed, so the data directory is not validated.
			p := &profile.Profile{}
			if err := p.FromEnv(); err != nil {
				return err
			}
			token, err := issueToken(p, principalID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func issueToken(p *profile.Profile, principalID int64, ttl time.Duration) (string, error) {
	principals := auth.NewPrincipalSet(p.AuthorizedUsers...)
	if !principals.Contains(principalID) {
		return "", errors.Errorf("principal %d is not in MEETBOT_AUTHORIZED_USERS", principalID)
	}
	authenticator, err := auth.NewAuthenticator(p.JWTSecret, principals)
	if err != nil {
		return "", err
	}
	return authenticator.IssueToken(principalID, ttl)
}
