package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultCalendarID is the authenticated account's primary calendar.
	DefaultCalendarID = "primary"
	// DefaultMeetingDuration is used when a request names no duration.
	DefaultMeetingDuration = time.Hour
	// MaxMeetingDuration bounds any single meeting.
	MaxMeetingDuration = 24 * time.Hour
	// DefaultSummary titles meetings booked without one.
	DefaultSummary = "Google Meet"
	// DefaultMaxConcurrentInserts bounds in-flight calendar inserts.
	DefaultMaxConcurrentInserts = 4
)

// Profile is the configuration to start the bot.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the HTTP API
	Addr string
	// Port is the binding port for the HTTP API
	Port int
	// Data is the data directory
	Data string
	// DSN points to where meetbot stores its meeting records
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the bot
	Version string
	// InstanceURL is the public URL of the HTTP API, used in feed links.
	InstanceURL string

	// Google Calendar
	GoogleCredentialsFile string // MEETBOT_GOOGLE_CREDENTIALS (default: <data>/credentials.json)
	GoogleTokenFile       string // MEETBOT_GOOGLE_TOKEN (default: <data>/token.json)
	CalendarID            string // MEETBOT_CALENDAR_ID (default: primary)

	// Meetings
	MeetingDuration      time.Duration // MEETBOT_MEETING_DURATION (default: 1h)
	DefaultSummary       string        // MEETBOT_DEFAULT_SUMMARY (default: Google Meet)
	MaxConcurrentInserts int           // MEETBOT_MAX_CONCURRENT_INSERTS (default: 4)

	// Access
	AuthorizedUsers    []int64 // MEETBOT_AUTHORIZED_USERS, comma separated Telegram user IDs
	JWTSecret          string  // MEETBOT_JWT_SECRET
	TelegramToken      string  // MEETBOT_TELEGRAM_TOKEN (legacy: TELOXIDE_TOKEN)
	RateLimitPerMinute int     // MEETBOT_RATE_LIMIT_PER_MINUTE (default: 30)
	RateLimitBurst     int     // MEETBOT_RATE_LIMIT_BURST (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsTelegramEnabled reports whether a bot token is configured.
func (p *Profile) IsTelegramEnabled() bool {
	return p.TelegramToken != ""
}

// IsAPIEnabled reports whether the HTTP API can authenticate callers.
func (p *Profile) IsAPIEnabled() bool {
	return p.JWTSecret != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads secrets and settings from environment variables.
// Fields already set (for example from flags) are kept.
func (p *Profile) FromEnv() error {
	getEnvWithFallback := func(newKey, legacyKey string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		return os.Getenv(legacyKey)
	}
	setString := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	setInt := func(field *int, key string, defaultValue int) error {
		if *field != 0 {
			return nil
		}
		raw := os.Getenv(key)
		if raw == "" {
			*field = defaultValue
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*field = v
		return nil
	}

	setString(&p.TelegramToken, getEnvWithFallback("MEETBOT_TELEGRAM_TOKEN", "TELOXIDE_TOKEN"))
	setString(&p.JWTSecret, os.Getenv("MEETBOT_JWT_SECRET"))
	setString(&p.GoogleCredentialsFile, os.Getenv("MEETBOT_GOOGLE_CREDENTIALS"))
	setString(&p.GoogleTokenFile, os.Getenv("MEETBOT_GOOGLE_TOKEN"))
	setString(&p.CalendarID, getEnvOrDefault("MEETBOT_CALENDAR_ID", DefaultCalendarID))
	setString(&p.DefaultSummary, getEnvOrDefault("MEETBOT_DEFAULT_SUMMARY", DefaultSummary))
	setString(&p.InstanceURL, os.Getenv("MEETBOT_INSTANCE_URL"))

	if p.MeetingDuration == 0 {
		p.MeetingDuration = DefaultMeetingDuration
		if raw := os.Getenv("MEETBOT_MEETING_DURATION"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return errors.Wrap(err, "invalid MEETBOT_MEETING_DURATION")
			}
			p.MeetingDuration = d
		}
	}

	if err := setInt(&p.MaxConcurrentInserts, "MEETBOT_MAX_CONCURRENT_INSERTS", DefaultMaxConcurrentInserts); err != nil {
		return err
	}
	if err := setInt(&p.RateLimitPerMinute, "MEETBOT_RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return err
	}
	if err := setInt(&p.RateLimitBurst, "MEETBOT_RATE_LIMIT_BURST", 5); err != nil {
		return err
	}

	if len(p.AuthorizedUsers) == 0 {
		ids, err := ParseIDList(os.Getenv("MEETBOT_AUTHORIZED_USERS"))
		if err != nil {
			return errors.Wrap(err, "invalid MEETBOT_AUTHORIZED_USERS")
		}
		p.AuthorizedUsers = ids
	}
	return nil
}

// ParseIDList parses a comma separated list of numeric IDs.
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "meetbot")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/meetbot"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("meetbot_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.GoogleCredentialsFile == "" {
		p.GoogleCredentialsFile = filepath.Join(dataDir, "credentials.json")
	}
	if p.GoogleTokenFile == "" {
		p.GoogleTokenFile = filepath.Join(dataDir, "token.json")
	}
	if p.CalendarID == "" {
		p.CalendarID = DefaultCalendarID
	}
	if p.DefaultSummary == "" {
		p.DefaultSummary = DefaultSummary
	}

	if p.MeetingDuration == 0 {
		p.MeetingDuration = DefaultMeetingDuration
	}
	if p.MeetingDuration < 0 || p.MeetingDuration > MaxMeetingDuration {
		return errors.Errorf("meeting duration %s out of range (0, %s]", p.MeetingDuration, MaxMeetingDuration)
	}
	if p.MaxConcurrentInserts <= 0 {
		p.MaxConcurrentInserts = DefaultMaxConcurrentInserts
	}
	return nil
}
