package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/internal/version"
	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	"github.com/poly000/tg-google-meet-bot/server"
	"github.com/poly000/tg-google-meet-bot/store"
	"github.com/poly000/tg-google-meet-bot/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "meetbot",
		Short: "Create Google Meet meetings from Telegram, HTTP or the command line.",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("log-level", "info")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the HTTP API")
	rootCmd.PersistentFlags().Int("port", 8081, "port of the HTTP API")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("instance-url", "", "public URL of the HTTP API")
	rootCmd.PersistentFlags().String("calendar-id", "", "calendar to insert events into (default primary)")
	rootCmd.PersistentFlags().String("google-credentials", "", "OAuth client secret file (default <data>/credentials.json)")
	rootCmd.PersistentFlags().String("google-token", "", "cached OAuth token file (default <data>/token.json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn or error")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url", "calendar-id", "google-credentials", "google-token", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("meetbot")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, newScheduleCmd(), newResolveCmd(), newAuthCmd(), newTokenCmd())
}

func setupLogger() error {
	logger, err := server.NewLogger(os.Stderr, viper.GetString("log-level"), viper.GetString("mode") == "prod")
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// loadProfile builds the profile from flags, MEETBOT_* variables and defaults.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:                  viper.GetString("mode"),
		Addr:                  viper.GetString("addr"),
		Port:                  viper.GetInt("port"),
		Data:                  viper.GetString("data"),
		Driver:                viper.GetString("driver"),
		DSN:                   viper.GetString("dsn"),
		InstanceURL:           viper.GetString("instance-url"),
		CalendarID:            viper.GetString("calendar-id"),
		GoogleCredentialsFile: viper.GetString("google-credentials"),
		GoogleTokenFile:       viper.GetString("google-token"),
		Version:               version.GetCurrentVersion(viper.GetString("mode")),
	}
	if err := p.FromEnv(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// openStore opens and migrates the meeting record database.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return storeInstance, nil
}

// newCalendarClient builds the Event Scheduler from the cached OAuth token.
func newCalendarClient(ctx context.Context, p *profile.Profile) (*gcal.Client, error) {
	service, err := gcal.NewService(ctx, p.GoogleCredentialsFile, p.GoogleTokenFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calendar service, run `meetbot auth` first")
	}
	return gcal.NewClient(service, gcal.WithCalendarID(p.CalendarID), gcal.WithLogger(slog.Default()))
}

func runServe(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := newCalendarClient(ctx, p)
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}

	s, err := server.NewServer(p, storeInstance, scheduler, slog.Default())
	if err != nil {
		_ = storeInstance.Close()
		return errors.Wrap(err, "failed to create server")
	}

	printGreetings(p)
	return s.Start(ctx)
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("meetbot %s started in %s mode\n", p.Version, p.Mode)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Calendar: %s\n", p.CalendarID)
	fmt.Printf("Authorized users: %d\n", len(p.AuthorizedUsers))
	if p.IsAPIEnabled() {
		fmt.Printf("HTTP API: %s:%d\n", p.Addr, p.Port)
	} else {
		fmt.Println("HTTP API: meeting endpoints disabled (no MEETBOT_JWT_SECRET)")
	}
	if p.IsTelegramEnabled() {
		fmt.Println("Telegram bot: enabled")
	} else {
		fmt.Println("Telegram bot: disabled (no MEETBOT_TELEGRAM_TOKEN)")
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
