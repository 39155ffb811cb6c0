package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/plugin/telegram"
	"github.com/poly000/tg-google-meet-bot/server/auth"
	ratelimit "github.com/poly000/tg-google-meet-bot/server/middleware"
	apiv1 "github.com/poly000/tg-google-meet-bot/server/router/api/v1"
	"github.com/poly000/tg-google-meet-bot/server/router/rss"
	telegramrouter "github.com/poly000/tg-google-meet-bot/server/router/telegram"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
	"github.com/poly000/tg-google-meet-bot/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Logger  *slog.Logger

	meetingService meeting.Service
	echoServer     *echo.Echo
	bot            *telegram.Bot
	telegramRouter *telegramrouter.Router
}

// NewServer wires the HTTP API and, when a token is configured, the Telegram
// bot around one meeting service. st may be nil.
func NewServer(p *profile.Profile, st *store.Store, scheduler meeting.Scheduler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Profile: p,
		Store:   st,
		Logger:  logger,
	}

	principals := auth.NewPrincipalSet(p.AuthorizedUsers...)
	if principals.Len() == 0 {
		logger.Warn("no authorized users configured, every scheduling request will be refused")
	}

	cfg := meeting.ConfigFromProfile(p, principals)
	cfg.Logger = logger
	var meetingStore meeting.Store
	if st != nil {
		meetingStore = st
	}
	s.meetingService = meeting.NewService(scheduler, meetingStore, cfg)

	// The HTTP API and the bot share one budget per principal.
	limiter := ratelimit.NewRateLimiter(p.RateLimitPerMinute, p.RateLimitBurst)

	var authenticator *auth.Authenticator
	if p.IsAPIEnabled() {
		a, err := auth.NewAuthenticator(p.JWTSecret, principals)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create authenticator")
		}
		authenticator = a
	}

	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	apiV1Service := apiv1.NewAPIV1Service(p, s.meetingService, authenticator, limiter)
	apiV1Service.Logger = logger
	apiV1Service.RegisterRoutes(echoServer)
	if authenticator != nil {
		rss.NewRSSService(p, s.meetingService, authenticator).RegisterRoutes(echoServer.Group("/api/v1"))
	}

	if p.IsTelegramEnabled() {
		bot, err := telegram.NewBot(p.TelegramToken, telegram.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s.bot = bot
		s.telegramRouter = telegramrouter.NewRouter(s.meetingService, bot, limiter, logger)
	}
	return s, nil
}

// MeetingService returns the service shared by every front-end.
func (s *Server) MeetingService() meeting.Service {
	return s.meetingService
}

// Start serves HTTP and polls Telegram until ctx is done or one of them fails.
// The store is closed once every Telegram handler has returned.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Info("http server starting", slog.String("address", address))
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server stopped")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})
	if s.telegramRouter != nil {
		g.Go(func() error {
			s.Logger.Info("telegram polling started", slog.String("username", s.bot.Username()))
			return s.telegramRouter.Run(gctx, s.bot.Updates(gctx))
		})
	}
	err := g.Wait()
	if closeErr := s.closeStore(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.Logger.Info("server stopped")
	return err
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.Logger.Info("http server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.Logger.Error("failed to shutdown http server", slog.String("error", err.Error()))
	}
	return nil
}

func (s *Server) closeStore() error {
	if s.Store == nil {
		return nil
	}
	return errors.Wrap(s.Store.Close(), "failed to close store")
}
