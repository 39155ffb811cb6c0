// Package telegram is a thin long-polling client for the Telegram Bot API.
package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

const (
	// DefaultPollTimeout is the long polling timeout in seconds.
	DefaultPollTimeout = 60
)

// Update is an incoming text message, reduced to what command handlers need.
type Update struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Text      string
	// Command is the bot command without the leading slash or @botname, empty for plain text.
	Command string
	// Args is the text after the command.
	Args string
}

// Reply is an outgoing text message.
type Reply struct {
	ChatID           int64
	ReplyToMessageID int
	Text             string
	// DisableWebPagePreview suppresses link previews of join links.
	DisableWebPagePreview bool
}

// Sender delivers replies.
type Sender interface {
	Send(ctx context.Context, reply Reply) error
}

// Bot wraps a tgbotapi.BotAPI.
type Bot struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

type config struct {
	client      tgbotapi.HTTPClient
	endpoint    string
	pollTimeout int
	logger      *slog.Logger
}

type Option func(*config)

// WithHTTPClient sets the HTTP client and API endpoint, a format string with
// the token and method placeholders such as tgbotapi.APIEndpoint.
func WithHTTPClient(client tgbotapi.HTTPClient, endpoint string) Option {
	return func(c *config) {
		c.client = client
		c.endpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithPollTimeout sets the long polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(c *config) {
		c.pollTimeout = seconds
	}
}

// NewBot authenticates token against the Bot API.
func NewBot(token string, opts ...Option) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	cfg := &config{
		client:      &http.Client{},
		endpoint:    tgbotapi.APIEndpoint,
		pollTimeout: DefaultPollTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, cfg.endpoint, cfg.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to authenticate telegram bot")
	}
	cfg.logger.Info("telegram bot authenticated", slog.String("username", api.Self.UserName))
	return &Bot{api: api, pollTimeout: cfg.pollTimeout, logger: cfg.logger}, nil
}

// Username returns the bot's username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Updates long-polls for text messages until ctx is done, then closes the channel.
func (b *Bot) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	cfg.AllowedUpdates = []string{"message"}
	raw := b.api.GetUpdatesChan(cfg)

	out := make(chan Update)
	go func() {
		defer close(out)
		defer b.api.StopReceivingUpdates()
		defer b.logger.Debug("telegram polling stopped")
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-raw:
				if !ok {
					return
				}
				update, ok := convertUpdate(u, b.Username())
				if !ok {
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Send delivers a reply as plain text.
func (b *Bot) Send(ctx context.Context, reply Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	msg.ReplyToMessageID = reply.ReplyToMessageID
	msg.DisableWebPagePreview = reply.DisableWebPagePreview
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send message to chat %d", reply.ChatID)
	}
	return nil
}

// convertUpdate keeps text messages from a user. Commands addressed to
// another bot ("/meet@OtherBot") are dropped.
func convertUpdate(u tgbotapi.Update, username string) (Update, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return Update{}, false
	}
	command, target, args := ParseCommand(msg.Text)
	if target != "" && !strings.EqualFold(target, username) {
		return Update{}, false
	}
	return Update{
		UpdateID:  u.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		Text:      msg.Text,
		Command:   command,
		Args:      args,
	}, true
}

// ParseCommand splits "/cmd@bot args" text into the lowercased command, the
// bot it is addressed to (empty when unaddressed) and the arguments.
// Text that is not a command yields an empty command and the trimmed text as args.
func ParseCommand(text string) (command, target, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", text
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	head = strings.TrimPrefix(head, "/")
	head, target, _ = strings.Cut(head, "@")
	return strings.ToLower(head), target, strings.TrimSpace(rest)
}
