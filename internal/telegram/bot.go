package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebot/internal/pipeline"
	"github.com/desertthunder/tunebot/internal/shared"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	WelcomeText = "tunebot, your music helper\n\n" +
		"Send me:\n" +
		"• A track title (for example: Bohemian Rhapsody)\n" +
		"• A Spotify link\n\n" +
		"I will find it and send it back as audio you can play right in Telegram."

	HelpText = "Send a title or a Spotify track, album or playlist link, then pick a result from the list.\n\n" +
		"/start shows the welcome message."

	pollTimeout = 60
)

// Handler runs interactions for the bot. Satisfied by [*pipeline.Pipeline].
type Handler interface {
	HandleQuery(ctx context.Context, user int64, text string, ch pipeline.Channel) error
	HandleSelection(ctx context.Context, user int64, payload string, ch pipeline.Channel) error
}

// Sender is the subset of [tgbotapi.BotAPI] used to talk to a chat.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot receives Telegram updates and dispatches them to a [Handler].
type Bot struct {
	api     *tgbotapi.BotAPI
	handler Handler
	logger  *log.Logger
	wg      sync.WaitGroup
}

// NewBot authenticates against the public Bot API.
//
// timeout bounds each HTTP request, uploads included, and must exceed the long-poll interval.
func NewBot(cfg shared.TelegramConfig, handler Handler, logger *log.Logger, timeout time.Duration) (*Bot, error) {
	return newBot(cfg, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout}, handler, logger)
}

func newBot(cfg shared.TelegramConfig, endpoint string, client *http.Client, handler Handler, logger *log.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: telegram token", shared.ErrMissingCredentials)
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	api.Debug = cfg.Debug

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Bot{
		api:     api,
		handler: handler,
		logger:  shared.WithLogger(logger, "component", "telegram"),
	}, nil
}

// Username returns the bot's @username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls for updates until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	b.logger.Info("polling for updates", "bot", b.Username())

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.Handle(ctx, update)
			}()
		}
	}
}

// Handle dispatches one update.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update handler panic", "update", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := chatID
	if msg.From != nil {
		user = msg.From.ID
	}

	if msg.IsCommand() {
		text := HelpText
		if msg.Command() == "start" {
			text = WelcomeText
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			b.logger.Warn("failed to reply to command", "command", msg.Command(), "err", err)
		}
		return
	}

	if msg.Text == "" {
		return
	}

	ch := NewChannel(b.api, chatID, 0)
	if err := b.handler.HandleQuery(ctx, user, msg.Text, ch); err != nil {
		b.logger.Debug("query ended", "user", user, "kind", pipeline.KindOf(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "err", err)
	}

	if cq.Message == nil || cq.From == nil {
		return
	}

	ch := NewChannel(b.api, cq.Message.Chat.ID, cq.Message.MessageID)
	if err := b.handler.HandleSelection(ctx, cq.From.ID, cq.Data, ch); err != nil {
		b.logger.Debug("selection ended", "user", cq.From.ID, "kind", pipeline.KindOf(err))
	}
}
