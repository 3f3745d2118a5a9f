package telegram

import (
	"context"
	"sync"

	"github.com/desertthunder/tunebot/internal/pipeline"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

var _ pipeline.Channel = (*Channel)(nil)

// Channel implements [pipeline.Channel] for one chat.
//
// When created for a callback, the first status reply replaces the text of the keyboard message
// so the candidate list cannot be tapped twice.
type Channel struct {
	api    Sender
	chatID int64

	mu     sync.Mutex
	editID int
}

// NewChannel creates a Channel. editID is the message to replace on the first status reply, or 0.
func NewChannel(api Sender, chatID int64, editID int) *Channel {
	return &Channel{api: api, chatID: chatID, editID: editID}
}

func (c *Channel) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if id := c.takeEdit(text); id != 0 {
		if _, err := c.api.Send(tgbotapi.NewEditMessageText(c.chatID, id, text)); err == nil {
			return nil
		}
	}

	_, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text))
	return err
}

// takeEdit returns the message to edit, once. The busy reply never consumes it.
func (c *Channel) takeEdit(text string) int {
	if text == pipeline.MsgBusy {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.editID
	c.editID = 0
	return id
}

func (c *Channel) PresentChoices(ctx context.Context, prompt string, choices []pipeline.Choice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := lo.Map(choices, func(ch pipeline.Choice, _ int) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ch.Label, ch.Payload))
	})

	msg := tgbotapi.NewMessage(c.chatID, prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := c.api.Send(msg)
	return err
}

func (c *Channel) SendAudio(ctx context.Context, audio pipeline.Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewAudio(c.chatID, tgbotapi.FilePath(audio.Path))
	msg.Title = audio.Title
	msg.Performer = audio.Performer
	msg.Duration = audio.Duration
	_, err := c.api.Send(msg)
	return err
}
