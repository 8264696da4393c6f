package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sequence_bot/internal/dispatch"
)

// telegramTransport adapts the Telegram Bot API to dispatch.Transport,
// translating API errors into the dispatch package's error taxonomy.
type telegramTransport struct {
	api telegramAPI
}

func (t *telegramTransport) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return classifySendError(err)
}

func (t *telegramTransport) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	_, err := t.api.Send(doc)
	return classifySendError(err)
}

func (t *telegramTransport) SendVideo(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vid := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	vid.Caption = caption
	_, err := t.api.Send(vid)
	return classifySendError(err)
}

func (t *telegramTransport) SendAudio(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	aud := tgbotapi.NewAudio(chatID, tgbotapi.FileID(fileID))
	aud.Caption = caption
	_, err := t.api.Send(aud)
	return classifySendError(err)
}

// classifySendError maps Telegram API errors onto the dispatch taxonomy:
// 429 with a retry_after becomes a ThrottleError, chat-level rejections
// (403, or 400 with a chat-related description) become
// ErrDestinationUnreachable, everything else passes through as an
// isolated item failure.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}

	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return err
	}

	if tgErr.RetryAfter > 0 {
		return &dispatch.ThrottleError{RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second}
	}

	if tgErr.Code == 403 || (tgErr.Code == 400 && isChatError(tgErr.Message)) {
		return fmt.Errorf("%s: %w", tgErr.Message, dispatch.ErrDestinationUnreachable)
	}

	return err
}

func isChatError(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "chat not found") ||
		strings.Contains(m, "chat_id is empty") ||
		strings.Contains(m, "not enough rights")
}
