package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sequence_bot/internal/model"
)

// modeOrder fixes the keyboard layout of the sorting modes.
var modeOrder = []model.SortMode{
	model.ModeQuality,
	model.ModeAll,
	model.ModeAllSQE,
	model.ModeEpisode,
	model.ModeSeason,
}

func modeLabel(m model.SortMode) string {
	switch m {
	case model.ModeQuality:
		return "Quality"
	case model.ModeSeason:
		return "Season"
	case model.ModeEpisode:
		return "Episode"
	case model.ModeAllSQE:
		return "All [S→Q→E]"
	default:
		return "All (S→E→Q)"
	}
}

func modeDescription(m model.SortMode) string {
	switch m {
	case model.ModeQuality:
		return "Sort by quality only"
	case model.ModeSeason:
		return "Sort by season number only"
	case model.ModeEpisode:
		return "Sort by episode number only"
	case model.ModeAllSQE:
		return "Season → Quality → Episode"
	default:
		return "Season → Episode → Quality (classic)"
	}
}

// modeKeyboard builds the mode selection keyboard, two buttons per row,
// with the current mode ticked.
func modeKeyboard(current model.SortMode) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, m := range modeOrder {
		text := modeLabel(m)
		if m == current {
			text += " ✅"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(text, "mode:"+string(m)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}
	action, value := parts[0], parts[1]

	b.log.Debug("callback", "action", action, "value", value, "user_id", cb.From.ID)

	switch action {
	case "mode":
		b.handleModeCallback(ctx, cb, chatID, value)
	}
}

func (b *Bot) handleModeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, chatID int64, value string) {
	mode := model.SortMode(value)
	if model.ParseSortMode(value) != mode {
		b.answerCallback(cb.ID, "Unknown sorting mode!")
		return
	}

	if err := b.store.SetSortMode(ctx, cb.From.ID, mode); err != nil {
		b.log.Error("set sort mode", "user_id", cb.From.ID, "error", err)
		b.answerCallback(cb.ID, "An error occurred. Please try again.")
		return
	}

	b.answerCallback(cb.ID, "Sorting mode set to "+modeLabel(mode))

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, FormatModeMenu(mode), modeKeyboard(mode))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Debug("edit mode menu", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Send(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug("answer callback", "error", err)
	}
}
