package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sequence_bot/internal/dispatch"
	"sequence_bot/internal/model"
	"sequence_bot/internal/sequence"
	"sequence_bot/internal/session"
)

const (
	leaderboardSize = 10
	addDumpCooldown = 5 * time.Second
)

// cooldown tracks the last invocation time of a rate-limited command per user.
type cooldown struct {
	mu   sync.Mutex
	last map[int64]time.Time
}

func (c *cooldown) allow(userID int64, d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.last[userID]; ok && time.Since(t) < d {
		return false
	}
	c.last[userID] = time.Now()
	return true
}

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Sequence Bot!

Send a batch of media files (or bare filenames) and get them back in
season/episode/quality order.

Quick start:
1. /ssequence — start collecting
2. Send your files or filenames
3. /esequence — receive them in order

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Sequencing:
/ssequence — start a new collection session
/esequence — sort and send the collected files
/cancel — discard the current session
/mode — choose the sorting mode

Dump channel:
/add_dump <id|@name> — send sequenced files to a channel instead
/rem_dump — remove the dump channel
/dump_info — show the configured dump channel

Stats:
/leaderboard — top sequencers and your rank`)
}

func (b *Bot) handleStartSequence(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	sessionID := b.sessions.Start(userID)
	b.metrics.SessionStarted()
	b.log.Info("session started", "user_id", userID, "session_id", sessionID)

	mode, err := b.store.GetSortMode(ctx, userID)
	if err != nil {
		b.log.Error("get sort mode", "user_id", userID, "error", err)
		mode = model.DefaultSortMode
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Sequence started (current mode: %s).\nNow send your file(s), then /esequence when you're done.\nUse /mode to change the sorting mode.",
		modeLabel(mode)))
}

func (b *Bot) handleEndSequence(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	items, err := b.sessions.Finish(userID)
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		b.reply(chatID, "No active sequence. Use /ssequence to start one.")
		return
	case errors.Is(err, session.ErrEmptySession):
		b.reply(chatID, "No files were sent for sequencing.")
		return
	case err != nil:
		b.log.Error("finish session", "user_id", userID, "error", err)
		b.reply(chatID, "An error occurred. Please try again.")
		return
	}

	mode, err := b.store.GetSortMode(ctx, userID)
	if err != nil {
		b.log.Error("get sort mode", "user_id", userID, "error", err)
		mode = model.DefaultSortMode
	}

	series, nonSeries := sequence.Sort(items, mode)
	ordered := append(series, nonSeries...)

	dumpChat, toDump, err := b.store.GetDumpChat(ctx, userID)
	if err != nil {
		b.log.Error("get dump chat", "user_id", userID, "error", err)
		toDump = false
	}

	dest := chatID
	if toDump {
		dest = dumpChat
		b.reply(chatID, fmt.Sprintf("Sending %d file(s) to your dump channel (%d)...", len(ordered), dumpChat))
	} else {
		b.reply(chatID, fmt.Sprintf("Sending %d file(s) in sequence...", len(ordered)))
	}

	res, err := b.engine.Dispatch(ctx, ordered, dest)
	if toDump && errors.Is(err, dispatch.ErrDestinationUnreachable) {
		// One-shot fallback: the dump channel itself rejected the batch,
		// so rerun the full dispatch against the requester's chat.
		b.metrics.DispatchFallback()
		b.log.Warn("dump channel unreachable, falling back", "user_id", userID, "dump_chat", dumpChat, "error", err)
		b.reply(chatID, "Couldn't deliver to your dump channel. Sending here instead.")
		toDump = false
		res, err = b.engine.Dispatch(ctx, ordered, chatID)
	}
	if err != nil {
		b.log.Error("dispatch", "user_id", userID, "error", err)
		b.reply(chatID, "Sending failed. Please try again.")
		return
	}

	b.metrics.SequenceCompleted()
	b.metrics.ItemsDispatched(res.SentCount)
	b.metrics.SendFailures(len(res.Failed))
	b.log.Info("dispatch finished",
		"user_id", userID,
		"sent", res.SentCount,
		"failed", len(res.Failed),
		"total", res.Total,
		"to_dump", toDump,
	)

	if err := b.store.IncrementSequenceCount(ctx, userID, res.SentCount, displayName(msg.From)); err != nil {
		b.log.Error("increment sequence count", "user_id", userID, "error", err)
	}

	b.reply(chatID, FormatDispatchSummary(res, toDump))
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	if b.sessions.Cancel(msg.From.ID) {
		b.reply(msg.Chat.ID, "Sequence cancelled.")
		return
	}
	b.reply(msg.Chat.ID, "No active sequence found.")
}

func (b *Bot) handleMode(ctx context.Context, msg *tgbotapi.Message) {
	current, err := b.store.GetSortMode(ctx, msg.From.ID)
	if err != nil {
		b.log.Error("get sort mode", "user_id", msg.From.ID, "error", err)
		current = model.DefaultSortMode
	}

	m := tgbotapi.NewMessage(msg.Chat.ID, FormatModeMenu(current))
	m.ReplyMarkup = modeKeyboard(current)
	if _, err := b.api.Send(m); err != nil {
		b.log.Error("send mode menu", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleAddDump(ctx context.Context, msg *tgbotapi.Message, args string) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.dumpCooldown.allow(userID, addDumpCooldown) {
		return
	}

	target, err := ParseDumpTarget(args)
	if err != nil {
		b.reply(chatID, "Usage: /add_dump <channel ID or @username>")
		return
	}

	channelID := target.ChatID
	if target.Username != "" {
		chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@" + target.Username},
		})
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Cannot resolve channel @%s: %v", target.Username, err))
			return
		}
		channelID = chat.ID
	}

	if channelID > 0 {
		b.reply(chatID, "Cannot set a private chat as dump channel. Use a channel ID (negative).")
		return
	}

	// Probe the channel so a missing admin right fails here, not mid-dispatch.
	probe, err := b.api.Send(tgbotapi.NewMessage(channelID, "Dump channel connected successfully!"))
	if err != nil {
		b.reply(chatID, "Cannot connect to the channel. Make sure the bot is an admin there.")
		return
	}
	if _, err := b.api.Send(tgbotapi.NewDeleteMessage(channelID, probe.MessageID)); err != nil {
		b.log.Debug("delete probe message", "chat_id", channelID, "error", err)
	}

	if err := b.store.SetDumpChat(ctx, userID, channelID); err != nil {
		b.log.Error("set dump chat", "user_id", userID, "error", err)
		b.reply(chatID, "An error occurred. Please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Dump channel saved (%d).\nUse /esequence to send files there.", channelID))
}

func (b *Bot) handleRemDump(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	current, ok, err := b.store.GetDumpChat(ctx, userID)
	if err != nil {
		b.log.Error("get dump chat", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	if !ok {
		b.reply(msg.Chat.ID, "You haven't set a dump channel yet.")
		return
	}

	if err := b.store.RemoveDumpChat(ctx, userID); err != nil {
		b.log.Error("remove dump chat", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Dump channel removed (was %d).", current))
}

func (b *Bot) handleDumpInfo(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	dumpChat, ok, err := b.store.GetDumpChat(ctx, userID)
	if err != nil {
		b.log.Error("get dump chat", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	if !ok {
		b.reply(msg.Chat.ID, "No dump channel set. Use /add_dump to set one.")
		return
	}

	title := ""
	if chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: dumpChat},
	}); err == nil {
		title = chat.Title
	}

	b.reply(msg.Chat.ID, FormatDumpInfo(dumpChat, title))
}

func (b *Bot) handleLeaderboard(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	entries, err := b.board.Top(ctx, leaderboardSize)
	if err != nil {
		b.log.Error("leaderboard top", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, "Error loading leaderboard. Try again later.")
		return
	}

	ownRank := 0
	var ownCount int64
	ranked := false
	if !inEntries(entries, userID) {
		ownRank, ownCount, ranked, err = b.board.RankOf(ctx, userID)
		if err != nil {
			b.log.Error("leaderboard rank", "user_id", userID, "error", err)
		}
	}

	b.reply(msg.Chat.ID, FormatLeaderboard(entries, userID, ownRank, ownCount, ranked))
}

func inEntries(entries []model.LeaderboardEntry, userID int64) bool {
	for _, e := range entries {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}
