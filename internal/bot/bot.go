package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sequence_bot/internal/config"
	"sequence_bot/internal/dispatch"
	"sequence_bot/internal/metrics"
	"sequence_bot/internal/model"
	"sequence_bot/internal/rank"
	"sequence_bot/internal/session"
	"sequence_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that collects items into per-user sessions and
// dispatches them in sorted order.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	cfg      *config.Config
	log      *slog.Logger
	sessions *session.Store
	notifier *session.Notifier
	engine   *dispatch.Engine
	board    *rank.Leaderboard
	metrics  *metrics.Collector

	dumpCooldown cooldown
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, collector *metrics.Collector, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newWithAPI(api, store, cfg, collector, log), nil
}

func newWithAPI(api telegramAPI, store storage.Storage, cfg *config.Config, collector *metrics.Collector, log *slog.Logger) *Bot {
	b := &Bot{
		api:          api,
		store:        store,
		cfg:          cfg,
		log:          log,
		metrics:      collector,
		board:        rank.New(store),
		dumpCooldown: cooldown{last: make(map[int64]time.Time)},
	}

	b.sessions = session.NewStore()
	b.notifier = session.NewNotifier(cfg.QuietWindow, b.sessions.Count, b.sendDebouncedAck)
	b.sessions.SetNotifier(b.notifier)
	b.engine = dispatch.New(&telegramTransport{api: api}, log)

	return b
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					b.handleCallback(ctx, update.CallbackQuery)
				}
				continue
			}
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.Chat.IsPrivate() {
				continue
			}
			if !b.cfg.IsUserAllowed(msg.From.ID) {
				if msg.IsCommand() {
					b.reply(msg.Chat.ID, "Access denied.")
				}
				continue
			}
			if msg.IsCommand() {
				b.handleCommand(ctx, msg)
				continue
			}
			b.collectItems(msg)
		}
	}
}

// reply sends a plain text message, riding out throttle signals.
func (b *Bot) reply(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	transport := &telegramTransport{api: b.api}
	err := dispatch.WithThrottleRetry(ctx, func(ctx context.Context) error {
		return transport.SendText(ctx, chatID, text)
	})
	if err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// sendDebouncedAck fires once per quiet period of item additions. The
// session is known to still exist with the armed total at this point.
func (b *Bot) sendDebouncedAck(userID int64, added, total int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mode, err := b.store.GetSortMode(ctx, userID)
	if err != nil {
		b.log.Error("get sort mode", "user_id", userID, "error", err)
		mode = model.DefaultSortMode
	}

	b.reply(userID, FormatItemsAdded(added, total, mode))
}

// collectItems appends a non-command message's contents to the user's open
// session: every non-empty text line becomes a filename item, and each
// attached document, video, or audio becomes a payload item.
func (b *Bot) collectItems(msg *tgbotapi.Message) {
	userID := msg.From.ID

	items := itemsFromMessage(msg)
	if len(items) == 0 {
		return
	}

	if !b.sessions.Active(userID) {
		if hasPayload(items) {
			b.reply(msg.Chat.ID, "Use /ssequence first, then send the file(s).")
		}
		return
	}

	total, err := b.sessions.Append(userID, items...)
	if err != nil {
		// Session torn down between the check and the append; nothing to do.
		return
	}

	b.notifier.Arm(userID, len(items), total)
}

func itemsFromMessage(msg *tgbotapi.Message) []model.Item {
	var items []model.Item

	if msg.Text != "" && !strings.HasPrefix(msg.Text, "/") {
		for _, line := range SplitFilenames(msg.Text) {
			items = append(items, model.Item{Filename: line, Format: model.FormatText})
		}
	}

	if doc := msg.Document; doc != nil {
		items = append(items, model.Item{
			Filename: doc.FileName,
			Format:   model.FormatDocument,
			FileID:   doc.FileID,
		})
	}

	if vid := msg.Video; vid != nil {
		name := vid.FileName
		if name == "" {
			name = msg.Caption
		}
		if name == "" {
			name = fmt.Sprintf("video_%s.mp4", vid.FileUniqueID)
		}
		items = append(items, model.Item{
			Filename: name,
			Format:   model.FormatVideo,
			FileID:   vid.FileID,
		})
	}

	if aud := msg.Audio; aud != nil {
		name := aud.FileName
		if name == "" {
			name = fmt.Sprintf("audio_%s", aud.FileUniqueID)
		}
		items = append(items, model.Item{
			Filename: name,
			Format:   model.FormatAudio,
			FileID:   aud.FileID,
		})
	}

	return items
}

func hasPayload(items []model.Item) bool {
	for _, it := range items {
		if it.FileID != "" {
			return true
		}
	}
	return false
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := msg.CommandArguments()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID, "user_id", msg.From.ID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "ssequence":
		b.handleStartSequence(ctx, msg)
	case "esequence":
		b.handleEndSequence(ctx, msg)
	case "cancel":
		b.handleCancel(msg)
	case "mode":
		b.handleMode(ctx, msg)
	case "add_dump":
		b.handleAddDump(ctx, msg, args)
	case "rem_dump":
		b.handleRemDump(ctx, msg)
	case "dump_info":
		b.handleDumpInfo(ctx, msg)
	case "leaderboard":
		b.handleLeaderboard(ctx, msg)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
