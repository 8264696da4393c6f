package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"sequence_bot/internal/model"
)

func TestHandleStart(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.handleStart(testChat)
	requireContains(t, api.lastText(), "Welcome to Sequence Bot")
}

func TestHandleHelp(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.handleHelp(testChat)
	requireContains(t, api.lastText(), "/ssequence")
	requireContains(t, api.lastText(), "/add_dump")
	requireContains(t, api.lastText(), "/leaderboard")
}

func TestHandleStartSequence(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	if err := store.SetSortMode(ctx, testChat, model.ModeQuality); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	b.handleStartSequence(ctx, makeMsg("/ssequence"))
	requireContains(t, api.lastText(), "Sequence started")
	requireContains(t, api.lastText(), "Quality")

	if !b.sessions.Active(testChat) {
		t.Fatal("expected an open session after /ssequence")
	}
}

func TestHandleStartSequenceDiscardsPrevious(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBot(t)

	b.handleStartSequence(ctx, makeMsg("/ssequence"))
	b.collectItems(docMsg("old.mkv", "f1"))
	b.handleStartSequence(ctx, makeMsg("/ssequence"))

	count, ok := b.sessions.Count(testChat)
	if !ok || count != 0 {
		t.Fatalf("restart must discard collected items, got count=%d ok=%v", count, ok)
	}
}

func TestHandleEndSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleEndSequence(ctx, makeMsg("/esequence"))
		requireContains(t, api.lastText(), "No active sequence")
	})

	t.Run("empty session", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.sessions.Start(testChat)
		b.handleEndSequence(ctx, makeMsg("/esequence"))
		requireContains(t, api.lastText(), "No files were sent")
		if !b.sessions.Active(testChat) {
			t.Fatal("an empty finish must keep the session open")
		}
	})

	t.Run("sorted dispatch", func(t *testing.T) {
		b, api, store := newTestBot(t)

		b.sessions.Start(testChat)
		b.collectItems(docMsg("Show S01E03 720p.mkv", "f3"))
		b.collectItems(docMsg("Show S01E01 720p.mkv", "f1"))
		b.collectItems(docMsg("Show S01E02 720p.mkv", "f2"))
		api.reset()

		b.handleEndSequence(ctx, makeMsg("/esequence"))

		var captions []string
		for _, s := range api.all() {
			if s.Kind == "document" {
				captions = append(captions, s.Text)
			}
		}
		want := []string{
			"Show S01E01 720p.mkv",
			"Show S01E02 720p.mkv",
			"Show S01E03 720p.mkv",
		}
		if diff := cmp.Diff(want, captions); diff != "" {
			t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
		}

		requireContains(t, api.lastText(), "Successfully sent 3/3 file(s)!")

		if b.sessions.Active(testChat) {
			t.Fatal("expected session gone after dispatch")
		}

		count, err := store.GetSequenceCount(ctx, testChat)
		if err != nil {
			t.Fatalf("get count: %v", err)
		}
		if count != 3 {
			t.Errorf("lifetime counter: want 3, got %d", count)
		}
	})

	t.Run("dump channel destination", func(t *testing.T) {
		b, api, store := newTestBot(t)
		const dumpChat = int64(-100500)

		if err := store.SetDumpChat(ctx, testChat, dumpChat); err != nil {
			t.Fatalf("set dump chat: %v", err)
		}
		b.sessions.Start(testChat)
		b.collectItems(docMsg("a.mkv", "f1"))
		api.reset()

		b.handleEndSequence(ctx, makeMsg("/esequence"))

		var docChats []int64
		for _, s := range api.all() {
			if s.Kind == "document" {
				docChats = append(docChats, s.ChatID)
			}
		}
		if diff := cmp.Diff([]int64{dumpChat}, docChats); diff != "" {
			t.Errorf("destination mismatch (-want +got):\n%s", diff)
		}
		requireContains(t, api.lastText(), "to your dump channel")
	})

	t.Run("falls back when dump channel is unreachable", func(t *testing.T) {
		b, api, store := newTestBot(t)
		const dumpChat = int64(-100500)

		if err := store.SetDumpChat(ctx, testChat, dumpChat); err != nil {
			t.Fatalf("set dump chat: %v", err)
		}
		api.failFor[dumpChat] = &tgbotapi.Error{Code: 403, Message: "Forbidden: bot is not a member of the channel chat"}

		b.sessions.Start(testChat)
		b.collectItems(docMsg("a.mkv", "f1"))
		b.collectItems(docMsg("b.mkv", "f2"))
		api.reset()

		b.handleEndSequence(ctx, makeMsg("/esequence"))

		var docChats []int64
		for _, s := range api.all() {
			if s.Kind == "document" {
				docChats = append(docChats, s.ChatID)
			}
		}
		// Both items land in the requester's chat on the fallback pass.
		if diff := cmp.Diff([]int64{testChat, testChat}, docChats); diff != "" {
			t.Errorf("fallback destinations mismatch (-want +got):\n%s", diff)
		}

		texts := api.all()
		var sawFallbackNotice bool
		for _, s := range texts {
			if s.Kind == "text" && s.ChatID == testChat && s.Text == "Couldn't deliver to your dump channel. Sending here instead." {
				sawFallbackNotice = true
			}
		}
		if !sawFallbackNotice {
			t.Errorf("expected the fallback notice, got %+v", texts)
		}
		requireContains(t, api.lastText(), "Successfully sent 2/2 file(s)!")
	})
}

func TestHandleCancel(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleCancel(makeMsg("/cancel"))
	requireContains(t, api.lastText(), "No active sequence found")

	b.sessions.Start(testChat)
	b.handleCancel(makeMsg("/cancel"))
	requireContains(t, api.lastText(), "Sequence cancelled")
}

func TestHandleAddDump(t *testing.T) {
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleAddDump(ctx, makeMsg("/add_dump"), "")
		requireContains(t, api.lastText(), "Usage: /add_dump")
	})

	t.Run("rejects private chats", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		api.chat = tgbotapi.Chat{ID: 777}
		b.handleAddDump(ctx, makeMsg("/add_dump @somebody"), "@somebody")
		requireContains(t, api.lastText(), "Cannot set a private chat")
	})

	t.Run("saves channel after probe", func(t *testing.T) {
		b, api, store := newTestBot(t)
		b.handleAddDump(ctx, makeMsg("/add_dump -100500"), "-100500")
		requireContains(t, api.lastText(), "Dump channel saved (-100500)")

		// The probe message is posted to the channel and cleaned up.
		var kinds []string
		for _, s := range api.all() {
			if s.ChatID == -100500 {
				kinds = append(kinds, s.Kind)
			}
		}
		if diff := cmp.Diff([]string{"text", "delete"}, kinds); diff != "" {
			t.Errorf("probe traffic mismatch (-want +got):\n%s", diff)
		}

		saved, ok, err := store.GetDumpChat(ctx, testChat)
		if err != nil || !ok || saved != -100500 {
			t.Fatalf("want saved -100500, got %d ok=%v err=%v", saved, ok, err)
		}
	})

	t.Run("probe failure keeps storage unchanged", func(t *testing.T) {
		b, api, store := newTestBot(t)
		api.failFor[-100500] = &tgbotapi.Error{Code: 403, Message: "Forbidden"}

		b.handleAddDump(ctx, makeMsg("/add_dump -100500"), "-100500")
		requireContains(t, api.lastText(), "Cannot connect to the channel")

		if _, ok, _ := store.GetDumpChat(ctx, testChat); ok {
			t.Fatal("failed probe must not persist the channel")
		}
	})

	t.Run("cooldown swallows rapid retries", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleAddDump(ctx, makeMsg("/add_dump -100500"), "-100500")
		api.reset()

		b.handleAddDump(ctx, makeMsg("/add_dump -100600"), "-100600")
		if got := api.all(); len(got) != 0 {
			t.Fatalf("expected silence during cooldown, got %+v", got)
		}
	})
}

func TestHandleRemDump(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	b.handleRemDump(ctx, makeMsg("/rem_dump"))
	requireContains(t, api.lastText(), "haven't set a dump channel")

	if err := store.SetDumpChat(ctx, testChat, -42); err != nil {
		t.Fatalf("set dump chat: %v", err)
	}
	b.handleRemDump(ctx, makeMsg("/rem_dump"))
	requireContains(t, api.lastText(), "Dump channel removed (was -42)")

	if _, ok, _ := store.GetDumpChat(ctx, testChat); ok {
		t.Fatal("dump channel should be gone")
	}
}

func TestHandleDumpInfo(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	b.handleDumpInfo(ctx, makeMsg("/dump_info"))
	requireContains(t, api.lastText(), "No dump channel set")

	if err := store.SetDumpChat(ctx, testChat, -42); err != nil {
		t.Fatalf("set dump chat: %v", err)
	}
	api.chat = tgbotapi.Chat{ID: -42, Title: "My Dump"}

	b.handleDumpInfo(ctx, makeMsg("/dump_info"))
	requireContains(t, api.lastText(), "Name: My Dump")
	requireContains(t, api.lastText(), "ID: -42")
}

func TestHandleLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleLeaderboard(ctx, makeMsg("/leaderboard"))
		requireContains(t, api.lastText(), "No users have sequenced files yet")
	})

	t.Run("requester off the board", func(t *testing.T) {
		b, api, store := newTestBot(t)
		for i := int64(1); i <= 11; i++ {
			if err := store.IncrementSequenceCount(ctx, i, int(100-i), "user"); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		if err := store.IncrementSequenceCount(ctx, testChat, 1, "@tester"); err != nil {
			t.Fatalf("seed requester: %v", err)
		}

		b.handleLeaderboard(ctx, makeMsg("/leaderboard"))
		reply := api.lastText()
		requireContains(t, reply, "Top 10 sequence users")
		requireContains(t, reply, "Your rank: #12 — 1 file(s) sequenced")
	})
}

func TestHandleCommandRouting(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	cases := []struct {
		text     string
		contains string
	}{
		{"/start", "Welcome"},
		{"/help", "/ssequence"},
		{"/cancel", "No active sequence"},
		{"/bogus", "Unknown command"},
	}
	for _, tc := range cases {
		api.reset()
		b.handleCommand(ctx, makeMsg(tc.text))
		requireContains(t, api.lastText(), tc.contains)
	}
}

func TestHandleModeCallback(t *testing.T) {
	ctx := context.Background()

	newCallback := func(data string) *tgbotapi.CallbackQuery {
		return &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: testChat},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: testChat}},
		}
	}

	t.Run("malformed data is ignored", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleCallback(ctx, newCallback("nocolon"))
		if got := api.all(); len(got) != 0 {
			t.Fatalf("expected silence, got %+v", got)
		}
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		b, api, store := newTestBot(t)
		b.handleCallback(ctx, newCallback("mode:Bogus"))

		var sawRejection bool
		for _, s := range api.all() {
			if s.Kind == "callback" && s.Text == "Unknown sorting mode!" {
				sawRejection = true
			}
		}
		if !sawRejection {
			t.Fatalf("expected a rejection toast, got %+v", api.all())
		}

		mode, err := store.GetSortMode(ctx, testChat)
		if err != nil || mode != model.DefaultSortMode {
			t.Fatalf("mode must stay default, got %s err=%v", mode, err)
		}
	})

	t.Run("valid mode is persisted and menu updated", func(t *testing.T) {
		b, api, store := newTestBot(t)
		b.handleCallback(ctx, newCallback("mode:Quality"))

		mode, err := store.GetSortMode(ctx, testChat)
		if err != nil {
			t.Fatalf("get mode: %v", err)
		}
		if mode != model.ModeQuality {
			t.Fatalf("want Quality, got %s", mode)
		}

		var sawToast, sawEdit bool
		for _, s := range api.all() {
			if s.Kind == "callback" && s.Text == "Sorting mode set to Quality" {
				sawToast = true
			}
			if s.Kind == "edit" {
				sawEdit = true
			}
		}
		if !sawToast || !sawEdit {
			t.Fatalf("want toast and menu edit, got %+v", api.all())
		}
	})
}
