package bot

import (
	"fmt"
	"strings"

	"sequence_bot/internal/model"
)

// maxListedFailures caps how many failed filenames are shown in the
// dispatch summary; beyond that only the count is reported.
const maxListedFailures = 5

// FormatItemsAdded is the debounced acknowledgment for a settled burst of
// added items.
func FormatItemsAdded(added, total int, mode model.SortMode) string {
	return fmt.Sprintf(
		"%d file(s) added to sequence.\nTotal files: %d\n\nCurrent mode: %s\nUse /esequence when you're done.",
		added, total, modeLabel(mode))
}

// FormatModeMenu renders the sorting mode selection message.
func FormatModeMenu(current model.SortMode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Select sorting mode (current: %s)\n\nAvailable modes:\n", modeLabel(current))
	for _, m := range modeOrder {
		prefix := "•"
		if m == current {
			prefix = "→"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", prefix, modeLabel(m), modeDescription(m))
	}
	b.WriteString("\nChoose your preferred order ↓")
	return b.String()
}

// FormatDispatchSummary renders the result of a dispatch run.
func FormatDispatchSummary(res model.DispatchResult, toDump bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully sent %d/%d file(s)", res.SentCount, res.Total)
	if toDump {
		b.WriteString(" to your dump channel")
	}
	b.WriteString("!")

	if len(res.Failed) > 0 {
		fmt.Fprintf(&b, "\n\nFailed: %d file(s)", len(res.Failed))
		if len(res.Failed) <= maxListedFailures {
			for _, name := range res.Failed {
				fmt.Fprintf(&b, "\n• %s", name)
			}
		}
	}
	return b.String()
}

// FormatDumpInfo renders the configured dump channel details.
func FormatDumpInfo(chatID int64, title string) string {
	var b strings.Builder
	b.WriteString("Your dump channel:\n")
	if title != "" {
		fmt.Fprintf(&b, "Name: %s\n", title)
	}
	fmt.Fprintf(&b, "ID: %d\n\nUse /rem_dump to remove it.", chatID)
	return b.String()
}

// FormatLeaderboard renders the top sequencers plus the requester's own
// rank when they fall outside the listing.
func FormatLeaderboard(entries []model.LeaderboardEntry, requester int64, ownRank int, ownCount int64, ranked bool) string {
	if len(entries) == 0 {
		return "Sequence leaderboard\n\nNo users have sequenced files yet!"
	}

	medals := []string{"🥇", "🥈", "🥉"}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d sequence users\n\n", len(entries))

	requesterListed := false
	for i, e := range entries {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		name := e.DisplayName
		if name == "" {
			name = fmt.Sprintf("User %d", e.UserID)
		}
		fmt.Fprintf(&b, "%s %s — %d file(s) sequenced\n", prefix, name, e.Count)
		if e.UserID == requester {
			requesterListed = true
			fmt.Fprintf(&b, "   ↑ that's you (#%d)\n", i+1)
		}
	}

	if !requesterListed {
		b.WriteString("\n")
		if ranked {
			fmt.Fprintf(&b, "Your rank: #%d — %d file(s) sequenced", ownRank, ownCount)
		} else {
			b.WriteString("You haven't sequenced any files yet!")
		}
	}
	return b.String()
}
