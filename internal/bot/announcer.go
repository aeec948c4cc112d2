package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// Announcer posts chat acknowledgements for ledger events. Every call is
// best-effort: the ledger is the source of truth and a failed announcement
// never bubbles up to the caller.
type Announcer struct {
	notifier chat.Notifier
	emoji    string
	log      *logger.Logger
}

// NewAnnouncer wires an announcer. The emoji is attached as a reaction to
// each awarded message.
func NewAnnouncer(notifier chat.Notifier, emoji string, log *logger.Logger) *Announcer {
	return &Announcer{notifier: notifier, emoji: emoji, log: log}
}

// AnnounceAward congratulates the author and reacts to the awarded message.
func (a *Announcer) AnnounceAward(ctx context.Context, channelID string, msg chat.Message, newBalance int) {
	if a == nil || a.notifier == nil {
		return
	}

	text := fmt.Sprintf("<@%s> earned a point for sharing a pic! They're at %d point%s.",
		msg.AuthorID, newBalance, plural(newBalance))
	if err := a.notifier.Notify(ctx, channelID, text); err != nil {
		a.warn(ctx, channelID, "award announcement failed", err)
	}
	if a.emoji != "" {
		if err := a.notifier.React(ctx, msg.ID, a.emoji); err != nil {
			a.warn(ctx, channelID, "award reaction failed", err)
		}
	}
}

// AnnounceRevert notes that a deleted message's point was taken back.
func (a *Announcer) AnnounceRevert(ctx context.Context, channelID, userID string, newBalance int) {
	if a == nil || a.notifier == nil {
		return
	}

	text := fmt.Sprintf("<@%s> lost a point because their pic was deleted. They're at %d point%s.",
		userID, newBalance, plural(newBalance))
	if err := a.notifier.Notify(ctx, channelID, text); err != nil {
		a.warn(ctx, channelID, "revert announcement failed", err)
	}
}

func (a *Announcer) warn(ctx context.Context, channelID, msg string, err error) {
	if a.log == nil {
		return
	}
	ctx = a.log.WithChannelID(ctx, channelID)
	ctx = a.log.WithField(ctx, "error", err.Error())
	a.log.Warn(ctx, msg)
}

// FormatLeaderboard renders the top accounts as a chat message.
func FormatLeaderboard(accounts []models.Account) string {
	if len(accounts) == 0 {
		return "No points on the board yet. Post a pic to get started!"
	}

	var b strings.Builder
	b.WriteString("**Leaderboard**\n")
	for i, account := range accounts {
		fmt.Fprintf(&b, "%d. %s - %d point%s\n",
			i+1, displayName(account), account.Balance, plural(account.Balance))
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayName(account models.Account) string {
	if account.DisplayName != "" {
		return account.DisplayName
	}
	if account.Username != "" {
		return account.Username
	}
	return "<@" + account.UserID + ">"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
