package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatpoints/chatpoints-backend/internal/classify"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

const helpText = "Commands: `!points` shows your balance, `!leaderboard` shows the top earners, `!help` shows this message. Post a pic to earn a point!"

// CommandHandler answers chat commands found in the polled stream. Replies
// are best-effort; an unanswered command is simply retried by the user.
type CommandHandler struct {
	ledger   ledger.Service
	notifier chat.Notifier
	topN     int
	log      *logger.Logger
}

// NewCommandHandler wires a command handler. topN bounds the leaderboard
// reply length.
func NewCommandHandler(ledgerSvc ledger.Service, notifier chat.Notifier, topN int, log *logger.Logger) *CommandHandler {
	if topN <= 0 {
		topN = 10
	}
	return &CommandHandler{ledger: ledgerSvc, notifier: notifier, topN: topN, log: log}
}

// Handle processes one message. Returns true when the message was a known
// command, whether or not the reply was delivered.
func (h *CommandHandler) Handle(ctx context.Context, tenantID, channelID string, msg chat.Message) bool {
	if h == nil || !classify.IsCommand(msg.Content) {
		return false
	}

	command := strings.ToLower(strings.Fields(strings.TrimSpace(msg.Content))[0])
	switch command {
	case "!points":
		h.replyPoints(ctx, tenantID, channelID, msg.AuthorID)
	case "!leaderboard":
		h.replyLeaderboard(ctx, tenantID, channelID)
	case "!help":
		h.reply(ctx, channelID, helpText)
	default:
		return false
	}
	return true
}

func (h *CommandHandler) replyPoints(ctx context.Context, tenantID, channelID, userID string) {
	balance, err := h.ledger.GetBalance(ctx, userID, tenantID)
	if err != nil {
		h.warn(ctx, channelID, "balance lookup for command failed", err)
		return
	}
	h.reply(ctx, channelID, fmt.Sprintf("<@%s> has %d point%s.", userID, balance, plural(balance)))
}

func (h *CommandHandler) replyLeaderboard(ctx context.Context, tenantID, channelID string) {
	top, err := h.ledger.TopN(ctx, tenantID, h.topN)
	if err != nil {
		h.warn(ctx, channelID, "leaderboard lookup for command failed", err)
		return
	}
	h.reply(ctx, channelID, FormatLeaderboard(top))
}

func (h *CommandHandler) reply(ctx context.Context, channelID, text string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, channelID, text); err != nil {
		h.warn(ctx, channelID, "command reply failed", err)
	}
}

func (h *CommandHandler) warn(ctx context.Context, channelID, msg string, err error) {
	if h.log == nil {
		return
	}
	ctx = h.log.WithChannelID(ctx, channelID)
	ctx = h.log.WithField(ctx, "error", err.Error())
	h.log.Warn(ctx, msg)
}
