package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatpoints/chatpoints-backend/internal/bot"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// Reconciler undoes awards whose source message disappeared upstream. It
// runs after ingestion and reuses the tick's fetched page; only messages
// missing from the page (or flagged deleted there) get the direct lookup.
type Reconciler struct {
	source    chat.Source
	ledger    ledger.Service
	announcer *bot.Announcer
	log       *logger.Logger
}

// NewReconciler wires a reconciler. announcer is optional.
func NewReconciler(source chat.Source, ledgerSvc ledger.Service, announcer *bot.Announcer, log *logger.Logger) (*Reconciler, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &Reconciler{source: source, ledger: ledgerSvc, announcer: announcer, log: log}, nil
}

// RunChannel reconciles one channel's open awards against the given page.
// Returns the number of reverts performed. Inconclusive lookups are skipped,
// never reverted.
func (r *Reconciler) RunChannel(ctx context.Context, channel config.Channel, page []chat.Message) (int, error) {
	ctx = r.logContext(ctx, channel)

	open, err := r.ledger.FindOpenAwardsForChannel(ctx, channel.TenantID, channel.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("listing open awards: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	live := make(map[string]bool, len(page))
	for _, msg := range page {
		live[msg.ID] = !msg.Deleted
	}

	reverted := 0
	for _, award := range open {
		if award.SourceMessageID == nil {
			continue
		}
		messageID := *award.SourceMessageID
		if live[messageID] {
			continue
		}
		if !r.confirmDeleted(ctx, messageID) {
			continue
		}
		if r.revert(ctx, channel, award) {
			reverted++
		}
	}
	return reverted, nil
}

// confirmDeleted double-checks a suspect message with a point lookup. Only a
// NotFound or an explicit deleted flag confirms; transient source errors are
// inconclusive and leave the award alone until a later tick.
func (r *Reconciler) confirmDeleted(ctx context.Context, messageID string) bool {
	msg, err := r.source.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return true
		}
		if r.log != nil {
			ctx = r.log.WithMessageID(ctx, messageID)
			r.log.Warn(ctx, "deletion check inconclusive, keeping award")
		}
		return false
	}
	return msg.Deleted
}

func (r *Reconciler) revert(ctx context.Context, channel config.Channel, award models.PointsTransaction) bool {
	result, err := r.ledger.Revert(ctx, award.ID)
	if err != nil {
		// A concurrent pass already took this one back.
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			return false
		}
		if r.log != nil {
			ctx = r.log.WithField(ctx, "transaction_id", award.ID.String())
			r.log.Error(ctx, "revert failed, continuing with channel", err)
		}
		return false
	}

	r.announcer.AnnounceRevert(ctx, channel.ChannelID, award.UserID, result.NewBalance)
	return true
}

func (r *Reconciler) logContext(ctx context.Context, channel config.Channel) context.Context {
	if r.log == nil {
		return ctx
	}
	ctx = r.log.WithTenantID(ctx, channel.TenantID)
	return r.log.WithChannelID(ctx, channel.ChannelID)
}
