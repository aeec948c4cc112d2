package ingest

import (
	"context"
	"fmt"

	"github.com/chatpoints/chatpoints-backend/internal/bot"
	"github.com/chatpoints/chatpoints-backend/internal/classify"
	"github.com/chatpoints/chatpoints-backend/internal/cursor"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// Result summarizes one channel tick. Page holds the fetched messages
// newest-first so the reconciler can reuse them without a second fetch.
type Result struct {
	Page             []chat.Message
	FirstRun         bool
	NewMessages      int
	Awards           int
	CursorAdvancedTo string
}

// Pipeline ingests one channel per call: fetch, diff against the cursor,
// award eligible messages oldest-first, advance the cursor to the newest
// message in the page.
type Pipeline struct {
	source      chat.Source
	cursors     cursor.Store
	ledger      ledger.Service
	announcer   *bot.Announcer
	commands    *bot.CommandHandler
	perImage    int
	agentUserID string
	log         *logger.Logger
}

// NewPipeline wires an ingestion pipeline. announcer and commands are
// optional; perImage is the points granted per eligible message.
func NewPipeline(
	source chat.Source,
	cursors cursor.Store,
	ledgerSvc ledger.Service,
	announcer *bot.Announcer,
	commands *bot.CommandHandler,
	perImage int,
	log *logger.Logger,
) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if cursors == nil {
		return nil, fmt.Errorf("cursor store required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if perImage <= 0 {
		return nil, fmt.Errorf("per-image award must be positive")
	}
	return &Pipeline{
		source:    source,
		cursors:   cursors,
		ledger:    ledgerSvc,
		announcer: announcer,
		commands:  commands,
		perImage:  perImage,
		log:       log,
	}, nil
}

// IgnoreAuthor marks one author as the service's own bot user. Messages it
// posts (award announcements, command replies) are never classified,
// commanded, or awarded.
func (p *Pipeline) IgnoreAuthor(userID string) {
	p.agentUserID = userID
}

// RunChannel processes one tick for one channel. A fetch or diff failure
// aborts the tick with an error; a failure on an individual message is
// logged and the remaining messages still run.
func (p *Pipeline) RunChannel(ctx context.Context, channel config.Channel) (*Result, error) {
	ctx = p.logContext(ctx, channel)

	page, err := p.source.ListRecent(ctx, channel.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("fetching channel page: %w", err)
	}
	if len(page) == 0 {
		return &Result{}, nil
	}
	pageNewest := page[0].ID

	cursorID, found, err := p.cursors.Get(ctx, channel.TenantID, channel.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	// First run for the channel: never award the historical backlog, just
	// seed the cursor to the newest message.
	if !found {
		if err := p.cursors.Set(ctx, channel.TenantID, channel.ChannelID, pageNewest); err != nil {
			return nil, fmt.Errorf("seeding cursor: %w", err)
		}
		if p.log != nil {
			p.log.Info(ctx, "cursor seeded, skipping backlog")
		}
		return &Result{Page: page, FirstRun: true, CursorAdvancedTo: pageNewest}, nil
	}

	newSet := diffAgainstCursor(page, cursorID)
	result := &Result{Page: page, NewMessages: len(newSet)}

	// Oldest-first keeps user-visible announcements in chronological order.
	for i := len(newSet) - 1; i >= 0; i-- {
		if p.processMessage(ctx, channel, newSet[i]) {
			result.Awards++
		}
	}

	// Advance to the page's newest ID even when a message in the batch
	// failed; the open-award index keeps any reprocessing overlap harmless.
	if err := p.cursors.Set(ctx, channel.TenantID, channel.ChannelID, pageNewest); err != nil {
		return nil, fmt.Errorf("advancing cursor: %w", err)
	}
	result.CursorAdvancedTo = pageNewest
	return result, nil
}

// diffAgainstCursor returns the messages strictly newer than the cursor,
// preserving the page's newest-first order. When the cursor has scrolled off
// the page, the whole page counts as new.
func diffAgainstCursor(page []chat.Message, cursorID string) []chat.Message {
	for i, msg := range page {
		if msg.ID == cursorID {
			return page[:i]
		}
	}
	return page
}

// processMessage classifies and awards one message. Returns true when a
// fresh award was created. Errors never escape; they are contained to the
// message.
func (p *Pipeline) processMessage(ctx context.Context, channel config.Channel, msg chat.Message) bool {
	if msg.Deleted {
		return false
	}
	if p.agentUserID != "" && msg.AuthorID == p.agentUserID {
		return false
	}

	verdict := classify.Classify(msg)
	if !verdict.Eligible {
		if verdict.Category == classify.CategoryCommand && p.commands != nil {
			p.commands.Handle(ctx, channel.TenantID, channel.ChannelID, msg)
		}
		return false
	}

	awarded, err := p.ledger.Award(ctx, ledger.AwardInput{
		UserID:          msg.AuthorID,
		TenantID:        channel.TenantID,
		ChannelID:       channel.ChannelID,
		SourceMessageID: msg.ID,
		Delta:           p.perImage,
	})
	if err != nil {
		if p.log != nil {
			ctx = p.log.WithMessageID(ctx, msg.ID)
			p.log.Error(ctx, "award failed, continuing with batch", err)
		}
		return false
	}
	if !awarded.Created {
		return false
	}

	p.announcer.AnnounceAward(ctx, channel.ChannelID, msg, awarded.NewBalance)
	return true
}

func (p *Pipeline) logContext(ctx context.Context, channel config.Channel) context.Context {
	if p.log == nil {
		return ctx
	}
	ctx = p.log.WithTenantID(ctx, channel.TenantID)
	return p.log.WithChannelID(ctx, channel.ChannelID)
}
