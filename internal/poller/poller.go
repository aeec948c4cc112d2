package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatpoints/chatpoints-backend/internal/cursor"
	"github.com/chatpoints/chatpoints-backend/internal/ingest"
	"github.com/chatpoints/chatpoints-backend/internal/reconcile"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
	"github.com/chatpoints/chatpoints-backend/pkg/metrics"
)

// State is the poller's lifecycle position.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

const defaultInterval = 5 * time.Second

// Status is a point-in-time snapshot for the operator API.
type Status struct {
	State      State            `json:"state"`
	Interval   time.Duration    `json:"interval"`
	Channels   []config.Channel `json:"channels"`
	LastTickAt *time.Time       `json:"last_tick_at,omitempty"`
}

// Params configure the poller.
type Params struct {
	Logger     *logger.Logger
	Source     chat.Source
	Cursors    cursor.Store
	Pipeline   *ingest.Pipeline
	Reconciler *reconcile.Reconciler
	Channels   []config.Channel
	Interval   time.Duration
	Lock       Lock
	Metrics    *metrics.PollerMetrics
}

// Poller drives the polling cadence. One ticker, one tick at a time; within
// a tick channels run sequentially with their errors isolated from each
// other. Stop disarms the ticker and lets the in-flight tick drain.
type Poller struct {
	logg       *logger.Logger
	source     chat.Source
	cursors    cursor.Store
	pipeline   *ingest.Pipeline
	reconciler *reconcile.Reconciler
	channels   []config.Channel
	interval   time.Duration
	lock       Lock
	metrics    *metrics.PollerMetrics

	mu       sync.Mutex
	state    State
	stopCh   chan struct{}
	done     chan struct{}
	lastTick *time.Time
}

// New builds a stopped poller.
func New(params Params) (*Poller, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if params.Cursors == nil {
		return nil, fmt.Errorf("cursor store required")
	}
	if params.Pipeline == nil {
		return nil, fmt.Errorf("ingestion pipeline required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		logg:       params.Logger,
		source:     params.Source,
		cursors:    params.Cursors,
		pipeline:   params.Pipeline,
		reconciler: params.Reconciler,
		channels:   params.Channels,
		interval:   interval,
		lock:       params.Lock,
		metrics:    params.Metrics,
		state:      StateStopped,
	}, nil
}

// Start validates the channel allow-list, seeds missing cursors to each
// channel's current newest message, and arms the ticker. Calling Start on a
// running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateRunning || p.state == StateStarting {
		p.mu.Unlock()
		return nil
	}
	if len(p.channels) == 0 {
		p.mu.Unlock()
		if p.logg != nil {
			p.logg.Warn(ctx, "poller start rejected: channel allow-list is empty")
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "channel allow-list is empty")
	}
	p.state = StateStarting
	p.mu.Unlock()

	// Seeding hits the chat API per channel; Status stays responsive while
	// it runs because the lock is not held here.
	for _, channel := range p.channels {
		if err := p.seedCursor(ctx, channel); err != nil {
			p.mu.Lock()
			p.state = StateStopped
			p.mu.Unlock()
			return fmt.Errorf("seeding cursor for channel %s: %w", channel.ChannelID, err)
		}
	}

	p.mu.Lock()
	if p.state != StateStarting {
		p.mu.Unlock()
		return nil
	}
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	p.state = StateRunning
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	// The run loop must outlive the caller's context (the operator request
	// that started it); keep its values but drop the cancellation.
	go p.run(context.WithoutCancel(ctx), stopCh, done)

	if p.logg != nil {
		p.logg.Info(ctx, "poller running")
	}
	return nil
}

// Stop disarms the ticker and waits for an in-flight tick to finish. Safe to
// call repeatedly and on a poller that never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return
	}
	stopCh, done := p.stopCh, p.done
	p.state = StateStopped
	p.stopCh = nil
	p.done = nil
	// Release the lock before draining: the in-flight tick takes it to
	// record its timestamp.
	p.mu.Unlock()

	close(stopCh)
	<-done
}

// Status reports the current lifecycle snapshot.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := make([]config.Channel, len(p.channels))
	copy(channels, p.channels)
	status := Status{State: p.state, Interval: p.interval, Channels: channels}
	if p.lastTick != nil {
		at := *p.lastTick
		status.LastTickAt = &at
	}
	return status
}

// ResetCursors re-seeds every channel to its current newest message, the
// same as a first run. Awards nothing.
func (p *Poller) ResetCursors(ctx context.Context) error {
	for _, channel := range p.channels {
		if err := p.cursors.Delete(ctx, channel.TenantID, channel.ChannelID); err != nil {
			return fmt.Errorf("clearing cursor for channel %s: %w", channel.ChannelID, err)
		}
		if err := p.seedCursor(ctx, channel); err != nil {
			return fmt.Errorf("re-seeding cursor for channel %s: %w", channel.ChannelID, err)
		}
	}
	return nil
}

func (p *Poller) seedCursor(ctx context.Context, channel config.Channel) error {
	_, found, err := p.cursors.Get(ctx, channel.TenantID, channel.ChannelID)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	page, err := p.source.ListRecent(ctx, channel.ChannelID)
	if err != nil {
		return err
	}
	if len(page) == 0 {
		// Nothing to anchor on; the first non-empty tick seeds instead.
		return nil
	}
	return p.cursors.Set(ctx, channel.TenantID, channel.ChannelID, page[0].ID)
}

func (p *Poller) run(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.lock != nil {
		acquired, err := p.lock.Acquire(ctx)
		if err != nil {
			if p.logg != nil {
				p.logg.Error(ctx, "poll lock acquire failed, skipping cycle", err)
			}
			return
		}
		if !acquired {
			if p.logg != nil {
				p.logg.Info(ctx, "another poller instance holds the lock, skipping cycle")
			}
			return
		}
		defer func() {
			if err := p.lock.Release(ctx); err != nil && p.logg != nil {
				p.logg.Error(ctx, "poll lock release failed", err)
			}
		}()
	}

	if p.logg != nil {
		p.logg.Debug(ctx, "poll cycle started")
	}
	for _, channel := range p.channels {
		p.tickChannel(ctx, channel)
	}

	now := time.Now().UTC()
	p.mu.Lock()
	p.lastTick = &now
	p.mu.Unlock()
}

// tickChannel runs ingestion then reconciliation for one channel. Errors are
// logged and counted; they never reach the other channels or the ticker.
func (p *Poller) tickChannel(ctx context.Context, channel config.Channel) {
	start := time.Now()
	result, err := p.pipeline.RunChannel(ctx, channel)
	p.metrics.ObserveDuration(channel.ChannelID, time.Since(start))
	if err != nil {
		p.metrics.IncFailure(channel.ChannelID)
		if p.logg != nil {
			ctx := p.logg.WithChannelID(ctx, channel.ChannelID)
			p.logg.Error(ctx, "channel ingestion failed", err)
		}
		return
	}
	p.metrics.IncAwards(channel.ChannelID, result.Awards)

	reverted, err := p.reconciler.RunChannel(ctx, channel, result.Page)
	if err != nil {
		p.metrics.IncFailure(channel.ChannelID)
		if p.logg != nil {
			ctx := p.logg.WithChannelID(ctx, channel.ChannelID)
			p.logg.Error(ctx, "channel reconciliation failed", err)
		}
		return
	}
	p.metrics.IncReverts(channel.ChannelID, reverted)
}
