package telegram

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source reads bot messages from the update feed.
type Source interface {
	Recent(ctx context.Context) (Batch, error)
	Poll(ctx context.Context, sinceUpdateID int) (Batch, error)
}

// Handler receives every batch the poller fetched, in order.
type Handler func(Batch)

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithInterval sets the delay between two polls.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// Poller reads the recent updates once, then polls for newer ones on a fixed
// period until stopped. A failed fetch is logged and the next tick retries.
type Poller struct {
	source   Source
	handle   Handler
	log      *zap.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(source Source, handle Handler, log *zap.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		source:   source,
		handle:   handle,
		log:      log,
		interval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling loop. It is a no-op when already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		p.run(ctx)
	}()
}

// Stop halts the loop and waits for the in-flight fetch to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context) {
	p.log.Info("Poller started", zap.Duration("interval", p.interval))

	cursor := 0
	batch, err := p.source.Recent(ctx)
	if err != nil {
		p.logFailure(ctx, "recent", err)
	} else {
		cursor = batch.LastUpdateID
		p.deliver(ctx, batch)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Poller stopped")
			return
		case <-ticker.C:
			batch, err := p.source.Poll(ctx, cursor)
			if err != nil {
				p.logFailure(ctx, "poll", err)
				continue
			}
			if batch.LastUpdateID > cursor {
				cursor = batch.LastUpdateID
			}
			p.deliver(ctx, batch)
		}
	}
}

func (p *Poller) deliver(ctx context.Context, batch Batch) {
	if ctx.Err() != nil || len(batch.Messages) == 0 {
		return
	}
	p.handle(batch)
}

func (p *Poller) logFailure(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return
	}
	p.log.Warn("Failed to fetch updates", zap.String("op", op), zap.Error(err))
}
