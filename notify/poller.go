package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dayplan/storage"
)

// Handler receives each notification exactly once.
type Handler func(Notification)

// Poller is the external cadence driver around Due. It owns the set of
// already-notified instance IDs so that redundant, delayed or skipped polls
// never deliver an alert twice.
type Poller struct {
	store    storage.Store
	location *time.Location
	handler  Handler
	logger   *slog.Logger

	mu       sync.Mutex
	notified map[string]bool
}

// NewPoller creates a poller delivering to handler. A nil location means
// time.Local; a nil logger discards.
func NewPoller(store storage.Store, location *time.Location, handler Handler, logger *slog.Logger) *Poller {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		store:    store,
		location: location,
		handler:  handler,
		logger:   logger,
		notified: make(map[string]bool),
	}
}

// PollAt runs one scheduling pass against the given instant: lists the
// store, computes due notifications, records their IDs and hands them to the
// handler.
func (p *Poller) PollAt(ctx context.Context, now time.Time) error {
	instances, err := p.store.List(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	due := Due(now.In(p.location), instances, p.notified)
	for _, n := range due {
		p.notified[n.Instance.ID] = true
	}
	p.mu.Unlock()

	for _, n := range due {
		p.logger.Info("notification due",
			"id", n.Instance.ID,
			"title", n.Instance.Title,
			"start", n.Instance.Start.String())
		p.handler(n)
	}
	return nil
}

// Run polls on the given cron schedule (six-field spec with seconds, e.g.
// "* * * * * *" for every second) until the context is canceled.
func (p *Poller) Run(ctx context.Context, spec string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		if err := p.PollAt(ctx, time.Now()); err != nil {
			p.logger.Error("notification poll failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
