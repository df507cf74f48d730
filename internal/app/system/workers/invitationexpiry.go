// internal/app/system/workers/invitationexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often InvitationExpiry runs when no interval is configured.
const DefaultSweepInterval = time.Hour

const sweepTimeout = 30 * time.Second

// Expirer marks invitations that are past their expiry. familystore.Store
// satisfies it.
type Expirer interface {
	ExpireInvitations(ctx context.Context, now time.Time) (int64, error)
}

// InvitationExpiry is a background worker that flips pending family
// invitations to expired once their expiry passes.
type InvitationExpiry struct {
	store    Expirer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInvitationExpiry creates the worker. interval <= 0 uses DefaultSweepInterval.
func NewInvitationExpiry(store Expirer, logger *zap.Logger, interval time.Duration) *InvitationExpiry {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationExpiry{
		store:    store,
		log:      logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then keeps sweeping every interval until Stop.
func (w *InvitationExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invitation expiry worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call more than once.
func (w *InvitationExpiry) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("invitation expiry worker stopped")
}

func (w *InvitationExpiry) run() {
	defer w.wg.Done()

	w.Sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one expiry pass.
func (w *InvitationExpiry) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	count, err := w.store.ExpireInvitations(ctx, w.now())
	if err != nil {
		w.log.Error("failed to expire invitations", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("expired stale invitations", zap.Int64("families", count))
	}
}
