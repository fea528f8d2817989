package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/publisher"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// errorBackoff is how long the loop waits after a failed tick before trying
// again, instead of the full update interval.
const errorBackoff = time.Second

// Updater is the recurring driver: every interval it runs one aggregation
// pass and broadcasts a non-empty result to all live sessions.
type Updater struct {
	logger   *zap.Logger
	rates    RateSource
	hub      *Hub
	pub      *publisher.Publisher
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewUpdater constructs the recurring driver. pub may be nil.
func NewUpdater(logger *zap.Logger, rates RateSource, hub *Hub, pub *publisher.Publisher, interval time.Duration) *Updater {
	return &Updater{
		logger:   logger,
		rates:    rates,
		hub:      hub,
		pub:      pub,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the update loop.
func (u *Updater) Start(ctx context.Context) {
	u.logger.Info("updater.started", zap.Duration("interval", u.interval))
	go u.run(ctx)
}

// Stop signals the loop to stop and blocks until it has acknowledged,
// guaranteeing no stale tick is broadcasting after shutdown begins.
func (u *Updater) Stop() {
	u.stopOnce.Do(func() { close(u.stopCh) })
	<-u.doneCh
}

func (u *Updater) run(ctx context.Context) {
	defer close(u.doneCh)

	for {
		delay := u.interval
		if err := u.tick(ctx); err != nil {
			u.logger.Error("updater.tick_failed", zap.Error(err))
			delay = errorBackoff
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			u.logger.Info("updater.stopped (context cancelled)")
			return
		case <-u.stopCh:
			u.logger.Info("updater.stopped (manual stop)")
			return
		}
	}
}

// tick runs one pass and fans the result out. A single failed tick must
// never terminate the loop, so panics are converted into errors here.
func (u *Updater) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	rates := u.rates.FetchAllRates(ctx)
	if len(rates) == 0 {
		u.logger.Warn("updater.empty_pass")
		return nil
	}

	env := model.UpdateEnvelope(rates)
	u.hub.Broadcast(env)

	// Side-publish for internal consumers; never fails the tick.
	if err := u.pub.Publish(ctx, env); err != nil {
		u.logger.Warn("updater.publish_failed", zap.Error(err))
	}
	return nil
}
