package workers

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
	"github.com/comitanigiacomo/kanso-duel/internal/observability"
)

var ErrSweepInProgress = errors.New("sweep already in progress")

type Sweeper interface {
	SweepCompletions(ctx context.Context, now time.Time) (*services.SweepReport, error)
}

// SweepWorker settles due challenges on a fixed interval and on demand.
// Runs never overlap inside one process; across processes the storage
// compare-and-swap keeps the outcome single.
type SweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	wake    chan struct{}
	running sync.Mutex
}

func NewSweepWorker(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SweepWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Info("Sweep Worker started in background...", zap.Duration("interval", w.interval))

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.runLogged(ctx)

		for {
			select {
			case <-ticker.C:
				w.runLogged(ctx)
			case <-w.wake:
				w.runLogged(ctx)
			case <-ctx.Done():
				w.logger.Info("Sweep Worker shutting down...")
				return
			}
		}
	}()
}

// TriggerOn queues an extra run of the background loop for every value read
// from signals (SIGHUP in the binaries) until ctx is done.
func (w *SweepWorker) TriggerOn(ctx context.Context, signals <-chan os.Signal) {
	go func() {
		for {
			select {
			case sig := <-signals:
				if w.requestRun() {
					w.logger.Info("[SWEEP] manual run requested", zap.String("signal", sig.String()))
				} else {
					w.logger.Debug("[SWEEP] manual run already queued")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// requestRun reports false when a run is already queued.
func (w *SweepWorker) requestRun() bool {
	select {
	case w.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

func (w *SweepWorker) RunOnce(ctx context.Context) (*services.SweepReport, error) {
	if !w.running.TryLock() {
		observability.SweepRuns.WithLabelValues("skipped_overlap").Inc()
		return nil, ErrSweepInProgress
	}
	defer w.running.Unlock()

	start := time.Now()
	report, err := w.sweeper.SweepCompletions(ctx, w.now())
	observability.SweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.SweepRuns.WithLabelValues("error").Inc()
		return report, err
	}

	observability.SweepRuns.WithLabelValues("ok").Inc()
	for _, o := range report.Outcomes {
		if o.IsTie() {
			observability.ChallengesCompleted.WithLabelValues("tie").Inc()
		} else {
			observability.ChallengesCompleted.WithLabelValues("win").Inc()
		}
	}
	if report.Failed > 0 {
		observability.ChallengesCompleted.WithLabelValues("failed").Add(float64(report.Failed))
	}

	return report, nil
}

func (w *SweepWorker) runLogged(ctx context.Context) {
	report, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		w.logger.Debug("[SWEEP] previous run still in progress")
	case err != nil:
		w.logger.Error("[SWEEP] run failed", zap.Error(err))
	case report.Examined > 0:
		w.logger.Info("[SWEEP] run finished",
			zap.Int("examined", report.Examined),
			zap.Int("completed", report.Completed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}
}
