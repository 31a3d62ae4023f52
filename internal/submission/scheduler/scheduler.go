package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autosend-backend/internal/submission/dispatch"
	"autosend-backend/internal/submission/domain"
	"autosend-backend/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultInterval is how often the scheduler polls for eligible submissions
const DefaultInterval = 5 * time.Minute

// BusyMessage is reported when a manual trigger arrives during a running cycle
const BusyMessage = "auto-send processor is busy, a cycle is already in progress"

const (
	triggerTimer  = "timer"
	triggerManual = "manual"
)

// EligibleFinder lists submissions whose auto-send time has passed, oldest first
type EligibleFinder interface {
	FindEligible(ctx context.Context, now time.Time) ([]*domain.Submission, error)
}

// Dispatcher processes a single submission
type Dispatcher interface {
	Process(ctx context.Context, sub *domain.Submission) (dispatch.Outcome, error)
}

// CycleResult summarizes one processing cycle
type CycleResult struct {
	ProcessedCount int      `json:"processed_count"`
	SentCount      int      `json:"sent_count"`
	Errors         []string `json:"errors"`
}

// AutoSendScheduler runs dispatch cycles on a timer and on demand.
//
// The busy flag only keeps two cycles of this process from overlapping. It
// gives no guarantee across replicas; exclusivity between processes comes
// from the store's conditional claim.
type AutoSendScheduler struct {
	finder   EligibleFinder
	worker   Dispatcher
	log      *zap.SugaredLogger
	now      func() time.Time
	interval time.Duration

	busy atomic.Bool

	mu       sync.Mutex
	stopChan chan struct{}
}

// NewAutoSendScheduler creates a scheduler. A nil clock means time.Now and a
// non-positive interval means DefaultInterval.
func NewAutoSendScheduler(finder EligibleFinder, worker Dispatcher, log *zap.SugaredLogger, now func() time.Time, interval time.Duration) *AutoSendScheduler {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AutoSendScheduler{
		finder:   finder,
		worker:   worker,
		log:      log,
		now:      now,
		interval: interval,
	}
}

// Start begins the timer loop and runs one cycle right away.
// Calling Start on a running scheduler does nothing.
func (s *AutoSendScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return
	}
	stop := make(chan struct{})
	s.stopChan = stop

	s.log.Infow("Starting auto-send scheduler", "interval", s.interval)

	go func() {
		s.runScheduled()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runScheduled()
			case <-stop:
				s.log.Info("Auto-send scheduler stopped")
				return
			}
		}
	}()
}

// Stop cancels the timer. A cycle already in progress keeps running.
func (s *AutoSendScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	s.stopChan = nil
}

// Running reports whether the timer loop is active
func (s *AutoSendScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopChan != nil
}

// TriggerImmediate runs one cycle synchronously. If a cycle is already in
// progress it returns at once with zero processed and a busy error.
func (s *AutoSendScheduler) TriggerImmediate(ctx context.Context) CycleResult {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.AutoSendBusyRejections.Inc()
		s.log.Infow("Manual auto-send trigger rejected, processor busy")
		return CycleResult{Errors: []string{BusyMessage}}
	}
	defer s.busy.Store(false)

	return s.cycle(ctx, triggerManual)
}

func (s *AutoSendScheduler) runScheduled() {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.AutoSendBusyRejections.Inc()
		s.log.Debug("Skipping scheduled auto-send cycle, previous cycle still running")
		return
	}
	defer s.busy.Store(false)

	res := s.cycle(context.Background(), triggerTimer)
	for _, e := range res.Errors {
		s.log.Warnw("Auto-send cycle error", "error", e)
	}
	if res.ProcessedCount > 0 || len(res.Errors) > 0 {
		s.log.Infow("Auto-send cycle finished",
			"processed", res.ProcessedCount,
			"sent", res.SentCount,
			"errors", len(res.Errors))
	}
}

// cycle processes every eligible submission in auto-send order, one at a time.
// The caller must hold the busy flag.
func (s *AutoSendScheduler) cycle(ctx context.Context, trigger string) CycleResult {
	start := time.Now()
	defer func() {
		metrics.AutoSendCycles.WithLabelValues(trigger).Inc()
		metrics.AutoSendCycleDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	}()

	res := CycleResult{Errors: []string{}}

	subs, err := s.finder.FindEligible(ctx, s.now())
	if err != nil {
		s.log.Errorw("Failed to find eligible submissions", "trigger", trigger, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("find eligible submissions: %v", err))
		return res
	}
	metrics.AutoSendEligible.Set(float64(len(subs)))

	if len(subs) == 0 {
		return res
	}

	s.log.Infow("Found eligible submissions", "trigger", trigger, "count", len(subs))

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			// Unclaimed items stay eligible for the next cycle
			res.Errors = append(res.Errors, fmt.Sprintf("cycle interrupted: %v", err))
			break
		}
		outcome, err := s.processOne(ctx, sub)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.ProcessedCount++
		if outcome == dispatch.OutcomeSent {
			res.SentCount++
		}
	}
	return res
}

// processOne keeps a panic in one submission from aborting the rest of the batch.
// It records the failure only; retry scheduling belongs to the worker.
func (s *AutoSendScheduler) processOne(ctx context.Context, sub *domain.Submission) (outcome dispatch.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Dispatch panicked", "submissionID", sub.ID, "panic", r)
			outcome = ""
			err = fmt.Errorf("submission %s: dispatch panicked: %v", sub.ID, r)
		}
	}()
	return s.worker.Process(ctx, sub)
}
