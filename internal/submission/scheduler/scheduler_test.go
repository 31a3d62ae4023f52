package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autosend-backend/internal/submission/dispatch"
	"autosend-backend/internal/submission/domain"
	"autosend-backend/internal/submission/repository"
	"autosend-backend/pkg/disclaimer"
	"autosend-backend/pkg/mail"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

// gateway fails for the listed emails and can hold every send until release is closed
type gateway struct {
	mu      sync.Mutex
	failFor map[string]bool
	entered chan struct{}
	release chan struct{}
	order   []string
}

func (g *gateway) Send(_ context.Context, r mail.Recipient, _, _ string, _ mail.Identity) bool {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.order = append(g.order, r.ContactID)
	return !g.failFor[r.Email]
}

func (g *gateway) sends() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

func seed(t *testing.T, repo repository.SubmissionRepository, id string, status domain.Status, sendAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Submission{
		ID:            id,
		Status:        status,
		DraftContent:  "Draft for " + id,
		SeverityLevel: domain.SeverityMild,
		Recipient:     domain.Contact{ContactID: id, Name: id, Email: id + "@example.com"},
		AutoSendTime:  &sendAt,
	}))
}

func newScheduler(repo repository.SubmissionRepository, gw dispatch.Gateway, interval time.Duration) *AutoSendScheduler {
	log := zap.NewNop().Sugar()
	w := dispatch.NewWorker(repo, gw, disclaimer.NewComposer(), log, fixedClock, 0)
	return NewAutoSendScheduler(repo, w, log, fixedClock, interval)
}

func load(t *testing.T, repo repository.SubmissionRepository, id string) *domain.Submission {
	t.Helper()
	s, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

// statusOf is safe to call from the Eventually condition goroutine
func statusOf(repo repository.SubmissionRepository, id string) domain.Status {
	s, err := repo.FindByID(context.Background(), id)
	if err != nil || s == nil {
		return ""
	}
	return s.Status
}

func TestTriggerImmediateProcessesOldestFirst(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "newer", domain.StatusPending, now.Add(-time.Minute))
	seed(t, repo, "older", domain.StatusApproved, now.Add(-time.Hour))
	seed(t, repo, "future", domain.StatusPending, now.Add(time.Hour))
	seed(t, repo, "held", domain.StatusHold, now.Add(-time.Hour))
	gw := &gateway{}

	res := newScheduler(repo, gw, 0).TriggerImmediate(context.Background())

	assert.Equal(t, 2, res.ProcessedCount)
	assert.Equal(t, 2, res.SentCount)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"older", "newer"}, gw.sends())

	assert.Equal(t, domain.StatusAutoSent, load(t, repo, "older").Status)
	assert.Equal(t, domain.StatusAutoSent, load(t, repo, "newer").Status)
	assert.Equal(t, domain.StatusPending, load(t, repo, "future").Status)
	assert.Equal(t, domain.StatusHold, load(t, repo, "held").Status)
}

func TestTriggerImmediateScenarios(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "S1", domain.StatusPending, now.Add(-time.Minute))

	require.NoError(t, repo.Create(context.Background(), &domain.Submission{
		ID:           "S2",
		Status:       domain.StatusPending,
		Recipient:    domain.Contact{ContactID: "S2", Email: "S2@example.com"},
		AutoSendTime: func() *time.Time { t := now.Add(-2 * time.Minute); return &t }(),
	}))
	seed(t, repo, "S3", domain.StatusPending, now.Add(-3*time.Minute))

	gw := &gateway{failFor: map[string]bool{"S3@example.com": true}}
	res := newScheduler(repo, gw, 0).TriggerImmediate(context.Background())

	// S1: delivered with the disclaimer appended
	s1 := load(t, repo, "S1")
	assert.Equal(t, domain.StatusAutoSent, s1.Status)
	require.NotNil(t, s1.SentAt)
	assert.Equal(t, "Draft for S1"+disclaimer.NewComposer().Compose(string(domain.SeverityMild)), s1.SentText)

	// S2: reverted, auto_send_time untouched, eligible again right away
	s2 := load(t, repo, "S2")
	assert.Equal(t, domain.StatusPending, s2.Status)
	assert.True(t, s2.AutoSendTime.Equal(now.Add(-2*time.Minute)))
	assert.True(t, s2.IsEligibleAt(now))

	// S3: reverted and pushed back by the fixed backoff, error surfaced
	s3 := load(t, repo, "S3")
	assert.Equal(t, domain.StatusPending, s3.Status)
	assert.True(t, s3.AutoSendTime.Equal(now.Add(30*time.Minute)))
	assert.Nil(t, s3.SentAt)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "S3")
	assert.Equal(t, 2, res.ProcessedCount)
	assert.Equal(t, 1, res.SentCount)
}

func TestTriggerImmediateNothingEligible(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	res := newScheduler(repo, &gateway{}, 0).TriggerImmediate(context.Background())

	assert.Equal(t, 0, res.ProcessedCount)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestTriggerImmediateWhileBusy(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "first", domain.StatusPending, now.Add(-2*time.Minute))
	seed(t, repo, "second", domain.StatusPending, now.Add(-time.Minute))
	gw := &gateway{entered: make(chan struct{}, 2), release: make(chan struct{})}
	s := newScheduler(repo, gw, 0)

	done := make(chan CycleResult)
	go func() { done <- s.TriggerImmediate(context.Background()) }()
	<-gw.entered

	busy := s.TriggerImmediate(context.Background())
	assert.Equal(t, 0, busy.ProcessedCount)
	assert.Equal(t, []string{BusyMessage}, busy.Errors)
	assert.Equal(t, domain.StatusPending, load(t, repo, "second").Status, "a busy trigger mutates nothing")

	close(gw.release)
	first := <-done
	assert.Equal(t, 2, first.ProcessedCount)

	again := s.TriggerImmediate(context.Background())
	assert.Empty(t, again.Errors, "the flag is released after the cycle")
}

type errFinder struct{ err error }

func (f errFinder) FindEligible(context.Context, time.Time) ([]*domain.Submission, error) {
	return nil, f.err
}

func TestTriggerImmediateFindError(t *testing.T) {
	s := NewAutoSendScheduler(errFinder{err: errors.New("db down")}, nil, zap.NewNop().Sugar(), fixedClock, 0)
	res := s.TriggerImmediate(context.Background())
	assert.Equal(t, 0, res.ProcessedCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "db down")
}

// panicky panics for one submission and succeeds for the rest
type panicky struct {
	seen []string
}

func (p *panicky) Process(_ context.Context, sub *domain.Submission) (dispatch.Outcome, error) {
	p.seen = append(p.seen, sub.ID)
	if sub.ID == "bad" {
		panic("nil pointer")
	}
	return dispatch.OutcomeSent, nil
}

func TestCycleSurvivesPanickingItem(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "bad", domain.StatusPending, now.Add(-2*time.Minute))
	seed(t, repo, "good", domain.StatusPending, now.Add(-time.Minute))
	p := &panicky{}

	res := NewAutoSendScheduler(repo, p, zap.NewNop().Sugar(), fixedClock, 0).TriggerImmediate(context.Background())

	assert.Equal(t, []string{"bad", "good"}, p.seen)
	assert.Equal(t, 1, res.ProcessedCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bad")
}

func TestStartRunsImmediatelyAndIsIdempotent(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "S1", domain.StatusPending, now.Add(-time.Minute))
	gw := &gateway{}
	s := newScheduler(repo, gw, time.Hour)

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return statusOf(repo, "S1") == domain.StatusAutoSent
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"S1"}, gw.sends())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestTimerPicksUpNewWork(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	gw := &gateway{}
	s := newScheduler(repo, gw, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	seed(t, repo, "late", domain.StatusApproved, now.Add(-time.Second))

	require.Eventually(t, func() bool {
		return statusOf(repo, "late") == domain.StatusAutoSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRepeatedCyclesSendAtMostOnce(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "S1", domain.StatusPending, now.Add(-time.Minute))
	gw := &gateway{}
	s := newScheduler(repo, gw, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TriggerImmediate(context.Background())
		}()
	}
	wg.Wait()
	for i := 0; i < 3; i++ {
		s.TriggerImmediate(context.Background())
	}

	assert.Equal(t, []string{"S1"}, gw.sends())
}

func TestSeparateSchedulersShareOneClaim(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	for _, id := range []string{"a", "b", "c", "d"} {
		seed(t, repo, id, domain.StatusPending, now.Add(-time.Minute))
	}
	gw := &gateway{}

	// Two schedulers model two replicas: their busy flags are independent
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		s := newScheduler(repo, gw, 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TriggerImmediate(context.Background())
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, gw.sends())
}

func TestStopDoesNotWaitForRunningCycle(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "S1", domain.StatusPending, now.Add(-time.Minute))
	gw := &gateway{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newScheduler(repo, gw, time.Hour)

	s.Start()
	<-gw.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on the in-flight cycle")
	}
	assert.False(t, s.Running())
	assert.Equal(t, domain.StatusSending, statusOf(repo, "S1"))

	close(gw.release)
	require.Eventually(t, func() bool {
		return statusOf(repo, "S1") == domain.StatusAutoSent
	}, 2*time.Second, 10*time.Millisecond, "the cycle in progress finishes after Stop")
	assert.Equal(t, []string{"S1"}, gw.sends())
}

func TestTriggerImmediateCancelledLeavesItemsEligible(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository()
	seed(t, repo, "S1", domain.StatusPending, now.Add(-time.Minute))
	gw := &gateway{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newScheduler(repo, gw, 0).TriggerImmediate(ctx)

	assert.Equal(t, 0, res.ProcessedCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "cycle interrupted")
	assert.Empty(t, gw.sends())
	assert.Equal(t, domain.StatusPending, load(t, repo, "S1").Status)
}
