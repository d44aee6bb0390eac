package runner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meme-radar/internal/domain"
	"meme-radar/internal/pipeline"
	"meme-radar/internal/storage/memory"
)

// fakeCycles returns scripted reports and counts invocations.
type fakeCycles struct {
	runs    atomic.Int32
	reports []*pipeline.CycleReport
	block   chan struct{} // when non-nil, RunCycle waits for a receive
}

func (f *fakeCycles) RunCycle(ctx context.Context) *pipeline.CycleReport {
	n := int(f.runs.Add(1)) - 1

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	if n < len(f.reports) {
		return f.reports[n]
	}
	return &pipeline.CycleReport{StartedAt: time.Now().UnixMilli()}
}

func okReport() *pipeline.CycleReport {
	return &pipeline.CycleReport{StartedAt: time.Now().UnixMilli()}
}

func failedReport(name string, err error) *pipeline.CycleReport {
	return &pipeline.CycleReport{
		StartedAt:    time.Now().UnixMilli(),
		SourceErrors: map[string]error{name: err},
	}
}

func newRunner(t *testing.T, cycles CycleRunner, statuses *memory.StatusStore, interval time.Duration) *Runner {
	t.Helper()

	r, err := New(Options{
		Pipeline: cycles,
		Statuses: statuses,
		Interval: interval,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRunner_SuccessfulCycleHeartbeats(t *testing.T) {
	statuses := memory.NewStatusStore()
	cycles := &fakeCycles{reports: []*pipeline.CycleReport{okReport()}}
	r := newRunner(t, cycles, statuses, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return cycles.runs.Load() >= 1 })
	waitFor(t, func() bool {
		hb, err := statuses.Get(context.Background(), DefaultComponent)
		return err == nil && hb.Status == domain.StatusIdle
	})

	cancel()
	<-done

	hb, err := statuses.Get(context.Background(), DefaultComponent)
	if err != nil {
		t.Fatalf("Get heartbeat failed: %v", err)
	}
	if hb.Message != "runner stopped" {
		t.Errorf("Expected shutdown heartbeat, got %q", hb.Message)
	}
	if r.State() != StateStopped {
		t.Errorf("Expected stopped state, got %s", r.State())
	}
}

func TestRunner_CycleFailureDoesNotKillLoop(t *testing.T) {
	statuses := memory.NewStatusStore()
	cycles := &fakeCycles{reports: []*pipeline.CycleReport{
		failedReport("reddit", errors.New("auth failed")),
		okReport(),
	}}
	r := newRunner(t, cycles, statuses, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// The loop must survive the failed first cycle and run again.
	waitFor(t, func() bool { return cycles.runs.Load() >= 2 })
	cancel()
	<-done
}

func TestRunner_ErrorHeartbeatCarriesMessage(t *testing.T) {
	statuses := memory.NewStatusStore()
	cycles := &fakeCycles{
		reports: []*pipeline.CycleReport{failedReport("forum", errors.New("rate limited"))},
		block:   make(chan struct{}),
	}
	r := newRunner(t, cycles, statuses, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// While the cycle is in flight the heartbeat reads running.
	waitFor(t, func() bool {
		hb, err := statuses.Get(context.Background(), DefaultComponent)
		return err == nil && hb.Status == domain.StatusRunning
	})
	if r.State() != StateRunning {
		t.Errorf("Expected running state mid-cycle, got %s", r.State())
	}

	cycles.block <- struct{}{}

	waitFor(t, func() bool {
		hb, err := statuses.Get(context.Background(), DefaultComponent)
		return err == nil && hb.Status == domain.StatusError
	})
	hb, _ := statuses.Get(context.Background(), DefaultComponent)
	if !strings.Contains(hb.Message, "forum") {
		t.Errorf("Expected failure detail in heartbeat, got %q", hb.Message)
	}

	cancel()
	<-done
}

func TestRunner_OverrunStartsNextCycleImmediately(t *testing.T) {
	statuses := memory.NewStatusStore()
	cycles := &fakeCycles{}
	// Interval of zero means every wait computes to "now"; the loop must
	// keep dispatching back to back without piling up.
	r := newRunner(t, cycles, statuses, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return cycles.runs.Load() >= 3 })
	cancel()
	<-done
}

func TestRunner_RequiredOptions(t *testing.T) {
	if _, err := New(Options{Statuses: memory.NewStatusStore()}); err == nil {
		t.Error("Expected error for missing pipeline")
	}
	if _, err := New(Options{Pipeline: &fakeCycles{}}); err == nil {
		t.Error("Expected error for missing status store")
	}
}

// waitFor polls cond with a deadline.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
