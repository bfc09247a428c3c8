package engine

import (
	"container/heap"
	"context"
	"sync"
	"testing"
	"time"

	"showrunner/internal/automation"
	"showrunner/pkg/logx"
)

func timerAutomation(id string, intervalSeconds int64) automation.Automation {
	return automation.Automation{
		ID:      id,
		Enabled: true,
		Trigger: automation.Trigger{
			Kind:  automation.TriggerTimer,
			Timer: &automation.TimerTrigger{IntervalSeconds: intervalSeconds},
		},
	}
}

func TestNextAligned(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		now      time.Time
		interval int64
		want     int64
	}{
		{name: "mid-interval rounds up", now: time.Unix(125, 0), interval: 60, want: 180},
		{name: "exact boundary stays", now: time.Unix(120, 0), interval: 60, want: 120},
		{name: "sub-second past boundary bumps", now: time.Unix(120, 1), interval: 60, want: 180},
		{name: "one second short", now: time.Unix(179, 0), interval: 60, want: 180},
		{name: "long interval", now: time.Unix(3601, 0), interval: 3600, want: 7200},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := nextAligned(tt.now, tt.interval)
			if got.Unix() != tt.want || got.Nanosecond() != 0 {
				t.Fatalf("nextAligned(%v, %d) = %v, want unix %d", tt.now, tt.interval, got, tt.want)
			}
			if got.Unix()%tt.interval != 0 {
				t.Fatalf("result %d is not a multiple of %d", got.Unix(), tt.interval)
			}
		})
	}
}

func TestRebuildFiltersAndAligns(t *testing.T) {
	t.Parallel()
	s := NewScheduler(nil, logx.Nop())
	s.now = func() time.Time { return time.Unix(125, 0) }

	snapshot := []automation.Automation{
		timerAutomation("t60", 60),
		timerAutomation("t30", 30),
		timerAutomation("zero", 0),
		{ID: "cmd", Trigger: automation.Trigger{Kind: automation.TriggerCommand}},
	}
	q := s.rebuild(snapshot)

	if len(q) != 2 {
		t.Fatalf("queue holds %d entries, want 2 (non-timer and zero-interval dropped)", len(q))
	}
	// Heap head is the earliest due entry: t30 aligns to 150, t60 to 180.
	head := heap.Pop(&q).(*ScheduledEntry)
	if head.Automation.ID != "t30" || head.NextRun.Unix() != 150 {
		t.Fatalf("head = %s at %d, want t30 at 150", head.Automation.ID, head.NextRun.Unix())
	}
	next := heap.Pop(&q).(*ScheduledEntry)
	if next.Automation.ID != "t60" || next.NextRun.Unix() != 180 {
		t.Fatalf("next = %s at %d, want t60 at 180", next.Automation.ID, next.NextRun.Unix())
	}
}

func TestUpdateAutomationsLatestSnapshotWins(t *testing.T) {
	t.Parallel()
	s := NewScheduler(nil, logx.Nop())

	s.UpdateAutomations([]automation.Automation{timerAutomation("old", 60)})
	s.UpdateAutomations([]automation.Automation{timerAutomation("new", 60)})

	select {
	case snap := <-s.updates:
		if len(snap) != 1 || snap[0].ID != "new" {
			t.Fatalf("pending snapshot = %+v, want the newest one", snap)
		}
	default:
		t.Fatal("no snapshot pending")
	}
}

type recordingExecutor struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{ch: make(chan string, 16)}
}

func (r *recordingExecutor) ExecuteTimer(_ context.Context, a automation.Automation) {
	r.mu.Lock()
	r.fired = append(r.fired, a.ID)
	r.mu.Unlock()
	select {
	case r.ch <- a.ID:
	default:
	}
}

func TestSchedulerRunFiresAndHonorsReplacement(t *testing.T) {
	t.Parallel()
	exec := newRecordingExecutor()
	s := NewScheduler(exec, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	s.UpdateAutomations([]automation.Automation{timerAutomation("tick", 1)})

	select {
	case id := <-exec.ch:
		if id != "tick" {
			t.Fatalf("fired %q, want tick", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timer never fired")
	}

	// An empty snapshot replaces the schedule wholesale; the entry must not
	// fire again.
	s.UpdateAutomations(nil)
	time.Sleep(50 * time.Millisecond)
	drainStrings(exec.ch)

	select {
	case id := <-exec.ch:
		t.Fatalf("fired %q after removal", id)
	case <-time.After(1500 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop on cancel")
	}
}

func drainStrings(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
