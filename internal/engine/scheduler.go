package engine

import (
	"container/heap"
	"context"
	"time"

	"showrunner/internal/automation"
	"showrunner/pkg/logx"
)

// TimerExecutor runs one due timer automation. Implemented by Dispatcher.
type TimerExecutor interface {
	ExecuteTimer(ctx context.Context, a automation.Automation)
}

// ScheduledEntry is one timer automation plus its next due instant.
type ScheduledEntry struct {
	Automation automation.Automation
	NextRun    time.Time
}

// entryQueue is a min-heap on NextRun, owned exclusively by the scheduler
// loop. Nothing outside Run touches it.
type entryQueue []*ScheduledEntry

func (q entryQueue) Len() int           { return len(q) }
func (q entryQueue) Less(i, j int) bool { return q[i].NextRun.Before(q[j].NextRun) }
func (q entryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *entryQueue) Push(x any)        { *q = append(*q, x.(*ScheduledEntry)) }
func (q *entryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler drives timer-triggered automations. One goroutine owns the queue
// and selects between "catalog refresh arrived" and "next timer due";
// executions are spawned so a slow timer never delays the next one.
type Scheduler struct {
	exec    TimerExecutor
	log     logx.Logger
	now     func() time.Time
	updates chan []automation.Automation
}

func NewScheduler(exec TimerExecutor, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		exec: exec,
		log:  log,
		now:  time.Now,
		// Capacity 1 with replace-on-full: only the newest snapshot matters
		// and the catalog-updating caller must never block here.
		updates: make(chan []automation.Automation, 1),
	}
}

// UpdateAutomations hands a fresh catalog snapshot to the run loop. The queue
// is rebuilt wholesale from the snapshot; entries absent from it never fire
// again. Never blocks: a pending unprocessed snapshot is replaced.
func (s *Scheduler) UpdateAutomations(snapshot []automation.Automation) {
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Run owns the schedule until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var q entryQueue

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	disarm := func() {
		if armed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}
	defer disarm()

	for {
		if len(q) > 0 && !armed {
			d := q[0].NextRun.Sub(s.now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
			armed = true
		}

		select {
		case <-ctx.Done():
			return

		case snapshot := <-s.updates:
			disarm()
			q = s.rebuild(snapshot)
			s.log.Debug("schedule rebuilt", logx.Int("entries", len(q)))

		case <-timer.C:
			armed = false
			if len(q) == 0 {
				continue
			}
			e := heap.Pop(&q).(*ScheduledEntry)
			go s.exec.ExecuteTimer(ctx, e.Automation)

			// Next occurrence advances from the scheduled instant, not from
			// "now", so execution latency never drifts the cadence.
			interval := e.Automation.Trigger.Timer.Interval()
			e.NextRun = e.NextRun.Add(interval)
			heap.Push(&q, e)
		}
	}
}

// rebuild constructs a fresh queue from a catalog snapshot.
func (s *Scheduler) rebuild(snapshot []automation.Automation) entryQueue {
	now := s.now()
	q := make(entryQueue, 0, len(snapshot))
	for _, a := range snapshot {
		tt := a.Trigger.Timer
		if a.Trigger.Kind != automation.TriggerTimer || tt == nil || tt.IntervalSeconds <= 0 {
			continue
		}
		q = append(q, &ScheduledEntry{Automation: a, NextRun: nextAligned(now, tt.IntervalSeconds)})
	}
	heap.Init(&q)
	return q
}

// nextAligned returns the smallest instant >= now that is an integer multiple
// of interval seconds since the Unix epoch.
func nextAligned(now time.Time, intervalSeconds int64) time.Time {
	sec := now.Unix()
	next := ((sec + intervalSeconds - 1) / intervalSeconds) * intervalSeconds
	t := time.Unix(next, 0)
	if t.Before(now) {
		t = time.Unix(next+intervalSeconds, 0)
	}
	return t
}
