// Package metrics exposes Prometheus counters for the automation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "platform_events_total",
		Help:      "Platform events received from the transport.",
	})

	automationsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "automations_matched_total",
		Help:      "Automations matched against incoming events.",
	})

	automationsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "automations_fired_total",
		Help:      "Automations that resolved and executed successfully.",
	})

	gateSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "gate_skips_total",
		Help:      "Automations skipped by an admission gate.",
	}, []string{"gate"})

	branchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "branch_failures_total",
		Help:      "Execution branches aborted by a collaborator or resolver error.",
	})

	timerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "timer_ticks_total",
		Help:      "Timer automations popped from the schedule.",
	})

	timerSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "showrunner",
		Name:      "timer_skips_total",
		Help:      "Timer ticks skipped below the chat-activity threshold.",
	})
)

func RecordEventReceived() { eventsReceived.Inc() }

func RecordMatched(n int) { automationsMatched.Add(float64(n)) }

func RecordFired() { automationsFired.Inc() }

func RecordGateSkip(g string) { gateSkips.WithLabelValues(g).Inc() }

func RecordBranchFailure() { branchFailures.Inc() }

func RecordTimerTick() { timerTicks.Inc() }

func RecordTimerSkip() { timerSkips.Inc() }
