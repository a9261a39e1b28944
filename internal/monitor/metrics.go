package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "infraforge",
		Subsystem: "monitor",
		Name:      "polls_total",
		Help:      "Task list polls performed.",
	})

	tasksDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "infraforge",
		Subsystem: "monitor",
		Name:      "tasks_discovered_total",
		Help:      "Proxmox tasks picked up by the monitor.",
	})

	tasksFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "infraforge",
		Subsystem: "monitor",
		Name:      "tasks_finalized_total",
		Help:      "Tasks that reached a terminal state, by outcome.",
	}, []string{"outcome"})
)
