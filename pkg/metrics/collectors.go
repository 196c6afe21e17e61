package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockAcquireTotal counts lock acquisition attempts by outcome:
	// acquired, refreshed, owned, impossible, error.
	LockAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewdb",
		Subsystem: "profile_lock",
		Name:      "acquire_total",
		Help:      "Profile lock acquisition attempts by outcome.",
	}, []string{"outcome"})

	// LockForcedTakeoverTotal counts expired locks deleted by another
	// editor during acquisition.
	LockForcedTakeoverTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewdb",
		Subsystem: "profile_lock",
		Name:      "forced_takeover_total",
		Help:      "Expired profile locks forcibly released during acquisition.",
	})

	// UpdateVariancesApplied counts field variances applied by committed
	// profile updates.
	UpdateVariancesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewdb",
		Subsystem: "person",
		Name:      "update_variances_applied_total",
		Help:      "Field variances applied by committed profile updates.",
	})

	// UpdateVariancesRejected counts variances rejected by the
	// capability filter.
	UpdateVariancesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewdb",
		Subsystem: "person",
		Name:      "update_variances_rejected_total",
		Help:      "Field variances rejected by the capability filter.",
	})
)
