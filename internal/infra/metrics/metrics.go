package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Validations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subs_exclusivity_validations_total",
		Help: "Exclusivity validation runs.",
	})

	Conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subs_exclusivity_conflicts_total",
		Help: "Validation runs rejected because of overlapping asset reservations.",
	})

	Consumptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subs_consumptions_total",
		Help: "Consumption records written.",
	})
)
