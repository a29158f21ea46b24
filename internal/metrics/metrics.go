package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "slot_queries_total",
			Help:      "Count of slot grid queries by result.",
		},
		[]string{"result"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "booking_canceled_total",
			Help:      "Count of bookings canceled.",
		},
	)

	bookingRescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "booking_rescheduled_total",
			Help:      "Count of bookings moved to a new slot.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "booking_conflicts_total",
			Help:      "Count of commits rejected because the slot was taken.",
		},
	)

	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velour",
			Name:      "booking_lock_timeouts_total",
			Help:      "Count of commits that failed to acquire the stylist-day lock in time.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			slotQueries, bookingCreated, bookingCanceled,
			bookingRescheduled, bookingConflicts, lockTimeouts,
		)
	})
}

func IncSlotQuery(result string) {
	slotQueries.WithLabelValues(result).Inc()
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingCanceled() {
	bookingCanceled.Inc()
}

func IncBookingRescheduled() {
	bookingRescheduled.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncLockTimeout() {
	lockTimeouts.Inc()
}
