package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic"

var (
	bookingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Bookings processed, by result (committed|failed).",
	}, []string{"result"})

	promotionsEvaluatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotions_evaluated_total",
		Help:      "Requested promotions, by outcome (applied|not_eligible|stacking_conflict|unavailable|not_found).",
	}, []string{"outcome"})

	promotionBenefitsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotion_benefits_applied_total",
		Help:      "Benefits that produced a promotion line, by benefit type.",
	}, []string{"type"})

	bookingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "booking_duration_seconds",
		Help:      "Wall time of one booking transaction.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(bookingsTotal, promotionsEvaluatedTotal, promotionBenefitsAppliedTotal, bookingDuration)
}

func BookingCommitted(elapsed time.Duration) {
	bookingsTotal.WithLabelValues("committed").Inc()
	bookingDuration.Observe(elapsed.Seconds())
}

func BookingFailed(elapsed time.Duration) {
	bookingsTotal.WithLabelValues("failed").Inc()
	bookingDuration.Observe(elapsed.Seconds())
}

func PromotionEvaluated(outcome string) {
	promotionsEvaluatedTotal.WithLabelValues(outcome).Inc()
}

func BenefitApplied(benefitType string) {
	promotionBenefitsAppliedTotal.WithLabelValues(benefitType).Inc()
}
