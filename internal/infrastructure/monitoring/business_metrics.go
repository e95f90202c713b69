package monitoring

import "time"

// SaleMetrics records the outcome of one sale attempt.
type SaleMetrics struct {
	start time.Time
}

func NewSaleMetrics() *SaleMetrics {
	SaleAttemptsTotal.Inc()
	return &SaleMetrics{start: time.Now()}
}

func (m *SaleMetrics) RecordSuccess(units int) {
	SaleSuccessTotal.Inc()
	SaleItemsSoldTotal.Add(float64(units))
	SaleDuration.WithLabelValues("success").Observe(time.Since(m.start).Seconds())
}

func (m *SaleMetrics) RecordFailure(reason string) {
	SaleFailureTotal.WithLabelValues(reason).Inc()
	SaleDuration.WithLabelValues("failure").Observe(time.Since(m.start).Seconds())
}
