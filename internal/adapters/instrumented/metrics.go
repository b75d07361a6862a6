// Package instrumented decorates row stores with Prometheus metrics and logging.
package instrumented

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var metricsOnce sync.Once

var (
	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec
	storeRows       *prometheus.GaugeVec
)

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		logrus.WithError(err).Warn("prometheus counter register failed")
	}
	return c
}

func registerHistogramVec(c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		logrus.WithError(err).Warn("prometheus histogram register failed")
	}
	return c
}

func registerGaugeVec(c *prometheus.GaugeVec) *prometheus.GaugeVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		logrus.WithError(err).Warn("prometheus gauge register failed")
	}
	return c
}

func initMetrics() {
	metricsOnce.Do(func() {
		storeOpsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labbook",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of row store operations.",
		}, []string{"table", "op", "result"}))

		storeOpDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labbook",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of row store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}))

		storeRows = registerGaugeVec(prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "labbook",
			Subsystem: "store",
			Name:      "rows",
			Help:      "Data rows seen on the last full read or overwrite.",
		}, []string{"table"}))
	})
}
