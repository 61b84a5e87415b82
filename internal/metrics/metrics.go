package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the trading loop on Prometheus. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	cycles          *prometheus.CounterVec
	signals         *prometheus.CounterVec
	submitFailures  *prometheus.CounterVec
	sourceFailures  prometheus.Counter
	openPositions   prometheus.Gauge
	sentiment       *prometheus.GaugeVec
	cycleLatency    prometheus.Histogram
	confirmLatency  prometheus.Histogram
	confirmDeclined prometheus.Counter
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// the binary and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_cycles_total",
				Help: "Engine cycles by phase and outcome",
			},
			[]string{"phase", "outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_signals_total",
				Help: "Trade signals emitted by action",
			},
			[]string{"action"},
		),
		submitFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_submit_failures_total",
				Help: "Signals the executor rejected",
			},
			[]string{"action"},
		),
		sourceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "trader_sentiment_failures_total",
			Help: "Cycles skipped because the sentiment source failed",
		}),
		openPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Open positions tagged with the strategy id at the last cycle",
		}),
		sentiment: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trader_sentiment_score",
				Help: "Last published sentiment score per ticker",
			},
			[]string{"ticker"},
		),
		cycleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_cycle_duration_seconds",
			Help:    "Duration of engine cycles",
			Buckets: prometheus.DefBuckets,
		}),
		confirmLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_confirmation_wait_seconds",
			Help:    "Time spent waiting on operator confirmation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		confirmDeclined: f.NewCounter(prometheus.CounterOpts{
			Name: "trader_confirmations_declined_total",
			Help: "Signals the operator declined",
		}),
	}
}

func (r *Recorder) RecordCycle(phase, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(phase, outcome).Inc()
	r.cycleLatency.Observe(d.Seconds())
}

func (r *Recorder) RecordSignal(action string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(action).Inc()
}

func (r *Recorder) RecordSubmitFailure(action string) {
	if r == nil {
		return
	}
	r.submitFailures.WithLabelValues(action).Inc()
}

func (r *Recorder) RecordSourceFailure() {
	if r == nil {
		return
	}
	r.sourceFailures.Inc()
}

func (r *Recorder) SetOpenPositions(n int) {
	if r == nil {
		return
	}
	r.openPositions.Set(float64(n))
}

func (r *Recorder) RecordSentiment(ticker string, score float64) {
	if r == nil {
		return
	}
	r.sentiment.WithLabelValues(ticker).Set(score)
}

func (r *Recorder) RecordConfirmation(wait time.Duration, accepted bool) {
	if r == nil {
		return
	}
	r.confirmLatency.Observe(wait.Seconds())
	if !accepted {
		r.confirmDeclined.Inc()
	}
}
