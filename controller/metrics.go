package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/calvinmclean/autofeed"
)

type metrics struct {
	sequences   *prometheus.CounterVec
	stages      *prometheus.CounterVec
	warnings    prometheus.Counter
	state       prometheus.Gauge
	hopperGrams prometheus.Gauge
	linkLines   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		sequences: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autofeed_sequences_total",
			Help: "Feeding sequences by terminal outcome",
		}, []string{"outcome"}), // outcome=completed|aborted|rejected
		stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autofeed_stage_transitions_total",
			Help: "Sequence stages entered",
		}, []string{"state"}),
		warnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "autofeed_warnings_total",
			Help: "Sequence warnings such as weight wait timeouts",
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autofeed_state",
			Help: "Current sequence state (0=Idle, 1=ExtendGate, 2=DoseWaitForWeight, 3=RetractGate, 4=DoseAndAerate, 5=Aborting, 6=Completed)",
		}),
		hopperGrams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autofeed_hopper_grams",
			Help: "Last hopper weight from telemetry",
		}),
		linkLines: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autofeed_link_lines_total",
			Help: "Lines received from the feeder by type",
		}, []string{"type"}), // type=status|telemetry|other
	}
}

func (m *metrics) observe(line autofeed.StatusLine) {
	m.linkLines.WithLabelValues("status").Inc()
	m.state.Set(float64(line.State))

	switch line.Kind {
	case autofeed.KindStage:
		m.stages.WithLabelValues(line.State.String()).Inc()
	case autofeed.KindWarning:
		m.warnings.Inc()
	case autofeed.KindCompleted, autofeed.KindAborted, autofeed.KindRejected:
		m.sequences.WithLabelValues(string(line.Kind)).Inc()
	}
}
