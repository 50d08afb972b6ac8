package timeline

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	created *prometheus.CounterVec
	partial *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_timelines_created_total",
			Help: "Timelines saved, by genre.",
		}, []string{"genre"}),
		partial: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_partial_save_failures_total",
			Help: "Saves whose timeline row was written but whose children were not, by stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.partial)
	}
	return m
}

func (m *Metrics) timelineCreated(g string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(g).Inc()
}

func (m *Metrics) partialFailure(stage string) {
	if m == nil {
		return
	}
	m.partial.WithLabelValues(stage).Inc()
}
