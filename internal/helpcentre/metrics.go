package helpcentre

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hcq_connected_clients",
		Help: "Number of currently connected clients",
	})

	WaitingStudents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hcq_waiting_students",
		Help: "Number of students waiting in the queue",
	})

	TasOnDuty = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hcq_tas_on_duty",
		Help: "Number of TAs registered with the help centre",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hcq_commands_total",
		Help: "Commands received from registered clients by command",
	}, []string{"command"})

	QueueEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hcq_queue_events_total",
		Help: "Queue events by type and course",
	}, []string{"type", "course"})

	WaitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hcq_wait_seconds",
		Help:    "Time students waited before being called or giving up",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	}, []string{"course"})

	HelpSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hcq_help_seconds",
		Help:    "Time TAs spent with a student",
		Buckets: []float64{30, 60, 120, 300, 600, 900, 1800, 3600},
	}, []string{"course"})

	LoopIterationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hcq_loop_iteration_seconds",
		Help:    "Time spent handling one readiness wake-up",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(WaitingStudents)
	prometheus.MustRegister(TasOnDuty)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(QueueEventsTotal)
	prometheus.MustRegister(WaitSeconds)
	prometheus.MustRegister(HelpSeconds)
	prometheus.MustRegister(LoopIterationDuration)
}

// MetricsObserver feeds queue events into the collectors above.
type MetricsObserver struct{}

func (MetricsObserver) Observe(ev hcq.Event) {
	QueueEventsTotal.WithLabelValues(ev.Type.String(), ev.Course).Inc()
	switch ev.Type {
	case hcq.EventAssigned, hcq.EventGaveUp:
		WaitSeconds.WithLabelValues(ev.Course).Observe(ev.Waited.Seconds())
	case hcq.EventFinished:
		HelpSeconds.WithLabelValues(ev.Course).Observe(ev.Helped.Seconds())
	}
}

func updateQueueGauges(q *hcq.Queue) {
	WaitingStudents.Set(float64(len(q.Waiting())))
	TasOnDuty.Set(float64(len(q.Tas())))
}
