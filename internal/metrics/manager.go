package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeConflict  = "conflict"
	OutcomeTransport = "transport_error"
)

type Manager struct {
	// counters
	CounterRemoteRequests *prometheus.CounterVec
	CounterConflictRetry  prometheus.Counter
	CounterLocalWrites    *prometheus.CounterVec
	CounterRecords        *prometheus.CounterVec
	CounterRequests       *prometheus.CounterVec

	// histograms
	HistRemoteDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("gym", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gym", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRemoteRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_requests",
		Help:      "The total number of calls to the remote contents API",
	}, []string{"op", "outcome"})
	counterConflictRetry := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_conflict_retries",
		Help:      "The total number of commits retried after a revision conflict",
	})
	counterLocalWrites := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "local_writes",
		Help:      "The total number of local fallback writes by outcome",
	}, []string{"outcome"})
	counterRecords := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "records_appended",
		Help:      "The total number of appended exercise records, by remote sync result",
	}, []string{"synced"})
	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})

	histRemoteDuration := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			Name:      "remote_duration_seconds",
			Help:      "Duration of remote contents API calls in seconds",
		},
		[]string{"op"},
	)

	return &Manager{
		CounterRemoteRequests: counterRemoteRequests,
		CounterConflictRetry:  counterConflictRetry,
		CounterLocalWrites:    counterLocalWrites,
		CounterRecords:        counterRecords,
		CounterRequests:       counterRequests,
		HistRemoteDuration:    histRemoteDuration,
	}
}
