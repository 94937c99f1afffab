package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Processed transactions by type and terminal status",
		},
		[]string{"type", "status"}, // credit|debit, success|failed
	)
	TransactionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_failed_total",
			Help: "Rejected or failed transactions by error kind",
		},
		[]string{"kind"},
	)
	CommitRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commit_retries_total",
			Help: "Atomic-commit units replayed after a serialization conflict",
		},
	)
	CommitConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commit_conflicts_total",
			Help: "Atomic-commit units abandoned after exhausting the retry budget",
		},
	)
	PendingOrphans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_orphans",
			Help: "Pending transactions older than the reconcile threshold at the last sweep",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsFailed)
	prometheus.MustRegister(CommitRetries)
	prometheus.MustRegister(CommitConflicts)
	prometheus.MustRegister(PendingOrphans)
	prometheus.MustRegister(WorkerQueueDepth)
}
