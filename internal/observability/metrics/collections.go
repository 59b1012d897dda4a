package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CollectionsMetrics captures collections pass health signals.
type CollectionsMetrics struct {
	passRuns        prometheus.Counter
	passDuration    prometheus.Observer
	passErrors      *prometheus.CounterVec
	invoicesSeen    prometheus.Counter
	bucketChanges   prometheus.Counter
	escalations     prometheus.Counter
	reassignments   prometheus.Counter
	draftsCreated   prometheus.Counter
	draftsSkipped   prometheus.Counter
	invoiceFailures prometheus.Counter
}

var (
	collectionsMetricsOnce sync.Once
	collectionsMetrics     *CollectionsMetrics
)

// Collections returns the singleton collections metrics registry.
func Collections() *CollectionsMetrics {
	collectionsMetricsOnce.Do(func() {
		collectionsMetrics = newCollectionsMetrics(prometheus.DefaultRegisterer)
	})
	return collectionsMetrics
}

// ResetCollectionsMetricsForTest resets the singleton for tests.
func ResetCollectionsMetricsForTest() {
	collectionsMetricsOnce = sync.Once{}
	collectionsMetrics = nil
}

func newCollectionsMetrics(registerer prometheus.Registerer) *CollectionsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	passRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_pass_runs_total",
		Help: "Collections pass executions.",
	})
	passDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "collectra_pass_duration_seconds",
		Help:    "Collections pass latency.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	passErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collectra_pass_errors_total",
		Help: "Collections pass errors by kind.",
	}, []string{"kind"})
	invoicesSeen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_pass_invoices_total",
		Help: "Invoices evaluated across all passes.",
	})
	bucketChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_bucket_changes_total",
		Help: "Invoice aging bucket changes persisted.",
	})
	escalations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_bucket_escalations_total",
		Help: "Bucket transitions to a more delinquent tier.",
	})
	reassignments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_workflow_reassignments_total",
		Help: "Workflow assignments created by the pass.",
	})
	draftsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_drafts_created_total",
		Help: "Outreach drafts created by the pass.",
	})
	draftsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_drafts_skipped_total",
		Help: "Draft creations skipped because a live draft already exists.",
	})
	invoiceFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectra_pass_invoice_failures_total",
		Help: "Invoices that failed processing within a pass.",
	})

	for _, c := range []prometheus.Collector{
		passRuns, passDuration, passErrors,
		invoicesSeen, bucketChanges, escalations,
		reassignments, draftsCreated, draftsSkipped, invoiceFailures,
	} {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return &CollectionsMetrics{
		passRuns:        passRuns,
		passDuration:    passDuration,
		passErrors:      passErrors,
		invoicesSeen:    invoicesSeen,
		bucketChanges:   bucketChanges,
		escalations:     escalations,
		reassignments:   reassignments,
		draftsCreated:   draftsCreated,
		draftsSkipped:   draftsSkipped,
		invoiceFailures: invoiceFailures,
	}
}

func (m *CollectionsMetrics) IncPassRun() {
	if m == nil {
		return
	}
	m.passRuns.Inc()
}

func (m *CollectionsMetrics) ObservePassDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.Observe(d.Seconds())
}

func (m *CollectionsMetrics) IncPassError(kind string) {
	if m == nil {
		return
	}
	m.passErrors.WithLabelValues(kind).Inc()
}

func (m *CollectionsMetrics) AddInvoicesSeen(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invoicesSeen.Add(float64(n))
}

func (m *CollectionsMetrics) IncBucketChange(escalation bool) {
	if m == nil {
		return
	}
	m.bucketChanges.Inc()
	if escalation {
		m.escalations.Inc()
	}
}

func (m *CollectionsMetrics) IncReassignment() {
	if m == nil {
		return
	}
	m.reassignments.Inc()
}

func (m *CollectionsMetrics) IncDraftCreated() {
	if m == nil {
		return
	}
	m.draftsCreated.Inc()
}

func (m *CollectionsMetrics) IncDraftSkipped() {
	if m == nil {
		return
	}
	m.draftsSkipped.Inc()
}

func (m *CollectionsMetrics) IncInvoiceFailure() {
	if m == nil {
		return
	}
	m.invoiceFailures.Inc()
}
