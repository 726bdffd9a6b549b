package observability

import (
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Metrics holds all application metrics
type Metrics struct {
	// Sale metrics
	SalesTotal    *prometheus.CounterVec
	SaleAmount    prometheus.Counter
	SaleItems     prometheus.Histogram
	SaleErrors    *prometheus.CounterVec
	StockNegative prometheus.Counter

	// Offline queue metrics
	QueueDepth       prometheus.Gauge
	SalesSynced      prometheus.Counter
	SyncFailures     *prometheus.CounterVec
	SyncPassDuration prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec

	// Worker metrics
	WorkerMessagesProcessed  *prometheus.CounterVec
	WorkerProcessingDuration *prometheus.HistogramVec
	OutboxPublished          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SalesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_total",
				Help:      "Total number of sales by payment method and outcome",
			},
			[]string{"payment_method", "status"},
		),
		SaleAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sale_amount_total",
				Help:      "Sum of recorded sale totals",
			},
		),
		SaleItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sale_items",
				Help:      "Number of lines per sale",
				Buckets:   []float64{1, 2, 5, 10, 20, 50},
			},
		),
		SaleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sale_errors_total",
				Help:      "Total number of rejected sale requests",
			},
			[]string{"error_type"},
		),
		StockNegative: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_negative_total",
				Help:      "Stock adjustments that left a product below zero",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_sales",
				Help:      "Number of sales waiting in the offline queue",
			},
		),
		SalesSynced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_synced_total",
				Help:      "Queued sales acknowledged by the back office",
			},
		),
		SyncFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_failures_total",
				Help:      "Drain passes stopped by a failure",
			},
			[]string{"reason"},
		),
		SyncPassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_pass_duration_seconds",
				Help:      "Duration of drain passes",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		WorkerMessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_messages_processed_total",
				Help:      "Total number of worker messages processed",
			},
			[]string{"stream", "status"},
		),
		WorkerProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_processing_duration_seconds",
				Help:      "Worker message processing duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"stream"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_entries_total",
				Help:      "Outbox entries relayed to the stream by outcome",
			},
			[]string{"status"},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.SalesTotal,
		m.SaleAmount,
		m.SaleItems,
		m.SaleErrors,
		m.StockNegative,
		m.QueueDepth,
		m.SalesSynced,
		m.SyncFailures,
		m.SyncPassDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.WorkerMessagesProcessed,
		m.WorkerProcessingDuration,
		m.OutboxPublished,
	)

	return m
}

// The methods below let Metrics serve as the sync driver's recorder.

func (m *Metrics) SaleSynced() { m.SalesSynced.Inc() }

func (m *Metrics) SyncFailed(reason string) { m.SyncFailures.WithLabelValues(reason).Inc() }

func (m *Metrics) PassCompleted(d time.Duration) { m.SyncPassDuration.Observe(d.Seconds()) }

func (m *Metrics) PendingSales(n int) { m.QueueDepth.Set(float64(n)) }

// BreakerStateChanged records a circuit breaker transition. It matches the
// gobreaker OnStateChange signature.
func (m *Metrics) BreakerStateChanged(name string, _ gobreaker.State, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}

// The methods below let Metrics serve as the sale use case recorder.

func (m *Metrics) SaleRecorded(s *sale.Sale) {
	method := string(s.PaymentMethod)
	if method == "" {
		method = "unspecified"
	}
	m.SalesTotal.WithLabelValues(method, "created").Inc()
	total, _ := s.Total.Float64()
	m.SaleAmount.Add(total)
	m.SaleItems.Observe(float64(len(s.Items)))
}

func (m *Metrics) SaleRejected(reason string) { m.SaleErrors.WithLabelValues(reason).Inc() }

func (m *Metrics) StockWentNegative(n int) { m.StockNegative.Add(float64(n)) }
