package observability

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger("debug", &buf)

	logger.Info().Str("component", "test").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "test", line["component"])
	assert.Contains(t, line, "time")
	assert.Contains(t, line, "caller")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestMetrics_SyncRecorder(t *testing.T) {
	m := NewMetrics("pos_test", prometheus.NewRegistry())

	m.SaleSynced()
	m.SaleSynced()
	m.SyncFailed("timeout")
	m.PendingSales(3)
	m.PassCompleted(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SalesSynced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncFailures.WithLabelValues("timeout")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
}

func TestMetrics_SaleRecorder(t *testing.T) {
	m := NewMetrics("pos_test", prometheus.NewRegistry())
	item, err := sale.NewItem("p1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(10))
	require.NoError(t, err)
	s, err := sale.NewSale("tenant-1", "user-1", 1, []sale.Item{item}, decimal.NewFromInt(20), sale.PaymentCash, nil)
	require.NoError(t, err)

	m.SaleRecorded(s)
	m.SaleRejected("validation")
	m.StockWentNegative(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SalesTotal.WithLabelValues("Efectivo", "created")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.SaleAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaleErrors.WithLabelValues("validation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StockNegative))
}

func TestMetrics_BreakerStateChanged(t *testing.T) {
	m := NewMetrics("pos_test", prometheus.NewRegistry())

	m.BreakerStateChanged("remote", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("remote")))

	m.BreakerStateChanged("remote", gobreaker.StateOpen, gobreaker.StateHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("remote")))

	m.BreakerStateChanged("remote", gobreaker.StateHalfOpen, gobreaker.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("remote")))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("pos_test", reg)
	assert.Panics(t, func() { NewMetrics("pos_test", reg) })
}
