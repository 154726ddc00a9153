package internaltelemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// TestNewEngineMetricsCreatesAllInstruments builds the bundle against a
// no-op meter and drives every recording method once.
func TestNewEngineMetricsCreatesAllInstruments(t *testing.T) {
	m, err := NewEngineMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, m)

	m.PageRead()
	m.PageWritten()
	m.PageAllocated()
	m.PageFreed()
	m.FreeListReuse()
	m.NodeSplit()
	m.RowInserted()
	m.RowFetched()
	m.RowDeleted()
	m.ScanStarted()
	m.StatementExecuted(3 * time.Millisecond)
}

// TestNilEngineMetricsIsSafe pins down the contract the storage packages
// rely on: every recording method is a no-op on a nil receiver.
func TestNilEngineMetricsIsSafe(t *testing.T) {
	var m *EngineMetrics

	require.NotPanics(t, func() {
		m.PageRead()
		m.PageWritten()
		m.PageAllocated()
		m.PageFreed()
		m.FreeListReuse()
		m.NodeSplit()
		m.RowInserted()
		m.RowFetched()
		m.RowDeleted()
		m.ScanStarted()
		m.StatementExecuted(time.Millisecond)
	})
}
