package internaltelemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the metric instruments for the storage engine. A nil
// *EngineMetrics is valid everywhere one is accepted; the recording methods
// become no-ops, so embedders that skip telemetry pay nothing.
type EngineMetrics struct {
	PagesReadCounter      metric.Int64Counter
	PagesWrittenCounter   metric.Int64Counter
	PagesAllocatedCounter metric.Int64Counter
	PagesFreedCounter     metric.Int64Counter
	FreeListReuseCounter  metric.Int64Counter
	NodeSplitCounter      metric.Int64Counter
	RowsInsertedCounter   metric.Int64Counter
	RowsFetchedCounter    metric.Int64Counter
	RowsDeletedCounter    metric.Int64Counter
	ScansStartedCounter   metric.Int64Counter
	StatementDuration     metric.Int64Histogram
}

// NewEngineMetrics creates and registers all the engine instruments.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	pagesReadCounter, err := meter.Int64Counter(
		"shaledb.pager.reads_total",
		metric.WithDescription("Total number of pages read from the database file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesWrittenCounter, err := meter.Int64Counter(
		"shaledb.pager.writes_total",
		metric.WithDescription("Total number of pages written to the database file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesAllocatedCounter, err := meter.Int64Counter(
		"shaledb.pager.allocations_total",
		metric.WithDescription("Total number of pages handed out by the pager."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesFreedCounter, err := meter.Int64Counter(
		"shaledb.pager.frees_total",
		metric.WithDescription("Total number of pages returned to the free list."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	freeListReuseCounter, err := meter.Int64Counter(
		"shaledb.pager.free_list_reuses_total",
		metric.WithDescription("Allocations satisfied from the free list instead of growing the file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	nodeSplitCounter, err := meter.Int64Counter(
		"shaledb.btree.splits_total",
		metric.WithDescription("Total number of node splits, leaf and internal."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	rowsInsertedCounter, err := meter.Int64Counter(
		"shaledb.engine.inserts_total",
		metric.WithDescription("Total number of rows inserted."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	rowsFetchedCounter, err := meter.Int64Counter(
		"shaledb.engine.lookups_total",
		metric.WithDescription("Total number of point lookups served."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	rowsDeletedCounter, err := meter.Int64Counter(
		"shaledb.engine.deletes_total",
		metric.WithDescription("Total number of rows deleted."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	scansStartedCounter, err := meter.Int64Counter(
		"shaledb.engine.scans_total",
		metric.WithDescription("Total number of full scans started."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	statementDuration, err := meter.Int64Histogram(
		"shaledb.query.statement.duration",
		metric.WithDescription("The latency of executed SQL statements."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		PagesReadCounter:      pagesReadCounter,
		PagesWrittenCounter:   pagesWrittenCounter,
		PagesAllocatedCounter: pagesAllocatedCounter,
		PagesFreedCounter:     pagesFreedCounter,
		FreeListReuseCounter:  freeListReuseCounter,
		NodeSplitCounter:      nodeSplitCounter,
		RowsInsertedCounter:   rowsInsertedCounter,
		RowsFetchedCounter:    rowsFetchedCounter,
		RowsDeletedCounter:    rowsDeletedCounter,
		ScansStartedCounter:   scansStartedCounter,
		StatementDuration:     statementDuration,
	}, nil
}

func (m *EngineMetrics) PageRead() {
	if m == nil {
		return
	}
	m.PagesReadCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) PageWritten() {
	if m == nil {
		return
	}
	m.PagesWrittenCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) PageAllocated() {
	if m == nil {
		return
	}
	m.PagesAllocatedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) PageFreed() {
	if m == nil {
		return
	}
	m.PagesFreedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) FreeListReuse() {
	if m == nil {
		return
	}
	m.FreeListReuseCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) NodeSplit() {
	if m == nil {
		return
	}
	m.NodeSplitCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) RowInserted() {
	if m == nil {
		return
	}
	m.RowsInsertedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) RowFetched() {
	if m == nil {
		return
	}
	m.RowsFetchedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) RowDeleted() {
	if m == nil {
		return
	}
	m.RowsDeletedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) ScanStarted() {
	if m == nil {
		return
	}
	m.ScansStartedCounter.Add(context.Background(), 1)
}

func (m *EngineMetrics) StatementExecuted(d time.Duration) {
	if m == nil {
		return
	}
	m.StatementDuration.Record(context.Background(), d.Milliseconds())
}
