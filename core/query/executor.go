package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/shaledb/shale/core/engine"
	"github.com/shaledb/shale/core/storage/record"
	internaltelemetry "github.com/shaledb/shale/internal/telemetry"
	"go.uber.org/zap"
)

// Result carries the outcome of a single statement. Rows is non-nil for
// SELECT, empty when nothing matched; RowsAffected counts the rows changed
// by INSERT and DELETE.
type Result struct {
	Rows         []record.Row
	RowsAffected int
}

// Executor parses statements and runs them against an open engine. It is a
// thin translation layer: all storage semantics live below it.
type Executor struct {
	engine  *engine.Engine
	logger  *zap.Logger
	metrics *internaltelemetry.EngineMetrics
}

// NewExecutor wraps an engine handle. Logger and metrics may be nil.
func NewExecutor(eng *engine.Engine, logger *zap.Logger, metrics *internaltelemetry.EngineMetrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{engine: eng, logger: logger, metrics: metrics}
}

// Execute parses and runs one statement. Parse errors and storage errors are
// returned as-is; a SELECT or DELETE that matches no row is not an error.
func (e *Executor) Execute(input string) (*Result, error) {
	start := time.Now()
	defer func() {
		e.metrics.StatementExecuted(time.Since(start))
	}()

	stmt, err := Parse(input)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *SelectStatement:
		return e.execSelect(s)
	case *InsertStatement:
		return e.execInsert(s)
	case *DeleteStatement:
		return e.execDelete(s)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStatement, stmt)
	}
}

func (e *Executor) execSelect(stmt *SelectStatement) (*Result, error) {
	rows := []record.Row{}
	if stmt.ID != nil {
		row, err := e.engine.Get(*stmt.ID)
		if errors.Is(err, engine.ErrKeyNotFound) {
			return &Result{Rows: rows}, nil
		}
		if err != nil {
			return nil, err
		}
		return &Result{Rows: append(rows, row)}, nil
	}

	cur := e.engine.Scan()
	for cur.Next() {
		rows = append(rows, cur.Row())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return &Result{Rows: rows}, nil
}

func (e *Executor) execInsert(stmt *InsertStatement) (*Result, error) {
	if err := e.engine.Insert(stmt.Row); err != nil {
		return nil, err
	}
	e.logger.Debug("row inserted", zap.Int64("id", stmt.Row.ID))
	return &Result{RowsAffected: 1}, nil
}

func (e *Executor) execDelete(stmt *DeleteStatement) (*Result, error) {
	err := e.engine.Delete(stmt.ID)
	if errors.Is(err, engine.ErrKeyNotFound) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("row deleted", zap.Int64("id", stmt.ID))
	return &Result{RowsAffected: 1}, nil
}
