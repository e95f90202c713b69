package monitoring

import (
	"context"
	"database/sql"
	"time"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func InstrumentQuery(ctx context.Context, q Querier, queryType, table, query string, args ...interface{}) (*sql.Rows, error) {
	defer TimeDBQuery(queryType, table)()
	return q.QueryContext(ctx, query, args...)
}

func InstrumentExec(ctx context.Context, q Querier, queryType, table, query string, args ...interface{}) (sql.Result, error) {
	defer TimeDBQuery(queryType, table)()
	return q.ExecContext(ctx, query, args...)
}

func InstrumentQueryRow(ctx context.Context, q Querier, queryType, table, query string, args ...interface{}) *sql.Row {
	defer TimeDBQuery(queryType, table)()
	return q.QueryRowContext(ctx, query, args...)
}

// DBMetricsCollector publishes sql.DBStats for the sale pool.
type DBMetricsCollector struct {
	stats func() sql.DBStats
}

func NewDBMetricsCollector(db *sql.DB) *DBMetricsCollector {
	return &DBMetricsCollector{stats: db.Stats}
}

// Run samples once immediately, then every interval until ctx is done.
func (c *DBMetricsCollector) Run(ctx context.Context, interval time.Duration) error {
	c.collect()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *DBMetricsCollector) collect() {
	s := c.stats()
	DBConnectionsActive.Set(float64(s.InUse))
	DBConnectionsIdle.Set(float64(s.Idle))
	DBConnectionsWaitCount.Set(float64(s.WaitCount))
}
