// Package bench is a cross-driver parity harness: it drives the same
// workload through both github.com/jackc/pgx/v5 (the reference, widely
// used pure-Go driver) and this module's own Driver, so the two can be
// timed under identical conditions. It is not part of the wire protocol
// or the query language; it exists purely to answer whether
// reimplementing the protocol natively costs or saves anything against
// the incumbent driver.
package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qail-lang/qail"
)

// Config sizes a benchmark run. Workers and PoolSize only apply to the
// pgx pool path (RunPgxPool); the qail path pipelines everything over
// whatever connection the pool hands it, matching how PipelineBatch
// itself checks out a single connection per call.
type Config struct {
	TotalQueries int
	BatchSize    int
	Workers      int
	PoolSize     int
}

// Result is the outcome of one benchmark run.
type Result struct {
	Elapsed          time.Duration
	QueriesCompleted int64
	RowsConsumed     int64
}

// QueriesPerSecond is Result's throughput figure.
func (r Result) QueriesPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.QueriesCompleted) / r.Elapsed.Seconds()
}

// Query is one parameterized statement a benchmark run issues
// repeatedly; Param varies per-iteration, e.g. cycling LIMIT $1
// through 1..10.
type Query struct {
	SQL   string
	Param func(i int) any
}

// RunPgxPool drives cfg.TotalQueries through a pgxpool-backed worker
// pool, batching cfg.BatchSize queries per round trip and consuming
// every row pgx returns (a benchmark that doesn't read its rows isn't
// measuring what the wire protocol costs).
func RunPgxPool(ctx context.Context, connString string, cfg Config, q Query) (Result, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return Result{}, fmt.Errorf("bench: parsing pool config: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
		poolCfg.MinConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return Result{}, fmt.Errorf("bench: connecting pool: %w", err)
	}
	defer pool.Close()

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	batchesPerWorker := cfg.TotalQueries / workers / batchSize

	var queriesDone, rowsDone int64
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runPgxWorker(ctx, pool, batchesPerWorker, batchSize, q, &queriesDone, &rowsDone); err != nil {
				return
			}
		}()
	}
	wg.Wait()

	return Result{
		Elapsed:          time.Since(start),
		QueriesCompleted: atomic.LoadInt64(&queriesDone),
		RowsConsumed:     atomic.LoadInt64(&rowsDone),
	}, nil
}

func runPgxWorker(ctx context.Context, pool *pgxpool.Pool, batches, batchSize int, q Query, queriesDone, rowsDone *int64) error {
	for b := 0; b < batches; b++ {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i := 0; i < batchSize; i++ {
			batch.Queue(q.SQL, q.Param(i))
		}

		br := conn.SendBatch(ctx, batch)
		for i := 0; i < batchSize; i++ {
			rows, err := br.Query()
			if err != nil {
				br.Close()
				conn.Release()
				return err
			}
			for rows.Next() {
				vals, err := rows.Values()
				if err != nil {
					rows.Close()
					br.Close()
					conn.Release()
					return err
				}
				_ = vals
				atomic.AddInt64(rowsDone, 1)
			}
			rows.Close()
		}
		br.Close()
		conn.Release()
		atomic.AddInt64(queriesDone, int64(batchSize))
	}
	return nil
}

// RunQailPipeline drives the same shape of workload through d's
// PipelinePreparedFast (parse once, bind many), parsing stmt
// once and binding cfg.TotalQueries worth of parameter rows in batches
// of cfg.BatchSize, the qail-side counterpart to RunPgxPool's batched
// pgx.Batch loop.
func RunQailPipeline(ctx context.Context, d *qail.Driver, cfg Config, stmt *qail.Command, param func(i int) qail.Value) (Result, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	batches := cfg.TotalQueries / batchSize

	var queriesDone int64
	start := time.Now()

	for b := 0; b < batches; b++ {
		paramsBatch := make([][]qail.Value, batchSize)
		for i := 0; i < batchSize; i++ {
			paramsBatch[i] = []qail.Value{param(i)}
		}
		n, err := d.PipelinePreparedFast(ctx, stmt, paramsBatch)
		if err != nil {
			return Result{}, fmt.Errorf("bench: pipeline batch %d: %w", b, err)
		}
		queriesDone += int64(n)
	}

	return Result{
		Elapsed:          time.Since(start),
		QueriesCompleted: queriesDone,
	}, nil
}
