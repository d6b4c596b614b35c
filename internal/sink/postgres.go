package sink

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// DefaultPostgresTable receives products when PostgresOptions.Table is empty.
const DefaultPostgresTable = "catalog_products"

// PostgresOptions configures the warehouse sink.
type PostgresOptions struct {
	Table      string // Target table (default: catalog_products)
	BatchSize  int    // Products per round trip (default: 200)
	MaxConns   int    // Pool size (default: 2)
	ViaBouncer bool   // Use the simple protocol for PgBouncer in transaction mode
}

// pgConn is the subset of *pgxpool.Pool the sink uses.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres upserts products into a warehouse table in batches.
// Buffered products are flushed when the batch fills and on Close.
type Postgres struct {
	conn      pgConn
	closePool func()
	table     string
	batchSize int
	logger    *slog.Logger

	mu      sync.Mutex
	pending []*domain.Product
}

// NewPostgres connects to dsn and creates the target table if missing.
func NewPostgres(ctx context.Context, dsn string, opts PostgresOptions, logger *slog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse PG_DSN: %w", err)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 2
	}
	cfg.MaxConns = int32(opts.MaxConns)
	if opts.ViaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := newPostgres(pool, opts, logger)
	p.closePool = pool.Close
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func newPostgres(conn pgConn, opts PostgresOptions, logger *slog.Logger) *Postgres {
	if opts.Table == "" {
		opts.Table = DefaultPostgresTable
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	return &Postgres{
		conn:      conn,
		closePool: func() {},
		table:     pgx.Identifier{opts.Table}.Sanitize(),
		batchSize: opts.BatchSize,
		logger:    logger,
	}
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		id             text PRIMARY KEY,
		captured_at    timestamptz NOT NULL,
		url            text NOT NULL,
		title          text NOT NULL,
		brand          text NOT NULL,
		section        text[] NOT NULL,
		price_current  double precision NOT NULL,
		price_original double precision NOT NULL,
		sale_tag       text NOT NULL,
		in_stock       boolean NOT NULL,
		stock_count    integer NOT NULL,
		data           jsonb NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	return nil
}

// Write buffers p and flushes once a full batch is pending.
func (p *Postgres) Write(ctx context.Context, prod *domain.Product) error {
	if prod.ID == "" {
		return errors.New("postgres sink: product without id")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, prod)
	if len(p.pending) < p.batchSize {
		return nil
	}
	return p.flushLocked(ctx)
}

// Flush sends any buffered products.
func (p *Postgres) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(ctx)
}

func (p *Postgres) flushLocked(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	rows := p.pending
	p.pending = nil

	b := &pgx.Batch{}
	ids := make([]string, 0, len(rows))
	for _, prod := range rows {
		data, err := json.Marshal(prod, json.Deterministic(true))
		if err != nil {
			p.logger.Warn("postgres sink: encode failed", "product_id", prod.ID, "error", err)
			continue
		}
		section := prod.Section
		if section == nil {
			section = []string{}
		}
		ids = append(ids, prod.ID)
		b.Queue(
			`INSERT INTO `+p.table+`
			(id, captured_at, url, title, brand, section,
			 price_current, price_original, sale_tag, in_stock, stock_count, data)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO UPDATE SET
				captured_at = EXCLUDED.captured_at,
				url = EXCLUDED.url,
				title = EXCLUDED.title,
				brand = EXCLUDED.brand,
				section = EXCLUDED.section,
				price_current = EXCLUDED.price_current,
				price_original = EXCLUDED.price_original,
				sale_tag = EXCLUDED.sale_tag,
				in_stock = EXCLUDED.in_stock,
				stock_count = EXCLUDED.stock_count,
				data = EXCLUDED.data`,
			prod.ID, time.Unix(prod.Timestamp, 0).UTC(), prod.URL, prod.Title, prod.Brand, section,
			prod.Price.Current, prod.Price.Original, prod.Price.SaleTag, prod.Stock.InStock, prod.Stock.Count, data,
		)
	}

	queued := b.Len()
	br := p.conn.SendBatch(ctx, b)
	upserted := 0
	for range queued {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			// The batch runs as one implicit transaction, so none of it landed.
			p.logger.Warn("postgres batch failed", "product_ids", ids, "error", err)
			return fmt.Errorf("upsert batch of %d: %w", queued, err)
		}
		upserted++
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	p.logger.Debug("postgres batch upserted", "rows", upserted)
	return nil
}

// Close flushes pending products and releases the pool.
func (p *Postgres) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := p.Flush(ctx)
	p.closePool()
	return err
}
