package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/appraisal-cli/internal/db"
	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	// The database may still be coming up when the CLI starts.
	pingCfg := resilience.DefaultRetryConfig()
	pingCfg.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := resilience.Do(ctx, pingCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool for subsystems that need direct query
// access (e.g., bulk comp imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	subject    JSONB NOT NULL,
	time_adj   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS comp_pools (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	comps      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_weights (
	order_id    TEXT PRIMARY KEY REFERENCES orders(id),
	weights     JSONB NOT NULL,
	constraints JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS selections (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	selection  JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hilo_states (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS adjustment_runs (
	run_id     TEXT PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id),
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bundles (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	bundle     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_adjustment_runs_order_id ON adjustment_runs(order_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comp_archive (
	id                TEXT NOT NULL,
	order_id          TEXT NOT NULL,
	address           TEXT,
	sale_type         TEXT NOT NULL,
	sale_price        DOUBLE PRECISION NOT NULL,
	sale_date         TEXT,
	distance_miles    DOUBLE PRECISION,
	months_since_sale DOUBLE PRECISION,
	gla               DOUBLE PRECISION,
	beds              DOUBLE PRECISION,
	baths             DOUBLE PRECISION,
	garage_bays       DOUBLE PRECISION,
	lot_sqft          DOUBLE PRECISION,
	year_built        INTEGER,
	quality           INTEGER,
	condition         INTEGER,
	view              INTEGER,
	pool              BOOLEAN,
	lat               DOUBLE PRECISION,
	lon               DOUBLE PRECISION,
	PRIMARY KEY (order_id, id)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, subject model.Subject) (*model.Order, error) {
	id := subject.OrderID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal subject")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (id, subject, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, subjectJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert order")
	}

	return &model.Order{ID: id, Subject: subject, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	var subjectJSON []byte
	var taNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, subject, time_adj, created_at, updated_at FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &subjectJSON, &taNull, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "order %s", orderID)
		}
		return nil, eris.Wrapf(err, "postgres: get order %s", orderID)
	}

	if err := json.Unmarshal(subjectJSON, &o.Subject); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal subject")
	}
	if taNull != nil {
		o.TimeAdj = &model.TimeAdjustments{}
		if err := json.Unmarshal(*taNull, o.TimeAdj); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal time adjustments")
		}
	}
	return &o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, time_adj, created_at, updated_at FROM orders
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list orders")
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var subjectJSON []byte
		var taNull *[]byte
		if err := rows.Scan(&o.ID, &subjectJSON, &taNull, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan order")
		}
		if err := json.Unmarshal(subjectJSON, &o.Subject); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal subject")
		}
		if taNull != nil {
			o.TimeAdj = &model.TimeAdjustments{}
			if err := json.Unmarshal(*taNull, o.TimeAdj); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal time adjustments")
			}
		}
		orders = append(orders, o)
	}
	return orders, eris.Wrap(rows.Err(), "postgres: list orders iterate")
}

func (s *PostgresStore) SaveTimeAdjustments(ctx context.Context, orderID string, ta model.TimeAdjustments) error {
	taJSON, err := json.Marshal(ta)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal time adjustments")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET time_adj = $1, updated_at = $2 WHERE id = $3`,
		taJSON, time.Now().UTC(), orderID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save time adjustments %s", orderID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "order %s", orderID)
	}
	return nil
}

func (s *PostgresStore) SaveComps(ctx context.Context, orderID string, comps []model.CompProperty) error {
	return s.upsertJSON(ctx, "comp_pools", "comps", orderID, comps)
}

func (s *PostgresStore) GetComps(ctx context.Context, orderID string) ([]model.CompProperty, error) {
	var comps []model.CompProperty
	if err := s.getJSON(ctx, "comp_pools", "comps", orderID, &comps); err != nil {
		return nil, err
	}
	return comps, nil
}

func (s *PostgresStore) SaveWeights(ctx context.Context, orderID string, w model.WeightSet, c model.ConstraintSet) error {
	wJSON, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal weights")
	}
	cJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal constraints")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO order_weights (order_id, weights, constraints, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (order_id) DO UPDATE SET weights = $2, constraints = $3, updated_at = $4`,
		orderID, wJSON, cJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save weights %s", orderID)
}

func (s *PostgresStore) GetWeights(ctx context.Context, orderID string) (model.WeightSet, model.ConstraintSet, error) {
	var w model.WeightSet
	var c model.ConstraintSet
	var wJSON, cJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT weights, constraints FROM order_weights WHERE order_id = $1`,
		orderID,
	).Scan(&wJSON, &cJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, c, eris.Wrapf(ErrNotFound, "weights for order %s", orderID)
		}
		return w, c, eris.Wrapf(err, "postgres: get weights %s", orderID)
	}

	if err := json.Unmarshal(wJSON, &w); err != nil {
		return w, c, eris.Wrap(err, "postgres: unmarshal weights")
	}
	if err := json.Unmarshal(cJSON, &c); err != nil {
		return w, c, eris.Wrap(err, "postgres: unmarshal constraints")
	}
	return w, c, nil
}

func (s *PostgresStore) GetSelection(ctx context.Context, orderID string) (model.CompSelection, error) {
	var sel model.CompSelection
	err := s.getJSON(ctx, "selections", "selection", orderID, &sel)
	if eris.Is(err, ErrNotFound) {
		return model.NewCompSelection(), nil
	}
	if err != nil {
		return sel, err
	}
	sel.Normalize()
	return sel, nil
}

func (s *PostgresStore) SaveSelection(ctx context.Context, orderID string, sel model.CompSelection) error {
	return s.upsertJSON(ctx, "selections", "selection", orderID, sel)
}

func (s *PostgresStore) SaveHiLoState(ctx context.Context, orderID string, st model.HiLoState) error {
	return s.upsertJSON(ctx, "hilo_states", "state", orderID, st)
}

func (s *PostgresStore) GetHiLoState(ctx context.Context, orderID string) (*model.HiLoState, error) {
	var st model.HiLoState
	if err := s.getJSON(ctx, "hilo_states", "state", orderID, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) SaveAdjustmentRun(ctx context.Context, orderID string, run *model.AdjustmentRunResult) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO adjustment_runs (run_id, order_id, result, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO UPDATE SET result = $3`,
		run.RunID, orderID, runJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save run %s", run.RunID)
}

func (s *PostgresStore) GetAdjustmentRun(ctx context.Context, runID string) (*model.AdjustmentRunResult, error) {
	return s.scanRunRow(ctx,
		`SELECT result FROM adjustment_runs WHERE run_id = $1`,
		runID,
	)
}

func (s *PostgresStore) LatestAdjustmentRun(ctx context.Context, orderID string) (*model.AdjustmentRunResult, error) {
	return s.scanRunRow(ctx,
		`SELECT result FROM adjustment_runs WHERE order_id = $1 ORDER BY created_at DESC, run_id DESC LIMIT 1`,
		orderID,
	)
}

func (s *PostgresStore) SaveBundle(ctx context.Context, bundle *model.AdjustmentsBundle) error {
	return s.upsertJSON(ctx, "bundles", "bundle", bundle.OrderID, bundle)
}

func (s *PostgresStore) GetBundle(ctx context.Context, orderID string) (*model.AdjustmentsBundle, error) {
	var b model.AdjustmentsBundle
	if err := s.getJSON(ctx, "bundles", "bundle", orderID, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// helpers

func (s *PostgresStore) upsertJSON(ctx context.Context, table, column, orderID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s", column)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+table+` (order_id, `+column+`, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (order_id) DO UPDATE SET `+column+` = $2, updated_at = $3`,
		orderID, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert %s %s", table, orderID)
}

func (s *PostgresStore) getJSON(ctx context.Context, table, column, orderID string, v any) error {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT `+column+` FROM `+table+` WHERE order_id = $1`,
		orderID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "%s for order %s", column, orderID)
		}
		return eris.Wrapf(err, "postgres: get %s %s", table, orderID)
	}
	return eris.Wrapf(json.Unmarshal(data, v), "postgres: unmarshal %s", column)
}

func (s *PostgresStore) scanRunRow(ctx context.Context, query, arg string) (*model.AdjustmentRunResult, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "run %s", arg)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", arg)
	}

	var run model.AdjustmentRunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run")
	}
	return &run, nil
}
