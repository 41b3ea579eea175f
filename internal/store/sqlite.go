package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	time_adj   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS comp_pools (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	comps      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS order_weights (
	order_id    TEXT PRIMARY KEY REFERENCES orders(id),
	weights     TEXT NOT NULL,
	constraints TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS selections (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	selection  TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hilo_states (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	state      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS adjustment_runs (
	run_id     TEXT PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id),
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS bundles (
	order_id   TEXT PRIMARY KEY REFERENCES orders(id),
	bundle     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_adjustment_runs_order_id ON adjustment_runs(order_id, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateOrder(ctx context.Context, subject model.Subject) (*model.Order, error) {
	id := subject.OrderID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal subject")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, subject, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(subjectJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert order")
	}

	return &model.Order{ID: id, Subject: subject, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, time_adj, created_at, updated_at FROM orders WHERE id = ?`,
		orderID,
	)

	var o model.Order
	var subjectJSON string
	var taJSON sql.NullString
	err := row.Scan(&o.ID, &subjectJSON, &taJSON, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "order %s", orderID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get order %s", orderID)
	}

	if err := json.Unmarshal([]byte(subjectJSON), &o.Subject); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal subject")
	}
	if taJSON.Valid {
		o.TimeAdj = &model.TimeAdjustments{}
		if err := json.Unmarshal([]byte(taJSON.String), o.TimeAdj); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal time adjustments")
		}
	}
	return &o, nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	query := `SELECT id, subject, time_adj, created_at, updated_at FROM orders ORDER BY created_at DESC`
	var args []any

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list orders")
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var subjectJSON string
		var taJSON sql.NullString
		if err := rows.Scan(&o.ID, &subjectJSON, &taJSON, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan order")
		}
		if err := json.Unmarshal([]byte(subjectJSON), &o.Subject); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal subject")
		}
		if taJSON.Valid {
			o.TimeAdj = &model.TimeAdjustments{}
			if err := json.Unmarshal([]byte(taJSON.String), o.TimeAdj); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal time adjustments")
			}
		}
		orders = append(orders, o)
	}
	return orders, eris.Wrap(rows.Err(), "sqlite: list orders iterate")
}

func (s *SQLiteStore) SaveTimeAdjustments(ctx context.Context, orderID string, ta model.TimeAdjustments) error {
	taJSON, err := json.Marshal(ta)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal time adjustments")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET time_adj = ?, updated_at = ? WHERE id = ?`,
		string(taJSON), time.Now().UTC(), orderID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save time adjustments %s", orderID)
	}
	return checkRowsAffected(res, "order", orderID)
}

func (s *SQLiteStore) SaveComps(ctx context.Context, orderID string, comps []model.CompProperty) error {
	return s.upsertJSON(ctx, "comp_pools", "comps", orderID, comps)
}

func (s *SQLiteStore) GetComps(ctx context.Context, orderID string) ([]model.CompProperty, error) {
	var comps []model.CompProperty
	if err := s.getJSON(ctx, "comp_pools", "comps", orderID, &comps); err != nil {
		return nil, err
	}
	return comps, nil
}

func (s *SQLiteStore) SaveWeights(ctx context.Context, orderID string, w model.WeightSet, c model.ConstraintSet) error {
	wJSON, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal weights")
	}
	cJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal constraints")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO order_weights (order_id, weights, constraints, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (order_id) DO UPDATE SET weights = excluded.weights, constraints = excluded.constraints, updated_at = excluded.updated_at`,
		orderID, string(wJSON), string(cJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save weights %s", orderID)
}

func (s *SQLiteStore) GetWeights(ctx context.Context, orderID string) (model.WeightSet, model.ConstraintSet, error) {
	var w model.WeightSet
	var c model.ConstraintSet

	row := s.db.QueryRowContext(ctx,
		`SELECT weights, constraints FROM order_weights WHERE order_id = ?`,
		orderID,
	)
	var wJSON, cJSON string
	err := row.Scan(&wJSON, &cJSON)
	if err == sql.ErrNoRows {
		return w, c, eris.Wrapf(ErrNotFound, "weights for order %s", orderID)
	}
	if err != nil {
		return w, c, eris.Wrapf(err, "sqlite: get weights %s", orderID)
	}

	if err := json.Unmarshal([]byte(wJSON), &w); err != nil {
		return w, c, eris.Wrap(err, "sqlite: unmarshal weights")
	}
	if err := json.Unmarshal([]byte(cJSON), &c); err != nil {
		return w, c, eris.Wrap(err, "sqlite: unmarshal constraints")
	}
	return w, c, nil
}

func (s *SQLiteStore) GetSelection(ctx context.Context, orderID string) (model.CompSelection, error) {
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

func (s *SQLiteStore) SaveSelection(ctx context.Context, orderID string, sel model.CompSelection) error {
	return s.upsertJSON(ctx, "selections", "selection", orderID, sel)
}

func (s *SQLiteStore) SaveHiLoState(ctx context.Context, orderID string, st model.HiLoState) error {
	return s.upsertJSON(ctx, "hilo_states", "state", orderID, st)
}

func (s *SQLiteStore) GetHiLoState(ctx context.Context, orderID string) (*model.HiLoState, error) {
	var st model.HiLoState
	if err := s.getJSON(ctx, "hilo_states", "state", orderID, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) SaveAdjustmentRun(ctx context.Context, orderID string, run *model.AdjustmentRunResult) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO adjustment_runs (run_id, order_id, result, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id) DO UPDATE SET result = excluded.result`,
		run.RunID, orderID, string(runJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.RunID)
}

func (s *SQLiteStore) GetAdjustmentRun(ctx context.Context, runID string) (*model.AdjustmentRunResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM adjustment_runs WHERE run_id = ?`,
		runID,
	)
	return scanRun(row, runID)
}

func (s *SQLiteStore) LatestAdjustmentRun(ctx context.Context, orderID string) (*model.AdjustmentRunResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM adjustment_runs WHERE order_id = ? ORDER BY created_at DESC, run_id DESC LIMIT 1`,
		orderID,
	)
	return scanRun(row, orderID)
}

func (s *SQLiteStore) SaveBundle(ctx context.Context, bundle *model.AdjustmentsBundle) error {
	return s.upsertJSON(ctx, "bundles", "bundle", bundle.OrderID, bundle)
}

func (s *SQLiteStore) GetBundle(ctx context.Context, orderID string) (*model.AdjustmentsBundle, error) {
	var b model.AdjustmentsBundle
	if err := s.getJSON(ctx, "bundles", "bundle", orderID, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// helpers

// upsertJSON stores one JSON blob keyed by order id. Table and column names
// come from the migration above, never from callers.
func (s *SQLiteStore) upsertJSON(ctx context.Context, table, column, orderID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s", column)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (order_id, `+column+`, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (order_id) DO UPDATE SET `+column+` = excluded.`+column+`, updated_at = excluded.updated_at`,
		orderID, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert %s %s", table, orderID)
}

func (s *SQLiteStore) getJSON(ctx context.Context, table, column, orderID string, v any) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM `+table+` WHERE order_id = ?`,
		orderID,
	)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "%s for order %s", column, orderID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get %s %s", table, orderID)
	}
	return eris.Wrapf(json.Unmarshal([]byte(data), v), "sqlite: unmarshal %s", column)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable, id string) (*model.AdjustmentRunResult, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan run %s", id)
	}

	var run model.AdjustmentRunResult
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run")
	}
	return &run, nil
}
