package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/zoning"
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
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	zoning_path TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS deals (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	parcel_id      TEXT NOT NULL,
	address        TEXT NOT NULL,
	price          REAL NOT NULL,
	lot_sqft       REAL NOT NULL,
	raw_zone       TEXT NOT NULL,
	base_zone      TEXT NOT NULL,
	match_tier     TEXT NOT NULL,
	sqft_per_unit  REAL NOT NULL,
	max_units      REAL NOT NULL,
	sb9_override   INTEGER NOT NULL DEFAULT 0,
	density_defaulted INTEGER NOT NULL DEFAULT 0,
	price_per_unit REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_deals_run_id ON deals(run_id);
CREATE INDEX IF NOT EXISTS idx_deals_ppu ON deals(run_id, price_per_unit);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, sourcePath, zoningPath string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, zoning_path, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourcePath, zoningPath, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:         id,
		SourcePath: sourcePath,
		ZoningPath: zoningPath,
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary model.BatchSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, zoning_path, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, zoning_path, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) InsertDeals(ctx context.Context, runID string, deals []model.EnrichedParcel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin deals tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deals (id, run_id, parcel_id, address, price, lot_sqft, raw_zone,
			base_zone, match_tier, sqft_per_unit, max_units, sb9_override,
			density_defaulted, price_per_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare deal insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, d := range deals {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, d.ParcelID, d.Address, d.Price, d.LotSqft,
			d.RawZone, string(d.BaseZone), string(d.Tier), d.SqftPerUnit, d.MaxUnits,
			boolToInt(d.OverrideApplied), boolToInt(d.DensityDefaulted), d.PricePerUnit,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert deal %s", d.ParcelID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit deals")
}

// ListDeals returns a run's deals ordered by ascending price-per-unit.
// Filter constraints compose as intersection.
func (s *SQLiteStore) ListDeals(ctx context.Context, runID string, filter DealFilter) ([]model.EnrichedParcel, error) {
	query := `SELECT parcel_id, address, price, lot_sqft, raw_zone, base_zone, match_tier,
		sqft_per_unit, max_units, sb9_override, density_defaulted, price_per_unit
		FROM deals WHERE run_id = ?`
	args := []any{runID}

	if filter.MaxPricePerUnit > 0 {
		query += ` AND price_per_unit <= ?`
		args = append(args, filter.MaxPricePerUnit)
	}
	if len(filter.Zones) > 0 {
		query += ` AND base_zone IN (?` + strings.Repeat(",?", len(filter.Zones)-1) + `)`
		for _, z := range filter.Zones {
			args = append(args, string(z))
		}
	}

	query += ` ORDER BY price_per_unit ASC, parcel_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deals")
	}
	defer rows.Close()

	var deals []model.EnrichedParcel
	for rows.Next() {
		var d model.EnrichedParcel
		var base, tier string
		var override, defaulted int
		if err := rows.Scan(
			&d.ParcelID, &d.Address, &d.Price, &d.LotSqft, &d.RawZone, &base, &tier,
			&d.SqftPerUnit, &d.MaxUnits, &override, &defaulted, &d.PricePerUnit,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal")
		}
		d.BaseZone = zoning.BaseCode(base)
		d.Tier = zoning.Tier(tier)
		d.OverrideApplied = override != 0
		d.DensityDefaulted = defaulted != 0
		deals = append(deals, d)
	}
	return deals, eris.Wrap(rows.Err(), "sqlite: list deals iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.SourcePath, &r.ZoningPath, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		if err := json.Unmarshal([]byte(summaryJSON.String), &r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
