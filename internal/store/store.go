package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/LdDl/conveyor-inspect/inspect"
)

// ErrRunNotFound is returned when run identifier is unknown
var ErrRunNotFound = errors.New("run not found")

// Store keeps summaries of inspection runs and their ledgers in SQLite
type Store struct {
	*sql.DB
}

// Run is a stored run header
type Run struct {
	RunID  uuid.UUID
	Source string
	Stats  inspect.Stats
	// Zero when no qualified item has been seen
	ReferenceSize float64
	CreatedAt     time.Time
}

// Open opens (or creates) database file and makes sure the schema exists
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open database '%s'", path)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			source            TEXT NOT NULL,
			frames            BIGINT NOT NULL,
			qualified         BIGINT NOT NULL,
			defective         BIGINT NOT NULL,
			reference_size    DOUBLE,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS counted_products (
			run_id            TEXT NOT NULL,
			track_id          BIGINT NOT NULL,
			class             TEXT NOT NULL,
			rotation_degrees  DOUBLE NOT NULL,
			scale_factor      DOUBLE NOT NULL,
			frame_index       BIGINT NOT NULL,
			PRIMARY KEY(run_id, track_id),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't create schema")
	}
	return &Store{db}, nil
}

// SaveSummary writes run header and its ledger in a single transaction
func (store *Store) SaveSummary(ctx context.Context, source string, summary inspect.Summary) error {
	tx, err := store.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	var referenceSize sql.NullFloat64
	if reference, ok := summary.Calibration.ReferenceSize(); ok {
		referenceSize = sql.NullFloat64{Float64: reference, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, frames, qualified, defective, reference_size) VALUES (?, ?, ?, ?, ?, ?)`,
		summary.RunID.String(), source, summary.Stats.Frames, summary.Stats.Qualified, summary.Stats.Defective, referenceSize,
	)
	if err != nil {
		return errors.Wrapf(err, "Can't insert run %s", summary.RunID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO counted_products (run_id, track_id, class, rotation_degrees, scale_factor, frame_index) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return errors.Wrap(err, "Can't prepare ledger insert")
	}
	defer stmt.Close()
	for _, product := range summary.Ledger {
		_, err = stmt.ExecContext(ctx,
			summary.RunID.String(), product.TrackID, product.Class.String(), product.RotationDegrees, product.ScaleFactor, product.FrameIndex,
		)
		if err != nil {
			return errors.Wrapf(err, "Can't insert product of track %d", product.TrackID)
		}
	}
	return errors.Wrap(tx.Commit(), "Can't commit run")
}

// LoadRun reads run header
func (store *Store) LoadRun(ctx context.Context, runID uuid.UUID) (Run, error) {
	run := Run{RunID: runID}
	var referenceSize sql.NullFloat64
	var createdAt int64
	err := store.QueryRowContext(ctx,
		`SELECT source, frames, qualified, defective, reference_size, CAST(strftime('%s', created_at) AS INTEGER) FROM runs WHERE run_id = ?`,
		runID.String(),
	).Scan(&run.Source, &run.Stats.Frames, &run.Stats.Qualified, &run.Stats.Defective, &referenceSize, &createdAt)
	if err == sql.ErrNoRows {
		return Run{}, errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "Can't read run %s", runID)
	}
	run.ReferenceSize = referenceSize.Float64
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return run, nil
}

// LoadLedger reads counted products of the run ordered by track identifier
func (store *Store) LoadLedger(ctx context.Context, runID uuid.UUID) ([]inspect.CountedProduct, error) {
	rows, err := store.QueryContext(ctx,
		`SELECT track_id, class, rotation_degrees, scale_factor, frame_index FROM counted_products WHERE run_id = ? ORDER BY track_id`,
		runID.String(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query ledger of run %s", runID)
	}
	defer rows.Close()

	ledger := make([]inspect.CountedProduct, 0)
	for rows.Next() {
		var product inspect.CountedProduct
		var className string
		if err := rows.Scan(&product.TrackID, &className, &product.RotationDegrees, &product.ScaleFactor, &product.FrameIndex); err != nil {
			return nil, errors.Wrap(err, "Can't scan ledger row")
		}
		product.Class, err = inspect.ParseShapeClass(className)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad ledger row of track %d", product.TrackID)
		}
		ledger = append(ledger, product)
	}
	return ledger, errors.Wrap(rows.Err(), "Can't iterate ledger")
}
