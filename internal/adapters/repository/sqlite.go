package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/internal/domain/pairing"
	"github.com/scalehouse/weighbridge/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout stores timestamps with all nine fractional digits. RFC3339Nano
// trims trailing zeros, and on variable-width text the lexicographic
// ORDER BY timestamp no longer matches chronological order ("...00.5Z" sorts
// after "...00.55Z"). Fixed width keeps the two orders identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteLedger implements Ledger on an embedded SQLite database.
//
// The database is configured with WAL mode for concurrent reads during
// writes, NORMAL synchronous mode, and a 5-second busy timeout. SQLite
// permits one writer at a time; the connection pool is pinned to a single
// connection so mutations serialize without SQLITE_BUSY surprises, which is
// also what gives Record its collision-free monotonic ids.
type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
}

// Option applies a configuration option to the SQLiteLedger.
type Option func(*SQLiteLedger)

// WithClock overrides the timestamp source. Tests use this to pin capture
// times.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteLedger) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens the ledger database at path. ":memory:" yields an
// ephemeral ledger. Idempotent: the schema applies with IF NOT EXISTS.
func Open(path string, opts ...Option) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	s := &SQLiteLedger{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record persists a new weighing and returns it with id and timestamp set.
func (s *SQLiteLedger) Record(ctx context.Context, truckNumber, transporter, product string, weight float64, kind model.Kind) (model.Weighing, error) {
	defer observe(time.Now())

	switch {
	case strings.TrimSpace(truckNumber) == "":
		return model.Weighing{}, fmt.Errorf("%w: empty truck number", ErrValidation)
	case weight < 0:
		return model.Weighing{}, fmt.Errorf("%w: negative weight %.2f", ErrValidation, weight)
	case !kind.Valid():
		return model.Weighing{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}

	w := model.Weighing{
		Timestamp:   s.now().UTC(),
		TruckNumber: truckNumber,
		Transporter: transporter,
		Product:     product,
		Weight:      weight,
		Kind:        kind,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO weighings (timestamp, truck_number, transporter, product, weight, kind)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		w.Timestamp.Format(timeLayout),
		w.TruckNumber,
		w.Transporter,
		w.Product,
		w.Weight,
		string(w.Kind),
	)
	if err != nil {
		metrics.RecordLedgerError()
		return model.Weighing{}, fmt.Errorf("record weighing: %w", err)
	}

	w.ID, err = res.LastInsertId()
	if err != nil {
		metrics.RecordLedgerError()
		return model.Weighing{}, fmt.Errorf("record weighing: %w", err)
	}

	metrics.RecordWeighingRecorded(string(kind))
	return w, nil
}

// Get returns the weighing with the given id.
func (s *SQLiteLedger) Get(ctx context.Context, id int64) (model.Weighing, error) {
	defer observe(time.Now())

	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	w, err := scanWeighing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Weighing{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		metrics.RecordLedgerError()
		return model.Weighing{}, fmt.Errorf("get weighing %d: %w", id, err)
	}
	return w, nil
}

// Recent returns up to limit weighings, newest first.
func (s *SQLiteLedger) Recent(ctx context.Context, limit int) ([]model.Weighing, error) {
	defer observe(time.Now())

	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, selectColumns+` ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// Unsubmitted returns up to limit unsent weighings, oldest first.
func (s *SQLiteLedger) Unsubmitted(ctx context.Context, limit int) ([]model.Weighing, error) {
	defer observe(time.Now())

	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, selectColumns+` WHERE submitted = 0 ORDER BY timestamp ASC, id ASC LIMIT ?`, limit)
}

// MarkSubmitted records a successful SAP submission. The guard and the update
// run in one transaction so concurrent retries settle on a single document.
func (s *SQLiteLedger) MarkSubmitted(ctx context.Context, id int64, sapDocument string) error {
	defer observe(time.Now())

	if strings.TrimSpace(sapDocument) == "" {
		return fmt.Errorf("%w: empty sap document", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("mark submitted %d: %w", id, err)
	}
	defer tx.Rollback() // no-op once committed

	var (
		submitted int
		current   sql.NullString
	)
	err = tx.QueryRowContext(ctx, `SELECT submitted, sap_document FROM weighings WHERE id = ?`, id).
		Scan(&submitted, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("mark submitted %d: %w", id, err)
	}

	if submitted == 1 {
		if current.String == sapDocument {
			return nil // idempotent re-mark
		}
		return fmt.Errorf("%w: id %d already carries document %s", ErrAlreadySubmitted, id, current.String)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE weighings SET submitted = 1, sap_document = ? WHERE id = ?
	`, sapDocument, id); err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("mark submitted %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("mark submitted %d: %w", id, err)
	}
	return nil
}

// UpdateNotes mutates only the notes column.
func (s *SQLiteLedger) UpdateNotes(ctx context.Context, id int64, notes string) error {
	defer observe(time.Now())

	res, err := s.db.ExecContext(ctx, `UPDATE weighings SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("update notes %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.RecordLedgerError()
		return fmt.Errorf("update notes %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// PairFor derives the most recent entry/exit pair for the truck.
func (s *SQLiteLedger) PairFor(ctx context.Context, truckNumber string) (model.Pair, error) {
	defer observe(time.Now())

	rows, err := s.query(ctx, selectColumns+` WHERE truck_number = ? ORDER BY timestamp ASC, id ASC`, truckNumber)
	if err != nil {
		return model.Pair{}, err
	}

	p, ok := pairing.MatchTruck(rows, truckNumber)
	if !ok {
		return model.Pair{}, fmt.Errorf("%w: no entry for truck %s", ErrNotFound, truckNumber)
	}
	return p, nil
}

const selectColumns = `
	SELECT id, timestamp, truck_number, transporter, product, weight, kind, sap_document, submitted, notes
	FROM weighings`

func (s *SQLiteLedger) query(ctx context.Context, q string, args ...any) ([]model.Weighing, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("query weighings: %w", err)
	}
	defer rows.Close()

	var out []model.Weighing
	for rows.Next() {
		w, err := scanWeighing(rows)
		if err != nil {
			metrics.RecordLedgerError()
			return nil, fmt.Errorf("query weighings: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("query weighings: %w", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWeighing(sc scanner) (model.Weighing, error) {
	var (
		w         model.Weighing
		ts        string
		kind      string
		doc       sql.NullString
		submitted int
	)
	if err := sc.Scan(&w.ID, &ts, &w.TruckNumber, &w.Transporter, &w.Product, &w.Weight, &kind, &doc, &submitted, &w.Notes); err != nil {
		return model.Weighing{}, err
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return model.Weighing{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	w.Timestamp = parsed
	w.Kind = model.Kind(kind)
	w.SAPDocument = doc.String
	w.Submitted = submitted == 1
	return w, nil
}

func observe(start time.Time) {
	metrics.RecordLedgerLatency(float64(time.Since(start).Microseconds()) / 1e3)
}
