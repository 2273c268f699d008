package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/insightdelivered/statement-insights/internal/models"
)

//go:embed schema.sql
var schema string

// ErrBatchNotFound is returned when a batch ID does not exist.
var ErrBatchNotFound = errors.New("batch not found")

// Store persists analyzed transaction batches in SQLite.
type Store struct {
	*sql.DB
}

// Batch describes one saved analysis run.
type Batch struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
	Anomalies int       `json:"anomalies"`
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db}, nil
}

// Init creates tables if they don't exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// SaveBatch stores txns under a new batch ID and returns it.
func (s *Store) SaveBatch(ctx context.Context, source string, txns []models.Transaction) (string, error) {
	batchID := uuid.NewString()
	anomalies := 0
	for _, t := range txns {
		if t.IsAnomaly {
			anomalies++
		}
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batches (id, source, created_at, txn_count, anomalies)
		VALUES (?, ?, ?, ?, ?)
	`, batchID, source, time.Now().UTC().Format(time.RFC3339), len(txns), anomalies); err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			batch_id, position, id, date, payee, amount, category, description, is_anomaly
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txns {
		rec := ToRecord(t)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		var date sql.NullString
		if rec.Date != nil {
			date = sql.NullString{String: *rec.Date, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, batchID, i, rec.ID, date, rec.Payee, rec.Amount,
			rec.Category, rec.Description, rec.IsAnomaly); err != nil {
			return "", fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit batch: %w", err)
	}
	return batchID, nil
}

// LoadBatch returns the transactions of a batch in their saved order.
func (s *Store) LoadBatch(ctx context.Context, batchID string) ([]models.Transaction, error) {
	var exists int
	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE id = ?`, batchID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	rows, err := s.QueryContext(ctx, `
		SELECT id, date, payee, amount, category, description, is_anomaly
		FROM transactions
		WHERE batch_id = ?
		ORDER BY position
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		var rec Record
		var date sql.NullString
		if err := rows.Scan(&rec.ID, &date, &rec.Payee, &rec.Amount, &rec.Category,
			&rec.Description, &rec.IsAnomaly); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if date.Valid {
			rec.Date = &date.String
		}
		t, err := rec.Transaction()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", rec.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ListBatches returns saved batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, source, created_at, txn_count, anomalies
		FROM batches
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var created string
		if err := rows.Scan(&b.ID, &b.Source, &created, &b.Count, &b.Anomalies); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse batch time: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
