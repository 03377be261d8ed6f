package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"donation_backend/internal/domain"
)

type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode = WAL;")
	db.Exec("PRAGMA busy_timeout = 5000;")

	r := &SQLiteRepo{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepo) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS transactions(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			qr_string TEXT NOT NULL,
			amount INTEGER NOT NULL,
			status TEXT NOT NULL,
			expired_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			paid_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tx_status ON transactions(status);
	`
	_, err := r.db.Exec(schema)
	return err
}

// InsertTransaction records a freshly created QR. A second insert for the
// same transaction id is ignored.
func (r *SQLiteRepo) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	q := `
		INSERT INTO transactions(
			transaction_id,
			qr_string,
			amount,
			status,
			expired_at,
			created_at,
			updated_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO NOTHING;
	`

	now := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = domain.StatusPending
	}

	_, err := r.db.ExecContext(
		ctx, q,
		t.TransactionID,
		t.QRString,
		t.Amount,
		string(t.Status),
		formatTime(t.ExpiredAt),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.UpdatedAt.Format(time.RFC3339Nano),
	)

	return err
}

func (r *SQLiteRepo) GetByTransactionID(ctx context.Context, id string) (*domain.Transaction, error) {
	q := selectTx + ` WHERE transaction_id = ?`

	row := r.db.QueryRowContext(ctx, q, id)
	t, err := scanTx(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// UpdateStatus stores the latest gateway status of a transaction. It
// reports true only for the call that first moved the row to paid.
func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id string, status domain.TxStatus) (bool, error) {
	now := r.now().UTC().Format(time.RFC3339Nano)

	if status == domain.StatusPaid {
		res, err := r.db.ExecContext(ctx,
			`UPDATE transactions SET status = ?, paid_at = ?, updated_at = ? WHERE transaction_id = ? AND status <> ?`,
			string(status), now, now, id, string(domain.StatusPaid),
		)
		if err != nil {
			return false, err
		}
		if aff, _ := res.RowsAffected(); aff > 0 {
			return true, nil
		}
		if _, err := r.GetByTransactionID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	// paid is final
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = ? WHERE transaction_id = ? AND status <> ?`,
		string(status), now, id, string(domain.StatusPaid),
	)
	if err != nil {
		return false, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		if _, err := r.GetByTransactionID(ctx, id); err != nil {
			return false, err
		}
	}
	return false, nil
}

type TxFilter struct {
	TransactionID string
	Status        domain.TxStatus
}

func (r *SQLiteRepo) ListTransactions(ctx context.Context, f TxFilter, limit, offset int) ([]domain.Transaction, error) {
	q := selectTx + ` WHERE 1 = 1`
	args := []any{}

	if f.TransactionID != "" {
		q += " AND transaction_id = ?"
		args = append(args, f.TransactionID)
	}

	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, string(f.Status))
	}

	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}

		res = append(res, *t)
	}

	return res, rows.Err()
}

const selectTx = `
	SELECT
		id,
		transaction_id,
		qr_string,
		amount,
		status,
		expired_at,
		created_at,
		updated_at,
		paid_at
	FROM transactions`

func scanTx(scanner interface {
	Scan(dest ...any) error
}) (*domain.Transaction, error) {
	var t domain.Transaction
	var status string
	var createdStr, updatedStr string
	var expiredStr, paidStr *string

	if err := scanner.Scan(
		&t.ID,
		&t.TransactionID,
		&t.QRString,
		&t.Amount,
		&status,
		&expiredStr,
		&createdStr,
		&updatedStr,
		&paidStr,
	); err != nil {
		return nil, err
	}

	t.Status = domain.TxStatus(status)

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, fmt.Errorf("parse created time: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
		return nil, fmt.Errorf("parse updated time: %w", err)
	}
	if t.ExpiredAt, err = parseNullTime(expiredStr); err != nil {
		return nil, fmt.Errorf("parse expired time: %w", err)
	}
	if t.PaidAt, err = parseNullTime(paidStr); err != nil {
		return nil, fmt.Errorf("parse paid time: %w", err)
	}

	return &t, nil
}

func formatTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
