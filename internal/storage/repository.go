// Package storage implements the ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the ledger tables. It is safe for concurrent reads;
// writes are single-row and rely on SQLite's own row-level atomicity.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath,
// runs migrations and returns a ready repository. Foreign keys are enforced
// so transaction inserts cannot reference a missing category.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// whereClause translates a ListFilter into SQL. Every active field narrows
// the result; the same clause backs the page, the grouped sums and the count
// so the three reads never drift apart.
func whereClause(f core.ListFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Type != nil {
		conds = append(conds, "t.type = ?")
		args = append(args, string(*f.Type))
	}
	if f.From != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.To.UTC())
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Categories returns all categories ordered by kind, then name.
func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind FROM categories ORDER BY kind ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// TransactionPage returns one page of matching transactions, newest first
// (ties broken by id so the order is deterministic), each joined with its
// category.
func (r *SQLiteRepository) TransactionPage(ctx context.Context, f core.ListFilter, limit, offset int) ([]core.Transaction, error) {
	where, args := whereClause(f)
	query := `
		SELECT t.id, t.type, t.amount_cents, t.date, t.note, t.category_id,
		       c.id, c.name, c.kind
		FROM transactions t
		JOIN categories c ON c.id = t.category_id` + where + `
		ORDER BY t.date DESC, t.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var page []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, tx)
	}
	return page, rows.Err()
}

// SumsByType computes the grouped sum of amounts partitioned by type over
// rows matching the filter. Sums run on integer cents so they stay exact.
func (r *SQLiteRepository) SumsByType(ctx context.Context, f core.ListFilter) (map[core.TransactionType]core.Money, error) {
	where, args := whereClause(f)
	query := `SELECT t.type, SUM(t.amount_cents) FROM transactions t` + where + ` GROUP BY t.type`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	sums := make(map[core.TransactionType]core.Money)
	for rows.Next() {
		var kind core.TransactionType
		var cents int64
		if err := rows.Scan(&kind, &cents); err != nil {
			return nil, fmt.Errorf("scan sum: %w", err)
		}
		sums[kind] = core.Money{Cents: cents}
	}
	return sums, rows.Err()
}

// CountTransactions returns the number of rows matching the filter.
func (r *SQLiteRepository) CountTransactions(ctx context.Context, f core.ListFilter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// InsertTransaction persists a validated input and returns the stored row.
// A category id with no row fails the foreign key and surfaces as
// core.ErrCategoryNotFound.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var note sql.NullString
	if in.Note != nil {
		note = sql.NullString{String: *in.Note, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (type, amount_cents, date, note, category_id) VALUES (?, ?, ?, ?, ?)`,
		string(in.Type), in.Amount.Cents, in.Date.UTC(), note, in.CategoryID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Transaction{}, core.ErrCategoryNotFound
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"type", in.Type,
		"amount_cents", in.Amount.Cents,
		"category_id", in.CategoryID)

	return core.Transaction{
		ID:         id,
		Type:       in.Type,
		Amount:     in.Amount,
		Date:       in.Date.UTC(),
		Note:       in.Note,
		CategoryID: in.CategoryID,
	}, nil
}

// DeleteTransaction permanently removes a transaction. Returns
// core.ErrNotFound when the id has no row.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// GetTransaction fetches one transaction by id, joined with its category.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.type, t.amount_cents, t.date, t.note, t.category_id,
		       c.id, c.name, c.kind
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, err
	}
	return tx, nil
}

// PendingExport returns up to limit transactions not yet exported, oldest
// first, for the export worker's sweep.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.type, t.amount_cents, t.date, t.note, t.category_id,
		       c.id, c.name, c.kind
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.exported = 0
		ORDER BY t.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var pending []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, tx)
	}
	return pending, rows.Err()
}

// MarkExported flags a transaction as exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE transactions SET exported = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var cents int64
	var note sql.NullString
	var cat core.Category

	err := row.Scan(&tx.ID, &tx.Type, &cents, &tx.Date, &note, &tx.CategoryID,
		&cat.ID, &cat.Name, &cat.Kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Amount = core.Money{Cents: cents}
	if note.Valid {
		tx.Note = &note.String
	}
	tx.Category = &cat
	return tx, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
