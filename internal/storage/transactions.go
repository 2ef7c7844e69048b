package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/service"
)

const transactionColumns = `id, user_id, data, motivo, valor, tipo`

// CreateTransaction inserts a ledger entry. An empty ID is filled in.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.Date, txn.Reason, txn.Amount, string(txn.Type),
	)
	if err != nil {
		return translateError(err, "insert transaction")
	}
	return nil
}

// GetTransaction retrieves a single ledger entry by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransaction replaces every field of an existing ledger entry.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if err := validateString(txn.ID, "id"); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET user_id = ?, data = ?, motivo = ?, valor = ?, tipo = ?
		WHERE id = ?`,
		txn.UserID, txn.Date, txn.Reason, txn.Amount, string(txn.Type), txn.ID,
	)
	if err != nil {
		return translateError(err, "update transaction")
	}
	return expectOneRow(res, "transaction", txn.ID)
}

// DeleteTransaction removes a ledger entry.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction", id)
}

// ListTransactions returns ledger entries ordered by date, oldest first.
// Date bounds are inclusive.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, ErrInvalidDateRange
	}

	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StartDate != nil {
		where = append(where, "data >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, "data <= ?")
		args = append(args, *filter.EndDate)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY data ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// ListRawTransactionDates returns every ledger row's date column as stored.
func (s *SQLiteStorage) ListRawTransactionDates(ctx context.Context) ([]service.RawTransactionDate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `SELECT id, data FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []service.RawTransactionDate
	for rows.Next() {
		var raw service.RawTransactionDate
		if err := rows.Scan(&raw.ID, &raw.Date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction date: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction dates: %w", err)
	}
	return out, nil
}

// SetTransactionDate rewrites the date of a single ledger entry.
func (s *SQLiteStorage) SetTransactionDate(ctx context.Context, id string, d date.Date) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if d.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}

	res, err := s.q.ExecContext(ctx, `UPDATE transactions SET data = ? WHERE id = ?`, d, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction date: %w", err)
	}
	return expectOneRow(res, "transaction", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads one ledger row. Dates in a legacy layout are accepted
// so that the ledger stays readable before it has been repaired.
func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn     model.Transaction
		rawDate string
		rawType string
	)
	if err := row.Scan(&txn.ID, &txn.UserID, &rawDate, &txn.Reason, &txn.Amount, &rawType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	d, _, err := date.ParseLenient(rawDate)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	txn.Date = d
	txn.Type = model.TransactionType(rawType)
	return &txn, nil
}
