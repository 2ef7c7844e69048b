package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

const financialColumns = `id, mes, ano, geracao_caixa, valor_cotacao`

// ListFinancialRecords returns every monthly record in chronological order.
func (s *SQLiteStorage) ListFinancialRecords(ctx context.Context) ([]model.FinancialRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `SELECT `+financialColumns+` FROM financial ORDER BY ano ASC, CAST(mes AS INTEGER) ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query financial records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FinancialRecord
	for rows.Next() {
		r, err := scanFinancialRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating financial records: %w", err)
	}
	return records, nil
}

// GetFinancialRecord retrieves a record by ID.
func (s *SQLiteStorage) GetFinancialRecord(ctx context.Context, id string) (*model.FinancialRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+financialColumns+` FROM financial WHERE id = ?`, id)
	r, err := scanFinancialRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("financial record %s: %w", id, common.ErrNotFound)
	}
	return r, err
}

// GetFinancialRecordByPeriod retrieves the record for a month.
func (s *SQLiteStorage) GetFinancialRecordByPeriod(ctx context.Context, p date.Period) (*model.FinancialRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx,
		`SELECT `+financialColumns+` FROM financial WHERE CAST(mes AS INTEGER) = ? AND ano = ?`,
		int(p.Month), p.Year,
	)
	r, err := scanFinancialRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("financial record %s: %w", p, common.ErrNotFound)
	}
	return r, err
}

// UpsertFinancialRecord stores the cash generated in a month. A record that
// already exists for the period keeps its ID and is updated in place; the
// record's ID and Quotation are refreshed from the stored row.
func (s *SQLiteStorage) UpsertFinancialRecord(ctx context.Context, record *model.FinancialRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFinancialRecord(record); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	quotation := record.Quotation
	if quotation.IsZero() {
		quotation = money.One
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO financial (`+financialColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(mes, ano) DO UPDATE SET geracao_caixa = excluded.geracao_caixa`,
		record.ID, record.Period.MonthString(), record.Period.Year, record.CashGenerated, quotation,
	)
	if err != nil {
		return translateError(err, "save financial record")
	}

	stored, err := s.GetFinancialRecordByPeriod(ctx, record.Period)
	if err != nil {
		return err
	}
	*record = *stored
	return nil
}

// SetQuotation writes the quotation of a record.
func (s *SQLiteStorage) SetQuotation(ctx context.Context, id string, quotation money.Money) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE financial SET valor_cotacao = ? WHERE id = ?`, quotation, id)
	if err != nil {
		return fmt.Errorf("failed to set quotation: %w", err)
	}
	return expectOneRow(res, "financial record", id)
}

// DeleteFinancialRecord removes a monthly record.
func (s *SQLiteStorage) DeleteFinancialRecord(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM financial WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete financial record: %w", err)
	}
	return expectOneRow(res, "financial record", id)
}

func scanFinancialRecord(row rowScanner) (*model.FinancialRecord, error) {
	var (
		r     model.FinancialRecord
		month string
		year  int
	)
	if err := row.Scan(&r.ID, &month, &year, &r.CashGenerated, &r.Quotation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan financial record: %w", err)
	}
	p, err := date.ParsePeriod(month, year)
	if err != nil {
		return nil, fmt.Errorf("financial record %s: %w", r.ID, err)
	}
	r.Period = p
	return &r, nil
}
