package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

const profileColumns = `id, nome, cargo, foto_url, saldo_atual, role, data_nascimento, data_contratacao`

// GetProfile retrieves a profile by ID.
func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, common.ErrNotFound)
	}
	return p, err
}

// ListProfiles returns all profiles ordered by name.
func (s *SQLiteStorage) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY nome, id`)
}

// ListProfilesByRole returns the profiles holding a role.
func (s *SQLiteStorage) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles WHERE role = ? ORDER BY nome, id`, string(role))
}

func (s *SQLiteStorage) queryProfiles(ctx context.Context, query string, args ...any) ([]model.Profile, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

// SaveProfile inserts or updates a profile. The cached balance is never
// written here: new profiles start at zero and existing balances are only
// changed through SetBalance.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, p *model.Profile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProfile(p); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO profiles (id, nome, cargo, foto_url, role, data_nascimento, data_contratacao)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nome = excluded.nome,
			cargo = excluded.cargo,
			foto_url = excluded.foto_url,
			role = excluded.role,
			data_nascimento = excluded.data_nascimento,
			data_contratacao = excluded.data_contratacao`,
		p.ID, p.Name, p.JobTitle, p.PhotoURL, string(p.Role), p.BirthDate, p.HireDate,
	)
	if err != nil {
		return translateError(err, "save profile")
	}
	return nil
}

// DeleteProfile removes a profile. Profiles that still own ledger entries or
// requests cannot be removed.
func (s *SQLiteStorage) DeleteProfile(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return translateError(err, "delete profile")
	}
	return expectOneRow(res, "profile", id)
}

// GetBalance returns the cached balance of a user.
func (s *SQLiteStorage) GetBalance(ctx context.Context, userID string) (money.Points, error) {
	if err := validateContext(ctx); err != nil {
		return money.Points{}, err
	}

	var balance money.Points
	err := s.q.QueryRowContext(ctx, `SELECT saldo_atual FROM profiles WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return money.Points{}, fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return money.Points{}, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// SetBalance overwrites the cached balance of a user.
func (s *SQLiteStorage) SetBalance(ctx context.Context, userID string, balance money.Points) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE profiles SET saldo_atual = ? WHERE id = ?`, balance, userID)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return expectOneRow(res, "profile", userID)
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p    model.Profile
		role string
	)
	err := row.Scan(&p.ID, &p.Name, &p.JobTitle, &p.PhotoURL, &p.Balance, &role, &p.BirthDate, &p.HireDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	p.Role = model.Role(role)
	return &p, nil
}
