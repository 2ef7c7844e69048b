package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/service"
)

const (
	activityColumns = `id, user_id, rule_id, data, categoria, valor, status`
	rescueColumns   = `id, user_id, produto, valor_gtx, link_sugerido, data, status, ai_feedback`
)

// CreateActivity inserts an activity request. An empty ID is filled in and
// an empty status defaults to pending.
func (s *SQLiteStorage) CreateActivity(ctx context.Context, a *model.Activity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if a != nil && a.Status == "" {
		a.Status = model.StatusPending
	}
	if err := validateActivity(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.RuleID, a.Date, a.Category, a.Value, string(a.Status),
	)
	if err != nil {
		return translateError(err, "create activity")
	}
	return nil
}

// GetActivity retrieves an activity request by ID.
func (s *SQLiteStorage) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %s: %w", id, common.ErrNotFound)
	}
	return a, err
}

// ListActivities returns activity requests, newest first.
func (s *SQLiteStorage) ListActivities(ctx context.Context, filter service.RequestFilter) ([]model.Activity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := requestWhere(filter)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities`+where+` ORDER BY data DESC, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}

// SetActivityStatus changes the status of an activity request.
func (s *SQLiteStorage) SetActivityStatus(ctx context.Context, id string, status model.RequestStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE activities SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update activity status: %w", err)
	}
	return expectOneRow(res, "activity", id)
}

// CreateRescue inserts a rescue request. An empty ID is filled in and an
// empty status defaults to pending.
func (s *SQLiteStorage) CreateRescue(ctx context.Context, r *model.RescueRequest) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if r != nil && r.Status == "" {
		r.Status = model.StatusPending
	}
	if err := validateRescue(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rescues (`+rescueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Product, r.Value, r.SuggestedLink, r.Date, string(r.Status), r.Feedback,
	)
	if err != nil {
		return translateError(err, "create rescue")
	}
	return nil
}

// GetRescue retrieves a rescue request by ID.
func (s *SQLiteStorage) GetRescue(ctx context.Context, id string) (*model.RescueRequest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+rescueColumns+` FROM rescues WHERE id = ?`, id)
	r, err := scanRescue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rescue %s: %w", id, common.ErrNotFound)
	}
	return r, err
}

// ListRescues returns rescue requests, newest first.
func (s *SQLiteStorage) ListRescues(ctx context.Context, filter service.RequestFilter) ([]model.RescueRequest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := requestWhere(filter)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+rescueColumns+` FROM rescues`+where+` ORDER BY data DESC, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rescues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rescues []model.RescueRequest
	for rows.Next() {
		r, err := scanRescue(rows)
		if err != nil {
			return nil, err
		}
		rescues = append(rescues, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rescues: %w", err)
	}
	return rescues, nil
}

// SetRescueStatus changes the status of a rescue request.
func (s *SQLiteStorage) SetRescueStatus(ctx context.Context, id string, status model.RequestStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE rescues SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update rescue status: %w", err)
	}
	return expectOneRow(res, "rescue", id)
}

func requestWhere(filter service.RequestFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanActivity(row rowScanner) (*model.Activity, error) {
	var (
		a      model.Activity
		status string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.RuleID, &a.Date, &a.Category, &a.Value, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	a.Status = model.RequestStatus(status)
	return &a, nil
}

func scanRescue(row rowScanner) (*model.RescueRequest, error) {
	var (
		r      model.RescueRequest
		status string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Product, &r.Value, &r.SuggestedLink, &r.Date, &status, &r.Feedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rescue: %w", err)
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}
