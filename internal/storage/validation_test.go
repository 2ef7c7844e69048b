package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx) //nolint:staticcheck // nil context is the case under test
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "u1", wantErr: false},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: "  \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "id")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		profile *model.Profile
		wantErr error
		name    string
	}{
		{name: "valid", profile: &model.Profile{ID: "u1", Name: "Ana", Role: model.RoleUser}},
		{name: "nil", profile: nil, wantErr: ErrNilParameter},
		{name: "missing id", profile: &model.Profile{Name: "Ana", Role: model.RoleUser}, wantErr: ErrInvalidProfile},
		{name: "missing name", profile: &model.Profile{ID: "u1", Role: model.RoleUser}, wantErr: ErrInvalidProfile},
		{name: "unknown role", profile: &model.Profile{ID: "u1", Name: "Ana", Role: "root"}, wantErr: ErrInvalidProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProfile(tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateProfile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequests(t *testing.T) {
	day := date.MustParse("2024-03-01")
	one := money.PointsFromInt(1)

	tests := []struct {
		validate func() error
		wantErr  error
		name     string
	}{
		{
			name: "valid activity",
			validate: func() error {
				return validateActivity(&model.Activity{UserID: "u1", RuleID: "r1", Date: day, Value: one, Status: model.StatusPending})
			},
		},
		{
			name: "activity without rule",
			validate: func() error {
				return validateActivity(&model.Activity{UserID: "u1", Date: day, Value: one, Status: model.StatusPending})
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "activity with unknown status",
			validate: func() error {
				return validateActivity(&model.Activity{UserID: "u1", RuleID: "r1", Date: day, Value: one, Status: "done"})
			},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "rescue without value",
			validate: func() error {
				return validateRescue(&model.RescueRequest{UserID: "u1", Product: "p", Date: day, Status: model.StatusPending})
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name:     "nil rescue",
			validate: func() error { return validateRescue(nil) },
			wantErr:  ErrNilParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
