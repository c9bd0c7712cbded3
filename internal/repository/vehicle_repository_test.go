package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "translated gorm error", err: gorm.ErrDuplicatedKey, want: true},
		{name: "wrapped gorm error", err: fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "wrapped unique violation", err: fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "other postgres error", err: &pgconn.PgError{Code: "23502"}, want: false},
		{name: "plain error", err: errors.New("connection reset"), want: false},
		{name: "record not found", err: gorm.ErrRecordNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKey(tt.err))
		})
	}
}
