package db

import (
	"errors"
	"testing"

	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, tracker.ErrNotFound},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, tracker.ErrConcurrentModification},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, tracker.ErrConcurrentModification},
		{"malformed uuid", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}, tracker.ErrInvalidArgument},
		{"unrelated pg error", &pgconn.PgError{Code: "42P01"}, nil},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Same(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}
