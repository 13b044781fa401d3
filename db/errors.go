package db

import (
	"errors"
	"fmt"

	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrLabelTaken     = errors.New("device label already exists")
	ErrHolderBusy     = errors.New("user still holds a device")
	ErrInviteConsumed = errors.New("invite already used or not found")
)

// translate maps driver errors onto the tracker's error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tracker.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return tracker.ErrConcurrentModification
		case "22P02": // invalid_text_representation, e.g. a non-uuid id
			return fmt.Errorf("%w: %s", tracker.ErrInvalidArgument, pgErr.Message)
		}
	}
	return err
}
