package store

import (
	"context"
	"time"

	"turnos/shift-service/internal/models"
)

// ShiftStore is the persistence contract for shifts. All time-range
// queries return empty slices, never an error, when nothing matches.
type ShiftStore interface {
	Insert(ctx context.Context, shift models.Shift) (models.Shift, error)
	Save(ctx context.Context, shift models.Shift) (models.Shift, error)
	FindByID(ctx context.Context, id string) (models.Shift, error)
	DeleteByID(ctx context.Context, id string) error
	Delete(ctx context.Context, shift models.Shift) error
	FindAll(ctx context.Context) ([]models.Shift, error)
	FindByUserRole(ctx context.Context, role string) ([]models.Shift, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Shift, error)
	CountBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) (int64, error)
	FindByTurnCodeAndCreatedAtBetween(ctx context.Context, code string, start, end time.Time) (models.Shift, error)
	FindBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) ([]models.Shift, error)
	FindByStatusAndCreatedAtBetween(ctx context.Context, status string, start, end time.Time) ([]models.Shift, error)
	FindBySpecialPriorityAndCreatedAtBetween(ctx context.Context, priority bool, start, end time.Time) ([]models.Shift, error)
}
