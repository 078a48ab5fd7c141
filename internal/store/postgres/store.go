package postgres

import (
	"context"
	"errors"
	"time"

	"turnos/shift-service/internal/models"
	"turnos/shift-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shiftColumns = `id, user_id, username, user_role, specialty, turn_code, special_priority, created_at, status`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, shift models.Shift) (models.Shift, error) {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	createdAt := shift.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO shifts (id, user_id, username, user_role, specialty, turn_code, special_priority, created_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+shiftColumns+`
	`, shift.ID, shift.UserID, shift.Username, shift.UserRole, shift.Specialty, shift.TurnCode, shift.SpecialPriority, createdAt, shift.Status)

	return scanShift(row)
}

func (s *Store) Save(ctx context.Context, shift models.Shift) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE shifts
		SET user_id = $2, username = $3, user_role = $4, specialty = $5, turn_code = $6, special_priority = $7, created_at = $8, status = $9
		WHERE id = $1
		RETURNING `+shiftColumns+`
	`, shift.ID, shift.UserID, shift.Username, shift.UserRole, shift.Specialty, shift.TurnCode, shift.SpecialPriority, shift.CreatedAt, shift.Status)

	saved, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, err
	}
	return saved, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, err
	}
	return shift, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrShiftNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, shift models.Shift) error {
	return s.DeleteByID(ctx, shift.ID)
}

func (s *Store) FindAll(ctx context.Context) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) FindByUserRole(ctx context.Context, role string) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) FindByUserID(ctx context.Context, userID string) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) CountBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) (int64, error) {
	var count int64
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM shifts
		WHERE specialty = $1 AND created_at BETWEEN $2 AND $3
	`, specialty, start, end)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) FindByTurnCodeAndCreatedAtBetween(ctx context.Context, code string, start, end time.Time) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE turn_code = $1 AND created_at BETWEEN $2 AND $3
	`, code, start, end)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, err
	}
	return shift, nil
}

func (s *Store) FindBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE specialty = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at
	`, specialty, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) FindByStatusAndCreatedAtBetween(ctx context.Context, status string, start, end time.Time) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE status = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at
	`, status, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) FindBySpecialPriorityAndCreatedAtBetween(ctx context.Context, priority bool, start, end time.Time) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE special_priority = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at
	`, priority, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func scanShift(row pgx.Row) (models.Shift, error) {
	var shift models.Shift
	if err := row.Scan(&shift.ID, &shift.UserID, &shift.Username, &shift.UserRole, &shift.Specialty, &shift.TurnCode, &shift.SpecialPriority, &shift.CreatedAt, &shift.Status); err != nil {
		return models.Shift{}, err
	}
	return shift, nil
}

func collectShifts(rows pgx.Rows) ([]models.Shift, error) {
	shifts := []models.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}
