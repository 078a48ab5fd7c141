package shifts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"turnos/shift-service/internal/models"
	"turnos/shift-service/internal/store"
)

// UserDirectory resolves requesting users against the identity service.
type UserDirectory interface {
	ResolveUser(ctx context.Context, id string) (models.User, error)
}

// Lifecycle is the shift engine surface consumed by the transport layer.
type Lifecycle interface {
	Generate(ctx context.Context, draft models.Shift) (models.Shift, error)
	Shifts(ctx context.Context) ([]models.Shift, error)
	ShiftByID(ctx context.Context, id string) (models.Shift, error)
	Delete(ctx context.Context, id string) error
	ShiftsByRole(ctx context.Context, role string) ([]models.Shift, error)
	ShiftsByUserID(ctx context.Context, userID string) ([]models.Shift, error)
	ShiftsBySpecialtyToday(ctx context.Context, specialty string) ([]models.Shift, error)
	ShiftsByStatusToday(ctx context.Context, status string) ([]models.Shift, error)
	ShiftsByPriorityToday(ctx context.Context, priority bool) ([]models.Shift, error)
	ShiftByTurnCodeToday(ctx context.Context, code string) (models.Shift, error)
	DeleteByTurnCodeToday(ctx context.Context, code string) (string, error)
	ChangeStatus(ctx context.Context, shift models.Shift, newStatus string) (models.Shift, error)
}

type Service struct {
	store store.ShiftStore
	users UserDirectory
	codes *CodeAllocator
	now   func() time.Time

	// serializes count-then-insert per (specialty, day) so concurrent
	// Generate calls cannot mint duplicate turn codes
	mu        sync.Mutex
	allocLock map[string]*sync.Mutex
}

type Options struct {
	Now func() time.Time
}

func NewService(st store.ShiftStore, users UserDirectory, options Options) *Service {
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:     st,
		users:     users,
		codes:     NewCodeAllocator(st),
		now:       now,
		allocLock: make(map[string]*sync.Mutex),
	}
}

// Generate resolves the requester, allocates the next turn code for the
// shift's specialty today, and persists the shift with status ASSIGNED.
// Caller-supplied identity fields are overwritten from the resolved user.
func (s *Service) Generate(ctx context.Context, draft models.Shift) (models.Shift, error) {
	user, err := s.users.ResolveUser(ctx, draft.UserID)
	if err != nil {
		return models.Shift{}, err
	}

	now := s.now()
	unlock := s.lockAllocation(draft.Specialty, now)
	defer unlock()

	code, err := s.codes.NextCode(ctx, draft.Specialty, now)
	if err != nil {
		return models.Shift{}, err
	}

	draft.UserID = user.NumberID
	draft.Username = user.UserName
	draft.UserRole = user.Role
	draft.TurnCode = code
	draft.Status = models.StatusAssigned
	draft.CreatedAt = now

	inserted, err := s.store.Insert(ctx, draft)
	if err != nil {
		return models.Shift{}, upstreamErr("insert shift", err)
	}
	return inserted, nil
}

func (s *Service) Shifts(ctx context.Context) ([]models.Shift, error) {
	shifts, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, upstreamErr("list shifts", err)
	}
	return shifts, nil
}

func (s *Service) ShiftByID(ctx context.Context, id string) (models.Shift, error) {
	shift, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return models.Shift{}, fmt.Errorf("shift %s: %w", id, store.ErrShiftNotFound)
		}
		return models.Shift{}, upstreamErr("find shift", err)
	}
	return shift, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.ShiftByID(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return err
		}
		return upstreamErr("delete shift", err)
	}
	return nil
}

func (s *Service) ShiftsByRole(ctx context.Context, role string) ([]models.Shift, error) {
	return s.requireMatches(s.store.FindByUserRole(ctx, role))
}

func (s *Service) ShiftsByUserID(ctx context.Context, userID string) ([]models.Shift, error) {
	return s.requireMatches(s.store.FindByUserID(ctx, userID))
}

func (s *Service) ShiftsBySpecialtyToday(ctx context.Context, specialty string) ([]models.Shift, error) {
	start, end := dayWindow(s.now())
	return s.requireMatches(s.store.FindBySpecialtyAndCreatedAtBetween(ctx, specialty, start, end))
}

func (s *Service) ShiftsByStatusToday(ctx context.Context, status string) ([]models.Shift, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	start, end := dayWindow(s.now())
	return s.requireMatches(s.store.FindByStatusAndCreatedAtBetween(ctx, status, start, end))
}

func (s *Service) ShiftsByPriorityToday(ctx context.Context, priority bool) ([]models.Shift, error) {
	start, end := dayWindow(s.now())
	return s.requireMatches(s.store.FindBySpecialPriorityAndCreatedAtBetween(ctx, priority, start, end))
}

func (s *Service) ShiftByTurnCodeToday(ctx context.Context, code string) (models.Shift, error) {
	start, end := dayWindow(s.now())
	shift, err := s.store.FindByTurnCodeAndCreatedAtBetween(ctx, code, start, end)
	if err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return models.Shift{}, fmt.Errorf("turn code %s: %w", code, store.ErrShiftNotFound)
		}
		return models.Shift{}, upstreamErr("find shift by turn code", err)
	}
	return shift, nil
}

// DeleteByTurnCodeToday removes today's shift carrying the code and
// returns the code on success.
func (s *Service) DeleteByTurnCodeToday(ctx context.Context, code string) (string, error) {
	shift, err := s.ShiftByTurnCodeToday(ctx, code)
	if err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, shift); err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return "", err
		}
		return "", upstreamErr("delete shift by turn code", err)
	}
	return code, nil
}

// ChangeStatus validates the target status and the transition, then
// persists the updated shift via a full save.
func (s *Service) ChangeStatus(ctx context.Context, shift models.Shift, newStatus string) (models.Shift, error) {
	if newStatus == "" {
		return models.Shift{}, fmt.Errorf("%w: status is required", ErrInvalidStatus)
	}
	if !models.ValidStatus(newStatus) {
		return models.Shift{}, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	if !ValidTransition(shift.Status, newStatus) {
		return models.Shift{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, shift.Status, newStatus)
	}

	shift.Status = newStatus
	saved, err := s.store.Save(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return models.Shift{}, err
		}
		return models.Shift{}, upstreamErr("save shift", err)
	}
	return saved, nil
}

// requireMatches surfaces empty predicate-query results as a not-found
// error; only the unconditional Shifts listing treats empty as success.
func (s *Service) requireMatches(shifts []models.Shift, err error) ([]models.Shift, error) {
	if err != nil {
		return nil, upstreamErr("query shifts", err)
	}
	if len(shifts) == 0 {
		return nil, fmt.Errorf("no matching shifts: %w", store.ErrShiftNotFound)
	}
	return shifts, nil
}

func (s *Service) lockAllocation(specialty string, asOf time.Time) func() {
	day := asOf.Format("2006-01-02")
	key := specialty + "|" + day
	s.mu.Lock()
	for stale := range s.allocLock {
		if !strings.HasSuffix(stale, "|"+day) {
			delete(s.allocLock, stale)
		}
	}
	lock, ok := s.allocLock[key]
	if !ok {
		lock = &sync.Mutex{}
		s.allocLock[key] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
