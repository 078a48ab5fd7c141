package shifts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"turnos/shift-service/internal/models"
	"turnos/shift-service/internal/store"
)

type fakeStore struct {
	insertFn      func(ctx context.Context, shift models.Shift) (models.Shift, error)
	saveFn        func(ctx context.Context, shift models.Shift) (models.Shift, error)
	findByIDFn    func(ctx context.Context, id string) (models.Shift, error)
	deleteByIDFn  func(ctx context.Context, id string) error
	deleteFn      func(ctx context.Context, shift models.Shift) error
	findAllFn     func(ctx context.Context) ([]models.Shift, error)
	byRoleFn      func(ctx context.Context, role string) ([]models.Shift, error)
	byUserFn      func(ctx context.Context, userID string) ([]models.Shift, error)
	countFn       func(ctx context.Context, specialty string, start, end time.Time) (int64, error)
	byCodeFn      func(ctx context.Context, code string, start, end time.Time) (models.Shift, error)
	bySpecialtyFn func(ctx context.Context, specialty string, start, end time.Time) ([]models.Shift, error)
	byStatusFn    func(ctx context.Context, status string, start, end time.Time) ([]models.Shift, error)
	byPriorityFn  func(ctx context.Context, priority bool, start, end time.Time) ([]models.Shift, error)
}

func (f *fakeStore) Insert(ctx context.Context, shift models.Shift) (models.Shift, error) {
	if f.insertFn == nil {
		return shift, nil
	}
	return f.insertFn(ctx, shift)
}

func (f *fakeStore) Save(ctx context.Context, shift models.Shift) (models.Shift, error) {
	if f.saveFn == nil {
		return shift, nil
	}
	return f.saveFn(ctx, shift)
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (models.Shift, error) {
	if f.findByIDFn == nil {
		return models.Shift{}, nil
	}
	return f.findByIDFn(ctx, id)
}

func (f *fakeStore) DeleteByID(ctx context.Context, id string) error {
	if f.deleteByIDFn == nil {
		return nil
	}
	return f.deleteByIDFn(ctx, id)
}

func (f *fakeStore) Delete(ctx context.Context, shift models.Shift) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, shift)
}

func (f *fakeStore) FindAll(ctx context.Context) ([]models.Shift, error) {
	if f.findAllFn == nil {
		return nil, nil
	}
	return f.findAllFn(ctx)
}

func (f *fakeStore) FindByUserRole(ctx context.Context, role string) ([]models.Shift, error) {
	if f.byRoleFn == nil {
		return nil, nil
	}
	return f.byRoleFn(ctx, role)
}

func (f *fakeStore) FindByUserID(ctx context.Context, userID string) ([]models.Shift, error) {
	if f.byUserFn == nil {
		return nil, nil
	}
	return f.byUserFn(ctx, userID)
}

func (f *fakeStore) CountBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, specialty, start, end)
}

func (f *fakeStore) FindByTurnCodeAndCreatedAtBetween(ctx context.Context, code string, start, end time.Time) (models.Shift, error) {
	if f.byCodeFn == nil {
		return models.Shift{}, store.ErrShiftNotFound
	}
	return f.byCodeFn(ctx, code, start, end)
}

func (f *fakeStore) FindBySpecialtyAndCreatedAtBetween(ctx context.Context, specialty string, start, end time.Time) ([]models.Shift, error) {
	if f.bySpecialtyFn == nil {
		return nil, nil
	}
	return f.bySpecialtyFn(ctx, specialty, start, end)
}

func (f *fakeStore) FindByStatusAndCreatedAtBetween(ctx context.Context, status string, start, end time.Time) ([]models.Shift, error) {
	if f.byStatusFn == nil {
		return nil, nil
	}
	return f.byStatusFn(ctx, status, start, end)
}

func (f *fakeStore) FindBySpecialPriorityAndCreatedAtBetween(ctx context.Context, priority bool, start, end time.Time) ([]models.Shift, error) {
	if f.byPriorityFn == nil {
		return nil, nil
	}
	return f.byPriorityFn(ctx, priority, start, end)
}

type fakeDirectory struct {
	resolveFn func(ctx context.Context, id string) (models.User, error)
}

func (f fakeDirectory) ResolveUser(ctx context.Context, id string) (models.User, error) {
	if f.resolveFn == nil {
		return models.User{UserName: "John Doe", NumberID: id, Role: "DOCTOR"}, nil
	}
	return f.resolveFn(ctx, id)
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
}

func TestGenerateAllocatesCodeAndSnapshotsUser(t *testing.T) {
	var inserted models.Shift
	st := &fakeStore{
		countFn: func(ctx context.Context, specialty string, start, end time.Time) (int64, error) {
			if specialty != "Psicologia" {
				t.Fatalf("counted specialty %q", specialty)
			}
			return 5, nil
		},
		insertFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			inserted = shift
			shift.ID = "shift123"
			return shift, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	shift, err := service.Generate(context.Background(), models.Shift{
		UserID:    "123",
		Username:  "spoofed",
		UserRole:  "ADMIN",
		Specialty: "Psicologia",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if shift.ID != "shift123" {
		t.Fatalf("expected store-assigned id, got %q", shift.ID)
	}
	if inserted.TurnCode != "PS-6" {
		t.Fatalf("expected turn code PS-6, got %s", inserted.TurnCode)
	}
	if inserted.Status != models.StatusAssigned {
		t.Fatalf("expected status ASSIGNED, got %s", inserted.Status)
	}
	if !inserted.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("expected createdAt %v, got %v", fixedNow(), inserted.CreatedAt)
	}
	if inserted.UserID != "123" || inserted.Username != "John Doe" || inserted.UserRole != "DOCTOR" {
		t.Fatalf("caller identity fields were trusted: %+v", inserted)
	}
}

func TestGenerateUnmappedSpecialtyUsesDefaultPrefix(t *testing.T) {
	var inserted models.Shift
	st := &fakeStore{
		insertFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			inserted = shift
			return shift, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	if _, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Dermatologia"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted.TurnCode != "GN-1" {
		t.Fatalf("expected GN-1, got %s", inserted.TurnCode)
	}
}

func TestGenerateUserResolutionFailureAbortsBeforeInsert(t *testing.T) {
	resolveErr := errors.New("identity service unreachable")
	st := &fakeStore{
		insertFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			t.Fatal("insert should not be reached")
			return models.Shift{}, nil
		},
	}
	directory := fakeDirectory{
		resolveFn: func(ctx context.Context, id string) (models.User, error) {
			return models.User{}, resolveErr
		},
	}
	service := NewService(st, directory, Options{Now: fixedNow})

	_, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Psicologia"})
	if !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestGenerateCountFailureAbortsBeforeInsert(t *testing.T) {
	st := &fakeStore{
		countFn: func(ctx context.Context, specialty string, start, end time.Time) (int64, error) {
			return 0, errors.New("connection reset")
		},
		insertFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			t.Fatal("insert should not be reached")
			return models.Shift{}, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	_, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Psicologia"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestConcurrentGenerateMintsUniqueCodes(t *testing.T) {
	var mu sync.Mutex
	var codes []string
	st := &fakeStore{
		countFn: func(ctx context.Context, specialty string, start, end time.Time) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			return int64(len(codes)), nil
		},
		insertFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			mu.Lock()
			defer mu.Unlock()
			codes = append(codes, shift.TurnCode)
			return shift, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Psicologia"}); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			t.Fatalf("duplicate turn code %s", code)
		}
		seen[code] = true
	}
	if len(codes) != 20 {
		t.Fatalf("expected 20 shifts, got %d", len(codes))
	}
}

func TestAllocationLocksPrunePastDays(t *testing.T) {
	current := fixedNow()
	service := NewService(&fakeStore{}, fakeDirectory{}, Options{Now: func() time.Time { return current }})

	if _, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Psicologia"}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	current = current.Add(24 * time.Hour)
	if _, err := service.Generate(context.Background(), models.Shift{UserID: "123", Specialty: "Odontologia"}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.allocLock) != 1 {
		t.Fatalf("expected only today's lock entry, got %d", len(service.allocLock))
	}
	if _, ok := service.allocLock["Odontologia|2026-03-15"]; !ok {
		t.Fatalf("expected lock entry for today, got %v", service.allocLock)
	}
}

func TestShiftsEmptyIsNotAnError(t *testing.T) {
	st := &fakeStore{
		findAllFn: func(ctx context.Context) ([]models.Shift, error) {
			return []models.Shift{}, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	shifts, err := service.Shifts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(shifts) != 0 {
		t.Fatalf("expected empty result, got %v", shifts)
	}
}

func TestPredicateQueriesFailWhenEmpty(t *testing.T) {
	service := NewService(&fakeStore{}, fakeDirectory{}, Options{Now: fixedNow})
	ctx := context.Background()

	queries := map[string]func() error{
		"by role": func() error {
			_, err := service.ShiftsByRole(ctx, "DOCTOR")
			return err
		},
		"by user": func() error {
			_, err := service.ShiftsByUserID(ctx, "123")
			return err
		},
		"by specialty": func() error {
			_, err := service.ShiftsBySpecialtyToday(ctx, "Psicologia")
			return err
		},
		"by status": func() error {
			_, err := service.ShiftsByStatusToday(ctx, models.StatusAssigned)
			return err
		},
		"by priority": func() error {
			_, err := service.ShiftsByPriorityToday(ctx, true)
			return err
		},
	}

	for name, query := range queries {
		if err := query(); !errors.Is(err, store.ErrShiftNotFound) {
			t.Fatalf("%s: expected ErrShiftNotFound, got %v", name, err)
		}
	}
}

func TestShiftsByStatusTodayRejectsUnknownStatus(t *testing.T) {
	service := NewService(&fakeStore{}, fakeDirectory{}, Options{Now: fixedNow})

	_, err := service.ShiftsByStatusToday(context.Background(), "DONE")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestShiftByTurnCodeTodayScopesToDayWindow(t *testing.T) {
	var gotStart, gotEnd time.Time
	st := &fakeStore{
		byCodeFn: func(ctx context.Context, code string, start, end time.Time) (models.Shift, error) {
			gotStart, gotEnd = start, end
			return models.Shift{}, store.ErrShiftNotFound
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	_, err := service.ShiftByTurnCodeToday(context.Background(), "X-1")
	if !errors.Is(err, store.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}

	wantStart, wantEnd := dayWindow(fixedNow())
	if !gotStart.Equal(wantStart) || !gotEnd.Equal(wantEnd) {
		t.Fatalf("queried window [%v, %v], want [%v, %v]", gotStart, gotEnd, wantStart, wantEnd)
	}
}

func TestDeleteByTurnCodeTodayReturnsCode(t *testing.T) {
	var deleted models.Shift
	st := &fakeStore{
		byCodeFn: func(ctx context.Context, code string, start, end time.Time) (models.Shift, error) {
			return models.Shift{ID: "shift123", TurnCode: code}, nil
		},
		deleteFn: func(ctx context.Context, shift models.Shift) error {
			deleted = shift
			return nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	code, err := service.DeleteByTurnCodeToday(context.Background(), "PS-1")
	if err != nil {
		t.Fatalf("delete by turn code: %v", err)
	}
	if code != "PS-1" || deleted.ID != "shift123" {
		t.Fatalf("unexpected deletion: code=%s shift=%+v", code, deleted)
	}
}

func TestDeleteNotFoundPerformsNoMutation(t *testing.T) {
	st := &fakeStore{
		findByIDFn: func(ctx context.Context, id string) (models.Shift, error) {
			return models.Shift{}, store.ErrShiftNotFound
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Fatal("delete should not be reached")
			return nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	if err := service.Delete(context.Background(), "missing"); !errors.Is(err, store.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}
}

func TestChangeStatusPersistsValidTransition(t *testing.T) {
	var saved models.Shift
	st := &fakeStore{
		saveFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			saved = shift
			return shift, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	updated, err := service.ChangeStatus(context.Background(), models.Shift{ID: "shift123", Status: models.StatusAssigned}, models.StatusInProgress)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != models.StatusInProgress || saved.Status != models.StatusInProgress {
		t.Fatalf("status not updated: updated=%+v saved=%+v", updated, saved)
	}
}

func TestChangeStatusTransitionTable(t *testing.T) {
	all := []string{models.StatusAssigned, models.StatusInProgress, models.StatusAttended, models.StatusCanceled}
	service := NewService(&fakeStore{}, fakeDirectory{}, Options{Now: fixedNow})

	for _, from := range all {
		for _, to := range all {
			shift := models.Shift{ID: "shift123", Status: from}
			updated, err := service.ChangeStatus(context.Background(), shift, to)
			if ValidTransition(from, to) {
				if err != nil {
					t.Fatalf("%s to %s: unexpected error %v", from, to, err)
				}
				if updated.Status != to {
					t.Fatalf("%s to %s: status %s", from, to, updated.Status)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s to %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestChangeStatusRejectsMissingOrUnknownStatus(t *testing.T) {
	st := &fakeStore{
		saveFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			t.Fatal("save should not be reached")
			return models.Shift{}, nil
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	all := []string{models.StatusAssigned, models.StatusInProgress, models.StatusAttended, models.StatusCanceled}
	for _, from := range all {
		for _, status := range []string{"", "DONE"} {
			_, err := service.ChangeStatus(context.Background(), models.Shift{Status: from}, status)
			if !errors.Is(err, ErrInvalidStatus) {
				t.Fatalf("from %s to %q: expected ErrInvalidStatus, got %v", from, status, err)
			}
		}
	}
}

func TestChangeStatusSaveNotFound(t *testing.T) {
	st := &fakeStore{
		saveFn: func(ctx context.Context, shift models.Shift) (models.Shift, error) {
			return models.Shift{}, store.ErrShiftNotFound
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	_, err := service.ChangeStatus(context.Background(), models.Shift{ID: "gone", Status: models.StatusAssigned}, models.StatusCanceled)
	if !errors.Is(err, store.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}
}

func TestShiftByIDWrapsNotFound(t *testing.T) {
	st := &fakeStore{
		findByIDFn: func(ctx context.Context, id string) (models.Shift, error) {
			return models.Shift{}, fmt.Errorf("row lookup: %w", store.ErrShiftNotFound)
		},
	}
	service := NewService(st, fakeDirectory{}, Options{Now: fixedNow})

	_, err := service.ShiftByID(context.Background(), "missing")
	if !errors.Is(err, store.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}
}
