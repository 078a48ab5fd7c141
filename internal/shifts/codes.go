package shifts

import (
	"context"
	"fmt"
	"time"

	"turnos/shift-service/internal/store"
)

const defaultPrefix = "GN"

var specialtyPrefixes = map[string]string{
	"Medicina General": "MG",
	"Psicologia":       "PS",
	"Odontologia":      "OD",
	"Pediatria":        "PD",
}

// PrefixFor returns the turn-code prefix for a specialty. Unrecognized
// specialties use the default prefix rather than failing.
func PrefixFor(specialty string) string {
	if prefix, ok := specialtyPrefixes[specialty]; ok {
		return prefix
	}
	return defaultPrefix
}

// CodeAllocator mints the next turn code for a (specialty, calendar day)
// bucket by counting existing shifts in the day window. It provides no
// serialization on its own; Generate holds a per-bucket lock across the
// count-then-insert sequence.
type CodeAllocator struct {
	store store.ShiftStore
}

func NewCodeAllocator(store store.ShiftStore) *CodeAllocator {
	return &CodeAllocator{store: store}
}

func (a *CodeAllocator) NextCode(ctx context.Context, specialty string, asOf time.Time) (string, error) {
	start, end := dayWindow(asOf)
	count, err := a.store.CountBySpecialtyAndCreatedAtBetween(ctx, specialty, start, end)
	if err != nil {
		return "", upstreamErr("count turn codes", err)
	}
	return fmt.Sprintf("%s-%d", PrefixFor(specialty), count+1), nil
}

// dayWindow returns the inclusive window for the calendar day containing
// asOf. The end is the last representable instant of that day, so a shift
// stamped exactly at midnight belongs to the earlier day.
func dayWindow(asOf time.Time) (time.Time, time.Time) {
	start := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}
