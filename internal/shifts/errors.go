package shifts

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus     = errors.New("invalid shift status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUpstream          = errors.New("upstream call failed")
)

// upstreamErr tags store and identity infrastructure failures so callers
// can match ErrUpstream while the cause stays in the chain.
func upstreamErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
