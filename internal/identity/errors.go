package identity

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingCredentials = errors.New("user record is missing credentials")
	ErrNoToken            = errors.New("login response carried no token")
	ErrUnavailable        = errors.New("identity service unavailable")
)
