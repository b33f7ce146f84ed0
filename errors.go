package amt8000

import (
	"errors"
	"fmt"
)

var (
	// ErrCommunication wraps transport failures talking to the panel.
	ErrCommunication = errors.New("communication error")

	// ErrAuth is the parent of every authentication failure.
	ErrAuth = errors.New("authentication error")

	ErrInvalidPassword  = fmt.Errorf("%w: invalid password", ErrAuth)
	ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", ErrAuth)

	// ErrOpenZones is returned when the panel refuses to arm.
	ErrOpenZones = errors.New("failed to arm: open zones")
)

func commErr(what string, err error) error {
	return fmt.Errorf("%w: could not %s: %w", ErrCommunication, what, err)
}
