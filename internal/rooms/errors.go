package rooms

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey means the (scope, code) pair is already taken; retry with a new code.
	ErrDuplicateKey = errors.New("session code already in use")
	// ErrNotFound means the targeted session no longer exists.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidCode is what a user sees for unknown, expired or malformed codes.
	ErrInvalidCode = errors.New("invalid passcode")
	// ErrInsufficient means the entitlement ledger declined the request.
	ErrInsufficient = errors.New("not enough tickets")
	// ErrCodeSpaceExhausted means no free code was found within the retry ceiling.
	ErrCodeSpaceExhausted = errors.New("no free passcode available")
	// ErrRoomNotFound means the remote resource no longer exists.
	ErrRoomNotFound = errors.New("room no longer exists")
)

// GatewayError is a failed remote operation on a room or display channel.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err is (or wraps) a *GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
