package catalog

import (
	"errors"
	"fmt"
)

// ErrRemoteUnavailable reports that the remote catalog could not produce a
// usable answer. Every failure of a Client call wraps it.
var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

// RemoteUnavailableCode is the extensions code of a RemoteError.
const RemoteUnavailableCode = "REMOTE_UNAVAILABLE"

// errMissingData is returned for an ok envelope without a data object.
var errMissingData = errors.New("response has no data")

// RemoteError describes a failed catalog call. It matches
// ErrRemoteUnavailable with errors.Is.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRemoteUnavailable, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error { return []error{ErrRemoteUnavailable, e.Err} }

// Extensions implements the GraphQL error extensions hook.
func (e *RemoteError) Extensions() map[string]any {
	return map[string]any{"code": RemoteUnavailableCode, "operation": e.Op}
}
