package rating

import "errors"

// Sentinel kinds for engine errors. Store lookups that fail are wrapped with
// one of these so callers can tell a missing record from a storage fault.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
)
