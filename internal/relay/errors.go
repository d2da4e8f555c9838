package relay

import "errors"

var (
	// ErrDisabled is returned when the provider endpoint is not configured.
	ErrDisabled = errors.New("live streaming disabled: provider endpoint not configured")

	// ErrDuplicateClient is returned when registering an ID that is already live.
	ErrDuplicateClient = errors.New("client already registered")

	// ErrUnknownClient is returned by Forward for an unregistered ID.
	ErrUnknownClient = errors.New("unknown client")

	// ErrStopped is returned by Start and RegisterClient after Stop.
	ErrStopped = errors.New("engine stopped")
)
