package channels

import "errors"

var (
	// ErrNotImplemented is returned by BaseChannel for operations an adapter
	// did not override.
	ErrNotImplemented = errors.New("not implemented by this channel")

	// ErrCapabilityNotFound is returned by Registry.Invoke for unknown names.
	ErrCapabilityNotFound = errors.New("capability not found")

	ErrDuplicateChannel = errors.New("channel already registered")
	ErrMasterExists     = errors.New("a master channel is already registered")
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrInvalidRole      = errors.New("invalid channel role")
)
