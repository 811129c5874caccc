package series

import "errors"

var (
	// ErrNotFound is returned when no series has the requested name.
	ErrNotFound = errors.New("series not found")

	// ErrExists is returned by Create when the name is already taken.
	ErrExists = errors.New("series already exists")

	// ErrInvalidName is returned for names outside [A-Za-z0-9_.:-]{1,128}.
	ErrInvalidName = errors.New("invalid series name")

	// ErrInvalidKind is returned for an unknown accumulator kind.
	ErrInvalidKind = errors.New("invalid series kind")

	// ErrKindMismatch is returned when merging or restoring across kinds.
	ErrKindMismatch = errors.New("series kinds do not match")

	// ErrArity is returned when a sample has the wrong number of values
	// for the series kind.
	ErrArity = errors.New("sample has wrong number of values")

	// ErrLimit is returned by Create when series.max_series is reached.
	ErrLimit = errors.New("series limit reached")
)
