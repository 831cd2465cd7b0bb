package cam

import "errors"

// Error categories surfaced by scores and the engine. Wrapped with
// context via fmt.Errorf and %w; match with errors.Is.
var (
	// ErrInvalidArgument reports malformed constructor or option values.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidShape reports a tensor of unexpected rank or shape.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrInvalidIndex reports a categorical index outside the channel range.
	ErrInvalidIndex = errors.New("invalid index")
)
