package form

import "github.com/pkg/errors"

var (
	// ErrFieldOutOfBounds is returned when a field's page lies outside its template
	ErrFieldOutOfBounds = errors.New("field out of bounds")
	// ErrInvalidDimensions is returned for non-positive or non-finite geometry
	ErrInvalidDimensions = errors.New("invalid field dimensions")
	// ErrUnknownFieldType is returned when decoding a field type that is not supported
	ErrUnknownFieldType = errors.New("unknown field type")
)
