package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Decode error taxonomy. Every decode primitive returns one of these (or a
// FieldError wrapping one); the first error aborts the whole decode and no
// partial value is returned to the caller.
var (
	// ErrUnexpectedEOF is returned when fewer bytes remain in the buffer
	// than a value or a declared length requires.
	ErrUnexpectedEOF = errors.New("unexpected EOF: buffer underflow")

	// ErrVarintOverflow is returned when a varint does not fit in 64 bits.
	ErrVarintOverflow = errors.New("varint overflow")

	// ErrVarintTooLong is returned when a varint runs past 10 bytes without
	// a terminating byte.
	ErrVarintTooLong = errors.New("varint too long")

	// ErrInvalidWireType is returned when a key's low 3 bits do not map to
	// one of the four legal wire types.
	ErrInvalidWireType = errors.New("invalid wire type")

	// ErrWireTypeMismatch is returned when a field's physical wire type
	// disagrees with what its declared type requires.
	ErrWireTypeMismatch = errors.New("wire type mismatch")

	// ErrInvalidFieldNumber is returned when a decoded key carries a field
	// number below 1.
	ErrInvalidFieldNumber = errors.New("invalid field number")

	// ErrRecursionLimit is returned when message nesting exceeds the
	// configured recursion limit.
	ErrRecursionLimit = errors.New("recursion limit reached")

	// ErrTrailingBytes is returned when an inner decode does not consume
	// exactly the bytes declared by its length-delimited frame.
	ErrTrailingBytes = errors.New("trailing bytes in length-delimited field")

	// ErrInvalidEnumValue is returned when a decoded enum discriminant does
	// not match any declared enum value.
	ErrInvalidEnumValue = errors.New("invalid enum value")

	// ErrNumericOverflow is returned when a decoded wire value does not fit
	// back into its narrow logical type.
	ErrNumericOverflow = errors.New("numeric conversion overflow")

	// ErrMissingRequiredField is returned after the field loop when a
	// required message field was never framed on the wire.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidUTF8 is returned when a string field carries bytes that are
	// not well-formed UTF-8.
	ErrInvalidUTF8 = errors.New("invalid string value: data is not UTF-8 encoded")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "unit_price"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// wrapWithField wraps an error with a field name
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
