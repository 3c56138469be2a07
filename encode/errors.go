package encode

import "fmt"

// ErrorKind classifies encoder failures.
type ErrorKind uint8

const (
	// KindInvalidDataset marks a dataset that violates the tabular model
	// (length mismatch, foreign backing slice). Never retried.
	KindInvalidDataset ErrorKind = iota + 1
	// KindMixedType marks a generic column whose values span incompatible
	// type categories. Recovered once via the text-coercion retry.
	KindMixedType
	// KindUnencodable marks a dataset that failed construction even after
	// the coercion retry. Terminal.
	KindUnencodable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidDataset:
		return "invalid_dataset"
	case KindMixedType:
		return "mixed_type"
	case KindUnencodable:
		return "unencodable"
	default:
		return fmt.Sprintf("error_kind(%d)", uint8(k))
	}
}

// Error is the encoder's failure type. Column is the offending column's
// name when one can be identified.
type Error struct {
	Kind   ErrorKind
	Column string
	Err    error
}

func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("encode: column %q: %s: %v", e.Column, e.Kind, e.Err)
	}
	return fmt.Sprintf("encode: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
