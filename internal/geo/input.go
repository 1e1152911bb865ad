package geo

import "fmt"

// Field names a manual coordinate entry field.
type Field string

// Manual entry fields.
const (
	FieldLatitude  Field = "latitude"
	FieldLongitude Field = "longitude"
)

// FieldError is a field-level validation error of manual coordinate entry.
type FieldError struct {
	Err   error
	Field Field
	Text  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Text, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// CoordinateInput is a single numeric text field parsed on every edit.
// An invalid edit keeps the raw text and the error but never replaces the
// last valid value.
type CoordinateInput struct {
	err   error
	field Field
	text  string
	value float64
}

// NewCoordinateInput returns a field holding v.
func NewCoordinateInput(field Field, v float64) CoordinateInput {
	in := CoordinateInput{field: field}
	in.SetValue(v)
	return in
}

// Set replaces the field text and parses it.
func (in *CoordinateInput) Set(text string) error {
	in.text = text

	v, err := parseDegrees(in.field, text)
	if err != nil {
		in.err = err
		return err
	}

	in.value = v
	in.err = nil
	return nil
}

// SetValue stores a known good value and its canonical text.
func (in *CoordinateInput) SetValue(v float64) {
	in.value = v
	in.text = FormatDegrees(v)
	in.err = nil
}

// Value returns the parsed value or the field error of the current text.
func (in CoordinateInput) Value() (float64, error) {
	if in.err != nil {
		return 0, in.err
	}

	return in.value, nil
}

// Text returns the raw field text.
func (in CoordinateInput) Text() string { return in.text }

// Err returns the field error of the current text, if any.
func (in CoordinateInput) Err() error { return in.err }
