package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Coordinate range errors.
var (
	ErrEmpty          = errors.New("value is required")
	ErrNotFinite      = errors.New("value is not a finite number")
	ErrLatitudeRange  = errors.New("latitude must be within [-90, 90]")
	ErrLongitudeRange = errors.New("longitude must be within [-180, 180]")
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate reports whether c is finite and inside the WGS84 ranges.
func (c Coordinate) Validate() error {
	if err := ValidateLatitude(c.Lat); err != nil {
		return err
	}

	return ValidateLongitude(c.Lon)
}

// String formats c as "lat, lon" with the shortest exact representation.
func (c Coordinate) String() string {
	return FormatDegrees(c.Lat) + ", " + FormatDegrees(c.Lon)
}

// ValidateLatitude checks a latitude value.
func ValidateLatitude(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}
	if v < -90 || v > 90 {
		return ErrLatitudeRange
	}

	return nil
}

// ValidateLongitude checks a longitude value.
func ValidateLongitude(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}
	if v < -180 || v > 180 {
		return ErrLongitudeRange
	}

	return nil
}

// ParseCoordinate parses and validates latitude and longitude text.
func ParseCoordinate(lat, lon string) (Coordinate, error) {
	latV, err := parseDegrees(FieldLatitude, lat)
	if err != nil {
		return Coordinate{}, err
	}

	lonV, err := parseDegrees(FieldLongitude, lon)
	if err != nil {
		return Coordinate{}, err
	}

	return Coordinate{Lat: latV, Lon: lonV}, nil
}

// Midpoint returns the arithmetic midpoint of a and b.
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lon: (a.Lon + b.Lon) / 2,
	}
}

// FormatDegrees formats v without trailing zeros.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseDegrees(field Field, text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, &FieldError{Field: field, Text: text, Err: ErrEmpty}
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &FieldError{Field: field, Text: text, Err: ErrNotFinite}
	}

	if field == FieldLatitude {
		err = ValidateLatitude(v)
	} else {
		err = ValidateLongitude(v)
	}
	if err != nil {
		return 0, &FieldError{Field: field, Text: text, Err: err}
	}

	return v, nil
}

// Place is a geocoding result. Only the coordinate is authoritative.
type Place struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Coordinate  `yaml:",inline"`
}
