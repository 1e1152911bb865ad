package geo

import (
	"errors"
	"math"
	"testing"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want error
	}{
		{"london", Coordinate{Lat: 51.505, Lon: -0.09}, nil},
		{"poles and antimeridian", Coordinate{Lat: -90, Lon: 180}, nil},
		{"lat too high", Coordinate{Lat: 90.1, Lon: 0}, ErrLatitudeRange},
		{"lon too low", Coordinate{Lat: 0, Lon: -180.5}, ErrLongitudeRange},
		{"nan", Coordinate{Lat: math.NaN(), Lon: 0}, ErrNotFinite},
		{"inf", Coordinate{Lat: 0, Lon: math.Inf(1)}, ErrNotFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate(" 48.8566", "2.3522 ")
	if err != nil {
		t.Fatalf("ParseCoordinate: %v", err)
	}
	if c.Lat != 48.8566 || c.Lon != 2.3522 {
		t.Errorf("got %v", c)
	}

	_, err = ParseCoordinate("abc", "0")
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Field != FieldLatitude || !errors.Is(err, ErrNotFinite) {
		t.Errorf("unexpected field error: %+v", fe)
	}

	_, err = ParseCoordinate("0", "200")
	if !errors.As(err, &fe) || fe.Field != FieldLongitude || !errors.Is(err, ErrLongitudeRange) {
		t.Errorf("expected longitude range error, got %v", err)
	}

	if _, err = ParseCoordinate("NaN", "0"); !errors.Is(err, ErrNotFinite) {
		t.Errorf("NaN text must be rejected, got %v", err)
	}
}

func TestCoordinateString(t *testing.T) {
	c := Coordinate{Lat: 51.505, Lon: -0.09}
	if got := c.String(); got != "51.505, -0.09" {
		t.Errorf("String() = %q", got)
	}
}

func TestMidpoint(t *testing.T) {
	m := Midpoint(Coordinate{Lat: 10, Lon: 20}, Coordinate{Lat: 20, Lon: 40})
	if m.Lat != 15 || m.Lon != 30 {
		t.Errorf("Midpoint = %v", m)
	}
}
