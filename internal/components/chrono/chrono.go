package chrono

import "time"

// TimeAPI is the abstraction over the wall clock, any code that depends on
// the current time should use this.
//
// note: fault injection point
type TimeAPI interface {
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the TimeAPI backed by the system clock.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the given IANA timezone, an empty name means the
// local timezone of the process.
func NewStandardTime(timezone string) (StandardTime, error) {
	if timezone == "" {
		return StandardTime{location: time.Local}, nil
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: location}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime is a TimeAPI that always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}

func (f FixedTime) Location() *time.Location {
	return f.At.Location()
}
