package metrics

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Metric is a single time-series reading recorded during a workout session.
// All measurement fields are optional, but at least one must be set.
type Metric struct {
	ID        int       `json:"id"`
	SessionID int       `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`

	HeartRate    *int     `json:"heartRate,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
	Elevation    *float64 `json:"elevation,omitempty"`
	WeightLifted *float64 `json:"weightLifted,omitempty"`
	Cadence      *int     `json:"cadence,omitempty"`
	Power        *int     `json:"power,omitempty"`
	Reps         *int     `json:"reps,omitempty"`
	Sets         *int     `json:"sets,omitempty"`
}

// HasReading reports whether any measurement field is set.
func (m *Metric) HasReading() bool {
	return m.HeartRate != nil ||
		m.Speed != nil ||
		m.Distance != nil ||
		m.Elevation != nil ||
		m.WeightLifted != nil ||
		m.Cadence != nil ||
		m.Power != nil ||
		m.Reps != nil ||
		m.Sets != nil
}

// Validate checks the reading against the bounds of the session it belongs
// to. sessionEnd may be nil for a still-active session.
func (m *Metric) Validate(sessionStart time.Time, sessionEnd *time.Time) error {
	var errs error

	if !m.HasReading() {
		errs = multierr.Append(errs, errors.New("at least one metric field must be provided"))
	}

	if m.HeartRate != nil && (*m.HeartRate < 30 || *m.HeartRate > 250) {
		errs = multierr.Append(errs, fmt.Errorf("heart rate must be between 30 and 250, got %d", *m.HeartRate))
	}

	for name, val := range map[string]*float64{
		"speed":        m.Speed,
		"distance":     m.Distance,
		"weightLifted": m.WeightLifted,
	} {
		if val != nil && *val < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must not be negative, got %f", name, *val))
		}
	}

	for name, val := range map[string]*int{
		"cadence": m.Cadence,
		"power":   m.Power,
		"reps":    m.Reps,
		"sets":    m.Sets,
	} {
		if val != nil && *val < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must not be negative, got %d", name, *val))
		}
	}

	if m.Timestamp.Before(sessionStart) {
		errs = multierr.Append(errs, errors.New("timestamp is before the session start"))
	}
	if sessionEnd != nil && m.Timestamp.After(*sessionEnd) {
		errs = multierr.Append(errs, errors.New("timestamp is after the session end"))
	}

	return errs
}
