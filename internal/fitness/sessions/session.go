package sessions

import (
	"fmt"
	"time"

	"github.com/fittrackio/fittrack/internal/fitness/metrics"

	"go.uber.org/multierr"
)

type WorkoutType string

const (
	WorkoutRunning        WorkoutType = "running"
	WorkoutCycling        WorkoutType = "cycling"
	WorkoutSwimming       WorkoutType = "swimming"
	WorkoutWeightTraining WorkoutType = "weight_training"
	WorkoutYoga           WorkoutType = "yoga"
	WorkoutHIIT           WorkoutType = "hiit"
	WorkoutWalking        WorkoutType = "walking"
	WorkoutOther          WorkoutType = "other"
)

func (wt WorkoutType) Valid() bool {
	switch wt {
	case WorkoutRunning, WorkoutCycling, WorkoutSwimming, WorkoutWeightTraining,
		WorkoutYoga, WorkoutHIIT, WorkoutWalking, WorkoutOther:
		return true
	}
	return false
}

const maxSessionDuration = 24 * time.Hour

// Session is a single workout of a user. endTime is nil while the workout
// is still in progress; durationMinutes is derived from the two bounds and
// never set by clients directly.
type Session struct {
	ID              int         `json:"id"`
	UserID          int         `json:"userId"`
	WorkoutType     WorkoutType `json:"workoutType"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	StartTime       time.Time   `json:"startTime"`
	EndTime         *time.Time  `json:"endTime,omitempty"`
	DurationMinutes *int        `json:"durationMinutes,omitempty"`
	TotalDistance   *float64    `json:"totalDistance,omitempty"`
	TotalCalories   *int        `json:"totalCalories,omitempty"`
	AvgHeartRate    *int        `json:"avgHeartRate,omitempty"`
	MaxHeartRate    *int        `json:"maxHeartRate,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// RecomputeDuration derives durationMinutes from the session bounds.
// The duration stays nil while endTime is not set.
func (s *Session) RecomputeDuration() {
	if s.EndTime == nil {
		s.DurationMinutes = nil
		return
	}
	minutes := int(s.EndTime.Sub(s.StartTime).Minutes())
	s.DurationMinutes = &minutes
}

func (s *Session) Validate(now time.Time) error {
	var errs error

	if !s.WorkoutType.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown workout type: %s", s.WorkoutType))
	}
	if s.Title == "" {
		errs = multierr.Append(errs, fmt.Errorf("title must not be empty"))
	}
	if s.StartTime.IsZero() {
		errs = multierr.Append(errs, fmt.Errorf("start time must be set"))
	} else if s.StartTime.After(now) {
		errs = multierr.Append(errs, fmt.Errorf("start time must not be in the future"))
	}

	if s.EndTime != nil {
		if !s.EndTime.After(s.StartTime) {
			errs = multierr.Append(errs, fmt.Errorf("end time must be after the start time"))
		} else if s.EndTime.Sub(s.StartTime) > maxSessionDuration {
			errs = multierr.Append(errs, fmt.Errorf("workout duration must not exceed 24 hours"))
		}
	}

	for name, val := range map[string]*int{
		"avgHeartRate": s.AvgHeartRate,
		"maxHeartRate": s.MaxHeartRate,
	} {
		if val != nil && (*val < 30 || *val > 250) {
			errs = multierr.Append(errs, fmt.Errorf("%s must be between 30 and 250, got %d", name, *val))
		}
	}
	if s.TotalDistance != nil && *s.TotalDistance < 0 {
		errs = multierr.Append(errs, fmt.Errorf("total distance must not be negative, got %f", *s.TotalDistance))
	}
	if s.TotalCalories != nil && *s.TotalCalories < 0 {
		errs = multierr.Append(errs, fmt.Errorf("total calories must not be negative, got %d", *s.TotalCalories))
	}

	return errs
}

// SummaryView is the compact list projection of a session.
type SummaryView struct {
	ID              int         `json:"id"`
	WorkoutType     WorkoutType `json:"workoutType"`
	Title           string      `json:"title"`
	StartTime       time.Time   `json:"startTime"`
	DurationMinutes *int        `json:"durationMinutes,omitempty"`
	TotalDistance   *float64    `json:"totalDistance,omitempty"`
	TotalCalories   *int        `json:"totalCalories,omitempty"`
}

func (s *Session) ToSummaryView() SummaryView {
	return SummaryView{
		ID:              s.ID,
		WorkoutType:     s.WorkoutType,
		Title:           s.Title,
		StartTime:       s.StartTime,
		DurationMinutes: s.DurationMinutes,
		TotalDistance:   s.TotalDistance,
		TotalCalories:   s.TotalCalories,
	}
}

// DetailView is the full projection, with the nested metric readings.
type DetailView struct {
	Session
	Metrics []metrics.Metric `json:"metrics"`
}
