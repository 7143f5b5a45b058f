package profiles

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
)

type FitnessGoal string

const (
	GoalWeightLoss     FitnessGoal = "weight_loss"
	GoalMuscleGain     FitnessGoal = "muscle_gain"
	GoalEndurance      FitnessGoal = "endurance"
	GoalGeneralFitness FitnessGoal = "general_fitness"
)

func (g FitnessGoal) Valid() bool {
	switch g {
	case GoalWeightLoss, GoalMuscleGain, GoalEndurance, GoalGeneralFitness:
		return true
	}
	return false
}

// defaultMaxHeartRate is used when the profile age is unknown.
const defaultMaxHeartRate = 190

type Profile struct {
	ID          int         `json:"id"`
	UserID      int         `json:"userId"`
	Age         *int        `json:"age,omitempty"`
	WeightKg    *float64    `json:"weightKg,omitempty"`
	HeightCm    *float64    `json:"heightCm,omitempty"`
	FitnessGoal FitnessGoal `json:"fitnessGoal"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// BMI is derived from weight and height, never persisted.
// Returns nil when either input is missing.
func (p *Profile) BMI() *float64 {
	if p.WeightKg == nil || p.HeightCm == nil || *p.HeightCm == 0 {
		return nil
	}
	heightM := *p.HeightCm / 100
	bmi := *p.WeightKg / (heightM * heightM)
	bmi = math.Round(bmi*100) / 100
	return &bmi
}

// MaxHeartRate estimates the maximum heart rate as 220 minus age,
// falling back to 190 when the age is not set.
func (p *Profile) MaxHeartRate() int {
	if p.Age == nil {
		return defaultMaxHeartRate
	}
	return 220 - *p.Age
}

func (p *Profile) Validate() error {
	var errs error
	if p.Age != nil && (*p.Age < 1 || *p.Age > 120) {
		errs = multierr.Append(errs, fmt.Errorf("age must be between 1 and 120, got %d", *p.Age))
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("weight must be positive, got %f", *p.WeightKg))
	}
	if p.HeightCm != nil && *p.HeightCm <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("height must be positive, got %f", *p.HeightCm))
	}
	if !p.FitnessGoal.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown fitness goal: %s", p.FitnessGoal))
	}
	return errs
}
