package profile

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned (wrapped) for out-of-range or unparsable values.
var ErrInvalid = errors.New("invalid profile")

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Goal string

const (
	GoalWeightLoss Goal = "weight_loss"
	GoalMaintain   Goal = "maintain"
	GoalMuscleGain Goal = "muscle_gain"
)

// Profile is the health profile sent with every meal critique.
type Profile struct {
	Age                 int     `json:"age" yaml:"age"`
	Gender              Gender  `json:"gender" yaml:"gender"`
	WeightKg            float64 `json:"weight_kg" yaml:"weight_kg"`
	HeightCm            float64 `json:"height_cm" yaml:"height_cm"`
	Goal                Goal    `json:"goal" yaml:"goal"`
	HasDiabetes         bool    `json:"has_diabetes" yaml:"has_diabetes"`
	HasHypertension     bool    `json:"has_hypertension" yaml:"has_hypertension"`
	SensitiveToCaffeine bool    `json:"sensitive_to_caffeine" yaml:"sensitive_to_caffeine"`
}

// Default is the profile used until the user changes anything.
func Default() Profile {
	return Profile{
		Age:                 28,
		Gender:              GenderFemale,
		WeightKg:            60,
		HeightCm:            165,
		Goal:                GoalMaintain,
		SensitiveToCaffeine: true,
	}
}

// Validate reports the first field that is out of range.
func (p Profile) Validate() error {
	switch {
	case p.Age < 0:
		return fmt.Errorf("%w: age must not be negative", ErrInvalid)
	case p.WeightKg < 0:
		return fmt.Errorf("%w: weight_kg must not be negative", ErrInvalid)
	case p.HeightCm < 0:
		return fmt.Errorf("%w: height_cm must not be negative", ErrInvalid)
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return fmt.Errorf("%w: gender %q must be male, female or other", ErrInvalid, p.Gender)
	}
	switch p.Goal {
	case GoalWeightLoss, GoalMaintain, GoalMuscleGain:
	default:
		return fmt.Errorf("%w: goal %q must be weight_loss, maintain or muscle_gain", ErrInvalid, p.Goal)
	}
	return nil
}

// BMI returns body mass index, or 0 when height is unknown.
func (p Profile) BMI() float64 {
	if p.HeightCm <= 0 {
		return 0
	}
	m := p.HeightCm / 100
	return math.Round(p.WeightKg/(m*m)*10) / 10
}
