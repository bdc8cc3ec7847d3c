// Package validator applies the anti-fraud and eligibility rules that decide
// whether a claimed trip earns a reward, and how much.
//
// Verify is a pure function: no clock, no I/O, no side effects. It evaluates
// the claimed distance/speed figures from the submission; the pipeline
// separately cross-checks those claims against GPS-derived metrics.
package validator

import (
	"fmt"
	"math"

	"greenhop/internal/trip/models"
)

// Eligibility thresholds. A trip failing any of these earns nothing.
const (
	MinDurationMinutes = 5.0
	MaxSpeedKmh        = 15.0
	MinDistanceMeters  = 500.0
	MinCoordinates     = 2

	// CyclingMultiplier scales the per-kilometer reward for cycling trips.
	CyclingMultiplier = 1.5

	// co2GramsPerKm is the estimated CO2 saved per low-carbon kilometer,
	// versus the same distance driven.
	co2GramsPerKm = 0.12 * 1000
)

// Rule names for rejection metrics and events.
const (
	RuleMinDuration    = "min_duration"
	RuleMaxSpeed       = "max_speed"
	RuleMinDistance    = "min_distance"
	RuleMinCoordinates = "min_coordinates"
)

// Verify applies the eligibility rules in order, first failure wins, and
// computes the reward for trips that pass. The outcome is never mutated
// after creation.
func Verify(sub models.Submission) models.VerificationOutcome {
	duration := sub.DurationMinutes()

	if duration < MinDurationMinutes {
		return reject(RuleMinDuration, fmt.Sprintf("Trip duration %.1f minutes is less than minimum %.0f minutes", duration, MinDurationMinutes))
	}
	if sub.AvgSpeedKmh > MaxSpeedKmh {
		return reject(RuleMaxSpeed, fmt.Sprintf("Average speed %.1f km/h exceeds maximum %.0f km/h", sub.AvgSpeedKmh, MaxSpeedKmh))
	}
	if sub.DistanceMeters < MinDistanceMeters {
		return reject(RuleMinDistance, fmt.Sprintf("Distance %.0fm is less than minimum %.0fm", sub.DistanceMeters, MinDistanceMeters))
	}
	if len(sub.Coordinates) < MinCoordinates {
		return reject(RuleMinCoordinates, "Insufficient GPS coordinates for verification")
	}

	return models.VerificationOutcome{
		Valid:        true,
		RewardAmount: Reward(sub.DistanceMeters, sub.Type),
		Reason: fmt.Sprintf("Valid %s trip: %.0fm in %.1f minutes at %.1f km/h",
			sub.Type, sub.DistanceMeters, duration, sub.AvgSpeedKmh),
	}
}

// Reward computes the token reward for a verified trip. Whole kilometers
// only: the distance is truncated to whole km before the type multiplier is
// applied, and the product is floored again, so fractional kilometers never
// earn partial tokens.
func Reward(distanceMeters float64, tripType models.TripType) int64 {
	wholeKm := math.Floor(distanceMeters / 1000)
	multiplier := 1.0
	if tripType == models.TripTypeCycling {
		multiplier = CyclingMultiplier
	}
	return int64(math.Floor(wholeKm * multiplier))
}

// EstimatedCO2SavedGrams estimates the CO2 avoided by covering the given
// distance on foot or by bicycle instead of driving.
func EstimatedCO2SavedGrams(distanceMeters float64) int64 {
	return int64(math.Round(distanceMeters / 1000 * co2GramsPerKm))
}

func reject(rule, reason string) models.VerificationOutcome {
	return models.VerificationOutcome{Valid: false, RewardAmount: 0, Reason: reason, Rule: rule}
}
