// Package progress implements the per-update trip algorithm: distance and
// ETA recomputation, geofence triggering and stage derivation.
package progress

import (
	"time"

	"tracking/internal/domain"
	"tracking/internal/geo"
)

// Engine recomputes trip progress from a fresh location sample. It holds
// tuning only; all per-trip state lives on the TripState, so a single
// Engine serves every trip.
type Engine struct {
	cruisingSpeedKmh float64
	etaBufferPct     float64
	etaDebounceMin   int
}

// NewEngine creates an Engine with the given ETA tuning.
func NewEngine(cruisingSpeedKmh, etaBufferPct float64, etaDebounceMin int) *Engine {
	return &Engine{
		cruisingSpeedKmh: cruisingSpeedKmh,
		etaBufferPct:     etaBufferPct,
		etaDebounceMin:   etaDebounceMin,
	}
}

// Result reports which events a single update produced.
type Result struct {
	PickupTriggered  bool
	DropoffTriggered bool
	ETAChanged       bool
}

// Apply appends the sample to the trip history and recomputes distances,
// geofence state, stage and ETAs. The caller owns validation and must hold
// the trip's registry entry lock: Apply mutates the state in place.
func (e *Engine) Apply(state *domain.TripState, sample domain.LocationSample, now time.Time) Result {
	var result Result

	state.AppendSample(sample)

	state.Progress.DistanceToPickupKm = geo.HaversineKm(
		sample.Lat, sample.Lng, state.PickupZone.Lat, state.PickupZone.Lng)
	state.Progress.DistanceToDropoffKm = geo.HaversineKm(
		sample.Lat, sample.Lng, state.DropoffZone.Lat, state.DropoffZone.Lng)

	state.Progress.IsAtPickup = state.PickupZone.Contains(state.Progress.DistanceToPickupKm)

	if !state.PickupZone.Triggered && state.Progress.IsAtPickup {
		state.PickupZone.Triggered = true
		state.PickupZone.TriggeredAt = now
		result.PickupTriggered = true
	}

	// The dropoff zone is only armed once the pickup zone has triggered, so
	// a trip can never be detected at dropoff before it was at pickup.
	if state.PickupZone.Triggered {
		state.Progress.IsAtDropoff = state.DropoffZone.Contains(state.Progress.DistanceToDropoffKm)
		if !state.DropoffZone.Triggered && state.Progress.IsAtDropoff {
			state.DropoffZone.Triggered = true
			state.DropoffZone.TriggeredAt = now
			result.DropoffTriggered = true
		}
	}

	state.Progress.Stage = deriveStage(state)

	avgSpeed := averageSpeed(state.History)
	state.Progress.ETAToPickupMin = geo.ETAMinutes(
		state.Progress.DistanceToPickupKm, avgSpeed, e.cruisingSpeedKmh, e.etaBufferPct)
	state.Progress.ETAToDropoffMin = geo.ETAMinutes(
		state.Progress.DistanceToDropoffKm, avgSpeed, e.cruisingSpeedKmh, e.etaBufferPct)

	if delta(state.Progress.ETAToPickupMin, state.LastETAEmitted) > e.etaDebounceMin {
		state.LastETAEmitted = state.Progress.ETAToPickupMin
		result.ETAChanged = true
	}

	return result
}

// deriveStage maps geofence state onto the stage sequence. The stage never
// regresses: a driver re-entering the pickup zone after moving on stays in
// the later stage.
func deriveStage(state *domain.TripState) domain.Stage {
	derived := domain.StageEnroute
	switch {
	case state.DropoffZone.Triggered:
		derived = domain.StageAtDropoff
	case state.Progress.IsAtPickup:
		derived = domain.StageAtPickup
	case state.PickupZone.Triggered:
		derived = domain.StagePickedUp
	}

	if stageRank(derived) < stageRank(state.Progress.Stage) {
		return state.Progress.Stage
	}
	return derived
}

func stageRank(s domain.Stage) int {
	switch s {
	case domain.StageAtPickup:
		return 1
	case domain.StagePickedUp:
		return 2
	case domain.StageAtDropoff:
		return 3
	default:
		return 0
	}
}

// averageSpeed is the mean of nonzero reported speeds in the history
// window, or zero when no sample carries a usable speed.
func averageSpeed(history []domain.LocationSample) float64 {
	var sum float64
	var count int
	for _, s := range history {
		if s.SpeedKmh > 0 {
			sum += s.SpeedKmh
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func delta(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
