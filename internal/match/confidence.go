package match

import "time"

// ConfidenceFor maps a numeric score to its discrete tier. Pure function of
// the score; monotone in it.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= 85:
		return ConfidenceHigh
	case score >= 70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// InitialStatus assigns the creation-time status for a match: auto_confirmed
// at or above the threshold, pending otherwise. Auto-confirmed matches are
// stamped with a review timestamp at creation; no later transition can
// reassign auto_confirmed.
func InitialStatus(score, autoConfirmThreshold float64, now time.Time) (Status, *time.Time) {
	if score >= autoConfirmThreshold {
		t := now
		return StatusAutoConfirmed, &t
	}
	return StatusPending, nil
}
