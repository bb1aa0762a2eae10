package model

import "time"

// Attitude is one recovered spacecraft orientation. Valid distinguishes a
// genuine solution from a failed solve; the angles of an invalid attitude are
// meaningless and must never be read as a zero-angle solution.
type Attitude struct {
	// Dec, RA, and Ori are in radians. Dec and RA locate the camera
	// boresight on the celestial sphere; Ori is the roll about the boresight.
	Dec float64
	RA  float64
	Ori float64

	// Confidence is the accepted match probability from the astrometry
	// engine, MatchedStars the number of catalog stars it paired up.
	Confidence   float64
	MatchedStars int

	// SolveTime is the wall time the solve took.
	SolveTime time.Duration

	Valid bool
}

// InvalidAttitude is the explicit no-reliable-match result.
func InvalidAttitude() Attitude {
	return Attitude{Valid: false}
}

// SolutionRecord is the single current published state: the latest valid
// attitude together with when it was produced and which frame produced it.
// Records are replaced wholesale, never field-by-field.
type SolutionRecord struct {
	Attitude  Attitude
	Timestamp time.Time
	SourceID  string

	// Seq increases by one per successful solve. The initial never-solved
	// record has Seq 0 and an invalid attitude.
	Seq uint64
}
