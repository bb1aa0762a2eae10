package astro

import (
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// IndexMode selects how stars are paired when building a constellation index.
type IndexMode int

const (
	// ModeCatalog pairs each star with its nearest neighbours, bounded by
	// the index redundancy. Used for catalog-side indexes.
	ModeCatalog IndexMode = iota
	// ModeImage pairs stars exhaustively. Engines use this internally for
	// the handful of detections in a frame.
	ModeImage
)

// Index is an opaque constellation index handle produced by an Engine. The
// solver never looks inside one.
type Index interface {
	// Size reports how many stars the index covers.
	Size() int
}

// MatchResult is the outcome of matching a detection set against an index.
// Confidence is in [0, 1]; a result below the caller's acceptance bar means
// no reliable attitude, and Rotation must then be ignored.
type MatchResult struct {
	Rotation     model.Rotation
	Confidence   float64
	MatchedStars int
}

// Engine is the astrometry-engine contract consumed by the solver. The
// in-tree implementation is PairEngine; tests substitute fakes.
type Engine interface {
	// BuildConstellationIndex builds a searchable index over the given
	// stars. Redundancy controls how many neighbour pairs are retained per
	// star beyond the minimum two.
	BuildConstellationIndex(stars []Star, redundancy int, mode IndexMode) (Index, error)

	// Match searches the index for the star pattern best explaining the
	// detections and returns the candidate rotation with its confidence and
	// matched-star count. Match never mutates the index.
	Match(index Index, detections []model.StarDetection) (MatchResult, error)
}
