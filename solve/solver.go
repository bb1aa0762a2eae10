// Package solve adapts raw frames for the astrometry engine and applies the
// two-stage acceptance policy. A solve never fails with an error: anything
// that does not clear the acceptance bars comes back as an invalid attitude
// and the pipeline decides how to react.
package solve

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/astro"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

const tracerName = "github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/solve"

// Config carries the solver calibration constants.
type Config struct {
	// MatchThreshold is the acceptance bar applied to both match stages.
	MatchThreshold float64

	// RequiredStars is the minimum matched-star count for a coarse match.
	RequiredStars int

	// MaxFalseStars bounds how many spurious detections are tolerated; the
	// solver keeps MaxFalseStars+RequiredStars brightest detections.
	MaxFalseStars int

	// ThreshFactor scaled by ImageVariance gives the binarisation cutoff
	// for blob extraction on the residual image.
	ThreshFactor  float64
	ImageVariance float64

	// FOV is the sensor's full field of view in radians; the refined match
	// searches a cone of half that around the coarse boresight.
	FOV float64

	// PixelScale is radians per pixel at the image centre.
	PixelScale float64

	// DBRedundancy controls constellation-index pairing depth.
	DBRedundancy int
}

// Solver turns frames into attitude solutions via the astrometry engine.
// Construct once at startup; Solve is then called from the single pipeline
// goroutine.
type Solver struct {
	cfg       Config
	engine    astro.Engine
	catalog   *astro.Catalog
	reference *model.Frame
	coarse    astro.Index
	log       logging.Logger
}

// New builds the full-sky constellation index up front. Reference may be nil
// to skip fixed-pattern suppression; when present its geometry must match
// incoming frames, which the per-frame check enforces.
func New(cfg Config, engine astro.Engine, catalog *astro.Catalog, reference *model.Frame, log logging.Logger) (*Solver, error) {
	if engine == nil {
		return nil, fmt.Errorf("solver needs an astrometry engine")
	}
	if catalog == nil || len(catalog.Stars) == 0 {
		return nil, fmt.Errorf("solver needs a non-empty catalog")
	}
	if cfg.RequiredStars < 2 {
		return nil, fmt.Errorf("required stars must be at least 2, got %d", cfg.RequiredStars)
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("match threshold %v outside (0, 1]", cfg.MatchThreshold)
	}
	if log == nil {
		log = logging.Noop()
	}

	coarse, err := engine.BuildConstellationIndex(catalog.Stars, cfg.DBRedundancy, astro.ModeCatalog)
	if err != nil {
		return nil, fmt.Errorf("build full-sky index: %w", err)
	}

	return &Solver{
		cfg:       cfg,
		engine:    engine,
		catalog:   catalog,
		reference: reference,
		coarse:    coarse,
		log:       log,
	}, nil
}

// Solve runs detection and the coarse/refined match stages on one frame.
func (s *Solver) Solve(ctx context.Context, f *model.Frame) model.Attitude {
	start := time.Now()
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "solve", trace.WithAttributes(
		attribute.String("source_id", f.SourceID),
	))
	defer span.End()

	dets := s.detect(ctx, f)
	span.SetAttributes(attribute.Int("detections", len(dets)))
	if len(dets) < s.cfg.RequiredStars {
		s.log.Debug(ctx, "too few detections to attempt a match",
			logging.Int("detections", len(dets)),
			logging.Int("required", s.cfg.RequiredStars))
		return s.invalid(start)
	}

	coarse, ok := s.matchStage(ctx, "solve/coarse_match", s.coarse, dets)
	if !ok || coarse.MatchedStars < s.cfg.RequiredStars {
		return s.invalid(start)
	}

	// The refined cone-limited match is authoritative: a coarse match that
	// cannot be confirmed inside the field of view is discarded outright.
	refined, ok := s.refine(ctx, coarse, dets)
	if !ok {
		return s.invalid(start)
	}

	dec, ra, ori := model.AnglesFromRotation(refined.Rotation)
	att := model.Attitude{
		Dec:          dec,
		RA:           ra,
		Ori:          ori,
		Confidence:   refined.Confidence,
		MatchedStars: refined.MatchedStars,
		SolveTime:    time.Since(start),
		Valid:        true,
	}
	span.SetAttributes(
		attribute.Float64("confidence", att.Confidence),
		attribute.Int("matched_stars", att.MatchedStars),
	)
	return att
}

func (s *Solver) detect(ctx context.Context, f *model.Frame) []model.StarDetection {
	_, span := otel.Tracer(tracerName).Start(ctx, "solve/detect")
	defer span.End()

	ref := s.reference
	if ref != nil && (ref.Width != f.Width || ref.Height != f.Height) {
		s.log.Warn(ctx, "reference image geometry mismatch, skipping subtraction",
			logging.Int("frame_width", f.Width),
			logging.Int("reference_width", ref.Width))
		ref = nil
	}

	residual := subtractReference(f, ref)
	cutoff := s.cfg.ThreshFactor * s.cfg.ImageVariance
	if cutoff < 1 {
		cutoff = 1
	} else if cutoff > 255 {
		cutoff = 255
	}

	blobs := extractBlobs(residual, f.Width, f.Height, uint8(cutoff))
	keep := s.cfg.MaxFalseStars + s.cfg.RequiredStars
	dets := detectionsFromBlobs(blobs, f.Width, f.Height, keep)

	span.SetAttributes(
		attribute.Int("blobs", len(blobs)),
		attribute.Int("kept", len(dets)),
	)
	return dets
}

func (s *Solver) matchStage(ctx context.Context, name string, ix astro.Index, dets []model.StarDetection) (astro.MatchResult, bool) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()

	res, err := s.engine.Match(ix, dets)
	if err != nil {
		span.RecordError(err)
		s.log.Warn(ctx, "astrometry match failed", logging.String("stage", name), logging.String("error", err.Error()))
		return astro.MatchResult{}, false
	}

	span.SetAttributes(
		attribute.Float64("confidence", res.Confidence),
		attribute.Int("matched_stars", res.MatchedStars),
	)
	return res, res.Confidence > s.cfg.MatchThreshold
}

func (s *Solver) refine(ctx context.Context, coarse astro.MatchResult, dets []model.StarDetection) (astro.MatchResult, bool) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "solve/refine")
	defer span.End()

	cone := s.catalog.Within(coarse.Rotation.Boresight(), s.cfg.FOV/2)
	span.SetAttributes(attribute.Int("cone_stars", len(cone)))
	if len(cone) == 0 {
		return astro.MatchResult{}, false
	}

	ix, err := s.engine.BuildConstellationIndex(cone, s.cfg.DBRedundancy, astro.ModeCatalog)
	if err != nil {
		span.RecordError(err)
		s.log.Warn(ctx, "refined index build failed", logging.String("error", err.Error()))
		return astro.MatchResult{}, false
	}

	return s.matchStage(ctx, "solve/refined_match", ix, dets)
}

func (s *Solver) invalid(start time.Time) model.Attitude {
	att := model.InvalidAttitude()
	att.SolveTime = time.Since(start)
	return att
}
