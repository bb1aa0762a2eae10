// Package pipeline runs the perpetual acquisition loop: capture a frame,
// classify it, solve it, publish the result, back off, repeat. Exactly one
// solve is ever in flight; the loop is deliberately single-threaded so the
// catalog index inside the astrometry engine never sees overlapping use.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/capture"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/publish"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/store"
)

const tracerName = "github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/pipeline"

// State is the loop's current stage, exposed for observability. Values move
// Idle → Capturing → Classifying → {Rejected|Solving} → {Publishing|Failed}
// and back to Idle; Terminating is absorbing.
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateClassifying
	StateRejected
	StateSolving
	StatePublishing
	StateFailed
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateClassifying:
		return "classifying"
	case StateRejected:
		return "rejected"
	case StateSolving:
		return "solving"
	case StatePublishing:
		return "publishing"
	case StateFailed:
		return "failed"
	case StateTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// Cycle outcome tags. The solve-failure reason is the wire string ground
// consumers already match on.
const (
	outcomePublished     = "published"
	outcomeRejected      = "rejected"
	outcomeSolveFailed   = "solve_failed"
	outcomeCaptureFailed = "capture_failed"

	reasonBadSolve      = "bad solve"
	reasonCaptureFailed = "capture failed"
)

// Classifier decides whether a frame is worth handing to the solver.
type Classifier interface {
	Classify(f *model.Frame) model.QualityVerdict
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(f *model.Frame) model.QualityVerdict

func (fn ClassifierFunc) Classify(f *model.Frame) model.QualityVerdict { return fn(f) }

// Solver produces an attitude for a frame. A failed solve is an invalid
// attitude, never an error.
type Solver interface {
	Solve(ctx context.Context, f *model.Frame) model.Attitude
}

// MetricsRecorder receives per-cycle observations. Optional; implemented by
// observability.TrackerCollector.
type MetricsRecorder interface {
	RecordCycle(outcome string)
	RecordRejection(verdict string)
	RecordSolve(confidence float64, matchedStars int, solveTime time.Duration, at time.Time)
}

// Params collects the loop's collaborators. Source, Classifier, Solver,
// Store, and Publisher are required; the rest default sensibly.
type Params struct {
	Source     capture.Source
	Controller capture.Controller
	Classifier Classifier
	Solver     Solver
	Store      *store.SolutionStore
	Publisher  publish.Publisher

	// Backoff is the fixed sleep after every cycle, pass or fail. It
	// rate-limits the loop and gives downstream readers a stable window.
	Backoff time.Duration

	Log     logging.Logger
	Clock   Clock
	Metrics MetricsRecorder
}

// Loop is the pipeline state machine. Run it from exactly one goroutine.
type Loop struct {
	source     capture.Source
	controller capture.Controller
	classifier Classifier
	solver     Solver
	store      *store.SolutionStore
	publisher  publish.Publisher
	backoff    time.Duration
	log        logging.Logger
	clock      Clock
	metrics    MetricsRecorder
	tracer     trace.Tracer

	state   atomic.Int32
	running atomic.Bool
	seq     uint64
}

// New validates the collaborators and builds a loop in StateIdle.
func New(p Params) (*Loop, error) {
	switch {
	case p.Source == nil:
		return nil, errors.New("pipeline: nil frame source")
	case p.Classifier == nil:
		return nil, errors.New("pipeline: nil classifier")
	case p.Solver == nil:
		return nil, errors.New("pipeline: nil solver")
	case p.Store == nil:
		return nil, errors.New("pipeline: nil solution store")
	case p.Publisher == nil:
		return nil, errors.New("pipeline: nil publisher")
	case p.Backoff <= 0:
		return nil, errors.New("pipeline: backoff interval must be positive")
	}

	log := p.Log
	if log == nil {
		log = logging.Noop()
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock()
	}

	return &Loop{
		source:     p.Source,
		controller: p.Controller,
		classifier: p.Classifier,
		solver:     p.Solver,
		store:      p.Store,
		publisher:  p.Publisher,
		backoff:    p.Backoff,
		log:        log,
		clock:      clock,
		metrics:    p.Metrics,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// State reports the loop's current stage.
func (l *Loop) State() State { return State(l.state.Load()) }

// Run drives the loop until ctx is cancelled. Cancellation is honoured at
// iteration boundaries and during backoff, never mid-stage: an in-flight
// solve always finishes, so the join is unbounded in the worst case.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("pipeline: loop already running")
	}
	defer l.running.Store(false)

	l.log.Info(ctx, "pipeline started",
		logging.Duration("backoff", l.backoff),
	)

	for {
		if ctx.Err() != nil {
			break
		}
		l.runCycle(ctx)

		// Fixed backoff after every outcome, slept outside any lock.
		select {
		case <-ctx.Done():
		case <-l.clock.After(l.backoff):
		}
		if ctx.Err() != nil {
			break
		}
	}

	l.state.Store(int32(StateTerminating))
	l.log.Info(ctx, "pipeline stopped")
	return nil
}

func (l *Loop) runCycle(parent context.Context) {
	ctx, log := logging.WithCycleLogger(parent, l.log)
	ctx, span := l.tracer.Start(ctx, "pipeline/cycle")
	defer span.End()

	l.state.Store(int32(StateCapturing))
	frame, err := l.source.Next(ctx)
	if err != nil {
		l.state.Store(int32(StateFailed))
		log.Warn(ctx, "frame capture failed", logging.String("error", err.Error()))
		l.notify(ctx, log, reasonCaptureFailed)
		l.finishCycle(span, outcomeCaptureFailed)
		return
	}

	l.state.Store(int32(StateClassifying))
	verdict := l.classifier.Classify(frame)
	if verdict != model.VerdictGood {
		l.state.Store(int32(StateRejected))
		reason := verdict.String()
		log.Warn(ctx, "frame rejected",
			logging.String("verdict", reason),
			logging.String("source", frame.SourceID),
		)
		l.adjust(ctx, log, verdict)
		l.notify(ctx, log, reason)
		if l.metrics != nil {
			l.metrics.RecordRejection(reason)
		}
		l.finishCycle(span, outcomeRejected)
		return
	}

	l.state.Store(int32(StateSolving))
	att := l.solver.Solve(ctx, frame)
	if !att.Valid {
		l.state.Store(int32(StateFailed))
		log.Warn(ctx, "solve failed", logging.String("source", frame.SourceID))
		l.notify(ctx, log, reasonBadSolve)
		l.finishCycle(span, outcomeSolveFailed)
		return
	}

	l.state.Store(int32(StatePublishing))
	l.seq++
	rec := model.SolutionRecord{
		Attitude:  att,
		Timestamp: l.clock.Now(),
		SourceID:  frame.SourceID,
		Seq:       l.seq,
	}
	if err := l.store.Replace(rec); err != nil {
		// Single-writer discipline makes this unreachable; log loudly.
		log.Error(ctx, "solution store rejected record", logging.String("error", err.Error()))
		l.finishCycle(span, outcomeSolveFailed)
		return
	}
	if err := l.publisher.PublishSolution(ctx, rec); err != nil {
		// Transport failures never stop the loop.
		log.Warn(ctx, "solution publish failed", logging.String("error", err.Error()))
	}
	if l.metrics != nil {
		l.metrics.RecordSolve(att.Confidence, att.MatchedStars, att.SolveTime, rec.Timestamp)
	}
	log.Info(ctx, "solution published",
		logging.Float("dec", att.Dec),
		logging.Float("ra", att.RA),
		logging.Float("ori", att.Ori),
		logging.Float("confidence", att.Confidence),
		logging.Int("matched_stars", att.MatchedStars),
		logging.Duration("solve_time", att.SolveTime),
		logging.String("source", frame.SourceID),
		logging.Int("seq", int(rec.Seq)),
	)
	l.finishCycle(span, outcomePublished)
	l.state.Store(int32(StateIdle))
}

// adjust derives a corrective action from the verdict and hands it to the
// capture controller, when one is wired.
func (l *Loop) adjust(ctx context.Context, log logging.Logger, verdict model.QualityVerdict) {
	action := model.ActionForVerdict(verdict)
	if action == model.ActionNone || l.controller == nil {
		return
	}
	if err := l.controller.Adjust(ctx, action); err != nil {
		log.Warn(ctx, "capture adjustment failed",
			logging.String("action", action.String()),
			logging.String("error", err.Error()),
		)
	}
}

// notify emits a diagnostic for a cycle that produced no solution.
func (l *Loop) notify(ctx context.Context, log logging.Logger, reason string) {
	if err := l.publisher.PublishError(ctx, reason); err != nil {
		log.Warn(ctx, "diagnostic publish failed",
			logging.String("reason", reason),
			logging.String("error", err.Error()),
		)
	}
}

func (l *Loop) finishCycle(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("outcome", outcome))
	if l.metrics != nil {
		l.metrics.RecordCycle(outcome)
	}
}
