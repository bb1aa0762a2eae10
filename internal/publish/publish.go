// Package publish pushes attitude solutions and diagnostics to downstream
// consumers. The flight configuration exports them over D-Bus; a log-only
// backend exists for bench setups without a bus.
package publish

import (
	"context"
	"fmt"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/config"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// Publisher delivers pipeline results to whoever is listening.
type Publisher interface {
	// PublishSolution announces a freshly accepted attitude solution.
	PublishSolution(ctx context.Context, rec model.SolutionRecord) error

	// PublishError announces a diagnostic for a cycle that produced no
	// solution. The reason string is the quality verdict or solver failure.
	PublishError(ctx context.Context, reason string) error

	// Close releases any transport resources held by the publisher.
	Close() error
}

// New builds the publisher selected by the configuration.
func New(cfg config.PublisherConfig, log logging.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "log", "":
		return NewLogPublisher(log), nil
	case "dbus":
		return NewDBusPublisher(cfg, log)
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", cfg.Backend)
	}
}

// LogPublisher writes solutions and diagnostics to the structured log and
// nothing else. It never fails.
type LogPublisher struct {
	log logging.Logger
}

// NewLogPublisher returns a publisher backed only by the given logger.
func NewLogPublisher(log logging.Logger) *LogPublisher {
	if log == nil {
		log = logging.Noop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishSolution(ctx context.Context, rec model.SolutionRecord) error {
	p.log.Info(ctx, "attitude solution",
		logging.Float("dec", rec.Attitude.Dec),
		logging.Float("ra", rec.Attitude.RA),
		logging.Float("ori", rec.Attitude.Ori),
		logging.Float("confidence", rec.Attitude.Confidence),
		logging.Int("matched_stars", rec.Attitude.MatchedStars),
		logging.String("source", rec.SourceID),
		logging.Int("seq", int(rec.Seq)),
	)
	return nil
}

func (p *LogPublisher) PublishError(ctx context.Context, reason string) error {
	p.log.Warn(ctx, "cycle produced no solution", logging.String("reason", reason))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
