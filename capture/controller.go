package capture

import (
	"context"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// LogController records corrective actions without touching hardware. Sample
// playback has no camera to adjust, so every request is accepted; a real
// sensor backend substitutes its own Controller.
type LogController struct {
	log logging.Logger
}

// NewLogController wires a logger; nil falls back to the noop logger.
func NewLogController(log logging.Logger) *LogController {
	if log == nil {
		log = logging.Noop()
	}
	return &LogController{log: log}
}

// Adjust acknowledges the requested adjustment.
func (c *LogController) Adjust(ctx context.Context, action model.CorrectiveAction) error {
	if action == model.ActionNone {
		return nil
	}
	c.log.Debug(ctx, "camera adjustment requested", logging.String("action", action.String()))
	return nil
}
