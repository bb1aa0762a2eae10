// Package capture provides the image-source side of the tracker: where frames
// come from and where corrective camera hints go. The physical camera driver
// lives behind the Source interface; the shipped implementation replays a
// sample directory, which is also how the flight unit is exercised on the
// bench.
package capture

import (
	"context"
	"errors"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// ErrNoFrame indicates the source had nothing to hand out this cycle. The
// pipeline treats it as a recoverable acquisition error.
var ErrNoFrame = errors.New("no frame available")

// Source yields timestamped frames. Implementations must be safe for use from
// the single pipeline goroutine; they are not required to support concurrent
// callers.
type Source interface {
	// Next returns the next frame, or ErrNoFrame when none is available.
	Next(ctx context.Context) (*model.Frame, error)
}

// Controller receives capture-configuration adjustments derived from quality
// verdicts. Implementations adjust gain, focus, or exposure where hardware
// allows.
type Controller interface {
	Adjust(ctx context.Context, action model.CorrectiveAction) error
}
