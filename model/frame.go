package model

import "time"

// Frame is a single-channel luminance image captured from the sky sensor or
// pulled from a sample directory. A Frame is owned by the loop iteration that
// produced it and must not be mutated after construction.
type Frame struct {
	// Pix holds row-major 8-bit luminance values, len == Width*Height.
	Pix    []uint8
	Width  int
	Height int

	// CapturedAt is source time, not processing time.
	CapturedAt time.Time

	// SourceID identifies where the frame came from: a file path in sample
	// playback, or a sensor tag for live capture.
	SourceID string
}

// At returns the luminance at (x, y). Callers are expected to stay in bounds.
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// StarDetection is one bright blob reduced to a point source. X and Y are
// offsets from the image centre in pixels, matching the solver's camera model.
type StarDetection struct {
	X          float64
	Y          float64
	Brightness float64
}
