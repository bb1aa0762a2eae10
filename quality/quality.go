// Package quality decides whether a captured frame is worth handing to the
// solver. Classification is pure: the same frame and thresholds always yield
// the same verdict, and nothing here touches shared state.
package quality

import (
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// Thresholds are the calibration bounds the classifier works against.
type Thresholds struct {
	// BrightnessCutoff is the binarisation level; pixels at or above it
	// count as lit.
	BrightnessCutoff uint8

	// DarkUpperBound is the dark-pixel fraction above which a frame is
	// considered overwhelmingly dark (blur or too few stars).
	DarkUpperBound float64

	// DarkLowerBound is the dark-pixel fraction below which a frame is
	// considered overwhelmingly bright and unsuitable.
	DarkLowerBound float64

	// BlurCutoff is the Laplacian-variance level below which a dark frame
	// is blamed on blur rather than a lack of stars.
	BlurCutoff float64
}

// DefaultThresholds match the flight calibration of the original tracker.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BrightnessCutoff: 80,
		DarkUpperBound:   0.99996744,
		DarkLowerBound:   0.99918619,
		BlurCutoff:       5.0,
	}
}

// Classify maps a frame to exactly one quality verdict.
//
// A frame that is almost entirely dark either lacks stars or is blurred; the
// Laplacian variance of the luminance field arbitrates between the two. A
// variance of exactly zero is never blamed on blur, so a synthetic all-black
// frame deterministically classifies as too few stars. A frame that is almost
// entirely lit cannot be a night-sky exposure at all.
func Classify(f *model.Frame, t Thresholds) model.QualityVerdict {
	total := f.Width * f.Height
	if total == 0 {
		return model.VerdictUnsuitable
	}

	dark := 0
	for _, p := range f.Pix {
		if p < t.BrightnessCutoff {
			dark++
		}
	}
	darkFraction := float64(dark) / float64(total)

	if darkFraction > t.DarkUpperBound {
		blur := laplacianVariance(f)
		if blur != 0 && blur < t.BlurCutoff {
			return model.VerdictTooBlurry
		}
		return model.VerdictTooFewStars
	}
	if darkFraction < t.DarkLowerBound {
		return model.VerdictUnsuitable
	}
	return model.VerdictGood
}

// laplacianVariance computes the variance of the 4-neighbour Laplacian over
// the interior of the frame. Sharp point sources produce large values; smooth
// or featureless fields produce values near zero.
func laplacianVariance(f *model.Frame) float64 {
	if f.Width < 3 || f.Height < 3 {
		return 0
	}

	n := 0
	sum := 0.0
	sumSq := 0.0
	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < f.Width-1; x++ {
			l := float64(f.At(x-1, y)) + float64(f.At(x+1, y)) +
				float64(f.At(x, y-1)) + float64(f.At(x, y+1)) -
				4*float64(f.At(x, y))
			sum += l
			sumSq += l * l
			n++
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
