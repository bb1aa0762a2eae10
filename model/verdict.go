package model

// QualityVerdict is the outcome of classifying a frame before solving.
type QualityVerdict int

const (
	VerdictGood QualityVerdict = iota
	VerdictTooBlurry
	VerdictTooFewStars
	VerdictUnsuitable
)

// String returns the diagnostic wording used on the error signal and in logs.
func (v QualityVerdict) String() string {
	switch v {
	case VerdictGood:
		return "good"
	case VerdictTooBlurry:
		return "image too blurry"
	case VerdictTooFewStars:
		return "image contains too few stars"
	case VerdictUnsuitable:
		return "unsuitable image"
	default:
		return "unknown verdict"
	}
}

// CorrectiveAction is a capture-configuration hint derived from a verdict.
type CorrectiveAction int

const (
	ActionNone CorrectiveAction = iota
	ActionIncreaseSharpness
	ActionIncreaseGain
)

// String describes the requested camera adjustment.
func (a CorrectiveAction) String() string {
	switch a {
	case ActionIncreaseSharpness:
		return "increase sharpness"
	case ActionIncreaseGain:
		return "increase gain"
	default:
		return "none"
	}
}

// ActionForVerdict maps a quality verdict to the camera adjustment that might
// make the next frame usable. Verdicts without a known remedy map to ActionNone.
func ActionForVerdict(v QualityVerdict) CorrectiveAction {
	switch v {
	case VerdictTooBlurry:
		return ActionIncreaseSharpness
	case VerdictTooFewStars:
		return ActionIncreaseGain
	default:
		return ActionNone
	}
}
