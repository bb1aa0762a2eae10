package model

import "testing"

func TestActionForVerdict(t *testing.T) {
	cases := []struct {
		verdict QualityVerdict
		want    CorrectiveAction
	}{
		{VerdictGood, ActionNone},
		{VerdictTooBlurry, ActionIncreaseSharpness},
		{VerdictTooFewStars, ActionIncreaseGain},
		{VerdictUnsuitable, ActionNone},
	}

	for _, tc := range cases {
		if got := ActionForVerdict(tc.verdict); got != tc.want {
			t.Errorf("ActionForVerdict(%v) = %v, want %v", tc.verdict, got, tc.want)
		}
	}
}

func TestVerdictStrings(t *testing.T) {
	cases := map[QualityVerdict]string{
		VerdictGood:        "good",
		VerdictTooBlurry:   "image too blurry",
		VerdictTooFewStars: "image contains too few stars",
		VerdictUnsuitable:  "unsuitable image",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", v, got, want)
		}
	}
}

func TestInvalidAttitude(t *testing.T) {
	a := InvalidAttitude()
	if a.Valid {
		t.Fatal("InvalidAttitude must not be valid")
	}
	if a.MatchedStars != 0 || a.Confidence != 0 {
		t.Errorf("invalid attitude carries match data: %+v", a)
	}
}
