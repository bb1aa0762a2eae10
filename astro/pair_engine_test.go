package astro

import (
	"math"
	"testing"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

const (
	testScale    = 1.7e-4 // rad/pixel, ~10 deg across a 1024px sensor
	testMaxAngle = 0.2    // rad
)

// starFromUnit backfills RA/Dec from a unit vector so tests can place stars
// geometrically.
func starFromUnit(id int, u model.Vec3, mag float64) Star {
	dec := math.Asin(u.Z)
	ra := math.Atan2(u.Y, u.X)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	return Star{ID: id, RA: ra, Dec: dec, Mag: mag, Unit: u}
}

// clusterOffsets are irregular centre-relative pixel positions for the
// synthetic field; irregular so pair angles stay distinct.
var clusterOffsets = [][2]float64{
	{0, 0},
	{140, 35},
	{-90, 110},
	{60, -170},
	{-200, -60},
	{170, 190},
}

// testScene builds a catalog with a star cluster visible at the given
// attitude plus far-away background stars, and the matching detections.
func testScene(dec, ra, ori float64) (*Catalog, []model.StarDetection, model.Rotation) {
	r := model.RotationFromAngles(dec, ra, ori)

	cat := &Catalog{Epoch: 1991.25}
	var dets []model.StarDetection
	for i, off := range clusterOffsets {
		v := DirectionFromOffset(off[0], off[1], testScale)
		cat.Stars = append(cat.Stars, starFromUnit(i+1, r.Apply(v), 2.0+0.1*float64(i)))
		dets = append(dets, model.StarDetection{X: off[0], Y: off[1], Brightness: 200 - float64(i)})
	}

	// Background stars well outside the field of view.
	for i, angles := range [][2]float64{
		{-1.1, 0.3}, {0.9, 2.8}, {-0.2, 4.4}, {1.3, 5.6}, {0.1, 1.9}, {-0.7, 3.6},
	} {
		cat.Stars = append(cat.Stars, starFromUnit(100+i, model.UnitFromRADec(angles[1], angles[0]), 4.5))
	}

	return cat, dets, r
}

func newTestEngine() *PairEngine {
	return NewPairEngine(Params{
		PixelScale:   testScale,
		MaxPairAngle: testMaxAngle,
	})
}

func TestCoarseMatchRecoversAttitude(t *testing.T) {
	wantDec, wantRA, wantOri := 0.45, 1.8, -0.6
	cat, dets, _ := testScene(wantDec, wantRA, wantOri)
	eng := newTestEngine()

	ix, err := eng.BuildConstellationIndex(cat.Stars, 1, ModeCatalog)
	if err != nil {
		t.Fatalf("BuildConstellationIndex: %v", err)
	}

	res, err := eng.Match(ix, dets)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.MatchedStars != len(dets) {
		t.Fatalf("matched %d of %d detections (confidence %v)", res.MatchedStars, len(dets), res.Confidence)
	}
	if res.Confidence < 0.99 {
		t.Fatalf("confidence %v below acceptance bar", res.Confidence)
	}

	dec, ra, ori := model.AnglesFromRotation(res.Rotation)
	const tol = 1e-6
	if math.Abs(dec-wantDec) > tol || math.Abs(ra-wantRA) > tol || math.Abs(ori-wantOri) > tol {
		t.Errorf("recovered (%v, %v, %v), want (%v, %v, %v)", dec, ra, ori, wantDec, wantRA, wantOri)
	}
}

func TestRefinedConeMatchAgrees(t *testing.T) {
	wantDec, wantRA, wantOri := -0.3, 4.1, 1.2
	cat, dets, r := testScene(wantDec, wantRA, wantOri)
	eng := newTestEngine()

	cone := cat.Within(r.Boresight(), testMaxAngle/2)
	if len(cone) != len(clusterOffsets) {
		t.Fatalf("cone holds %d stars, want %d", len(cone), len(clusterOffsets))
	}

	ix, err := eng.BuildConstellationIndex(cone, 1, ModeCatalog)
	if err != nil {
		t.Fatalf("BuildConstellationIndex: %v", err)
	}
	res, err := eng.Match(ix, dets)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Confidence < 0.99 || res.MatchedStars < len(dets) {
		t.Fatalf("refined match rejected: %+v", res)
	}

	dec, ra, ori := model.AnglesFromRotation(res.Rotation)
	const tol = 1e-6
	if math.Abs(dec-wantDec) > tol || math.Abs(ra-wantRA) > tol || math.Abs(ori-wantOri) > tol {
		t.Errorf("recovered (%v, %v, %v), want (%v, %v, %v)", dec, ra, ori, wantDec, wantRA, wantOri)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	cat, dets, _ := testScene(0.2, 2.5, 0.1)
	eng := newTestEngine()
	ix, err := eng.BuildConstellationIndex(cat.Stars, 1, ModeCatalog)
	if err != nil {
		t.Fatalf("BuildConstellationIndex: %v", err)
	}

	first, err := eng.Match(ix, dets)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := eng.Match(ix, dets)
		if err != nil {
			t.Fatalf("Match: %v", err)
		}
		if again != first {
			t.Fatalf("match result changed across calls: %+v then %+v", first, again)
		}
	}
}

func TestUnrecognisablePatternScoresZero(t *testing.T) {
	cat, _, _ := testScene(0.45, 1.8, 0)
	eng := newTestEngine()
	ix, err := eng.BuildConstellationIndex(cat.Stars, 1, ModeCatalog)
	if err != nil {
		t.Fatalf("BuildConstellationIndex: %v", err)
	}

	// Detections spread wider than any retainable pair.
	wild := []model.StarDetection{
		{X: -2000, Y: -2000}, {X: 2000, Y: 2000}, {X: 2000, Y: -2000},
	}
	res, err := eng.Match(ix, wild)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Confidence != 0 || res.MatchedStars != 0 {
		t.Fatalf("wild pattern matched: %+v", res)
	}
}

func TestTooFewDetections(t *testing.T) {
	cat, dets, _ := testScene(0.45, 1.8, 0)
	eng := newTestEngine()
	ix, err := eng.BuildConstellationIndex(cat.Stars, 1, ModeCatalog)
	if err != nil {
		t.Fatalf("BuildConstellationIndex: %v", err)
	}

	res, err := eng.Match(ix, dets[:1])
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.MatchedStars != 0 {
		t.Fatalf("single detection should not match: %+v", res)
	}
}

func TestForeignIndexRejected(t *testing.T) {
	eng := newTestEngine()
	if _, err := eng.Match(fakeIndex{}, nil); err == nil {
		t.Fatal("expected an error for a foreign index")
	}
}

type fakeIndex struct{}

func (fakeIndex) Size() int { return 0 }

func TestOffsetDirectionRoundTrip(t *testing.T) {
	v := DirectionFromOffset(123.5, -87.25, testScale)
	x, y := OffsetFromDirection(v, testScale)
	if math.Abs(x-123.5) > 1e-9 || math.Abs(y+87.25) > 1e-9 {
		t.Errorf("round trip gave (%v, %v)", x, y)
	}
}
