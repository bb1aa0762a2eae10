package astro

import (
	"fmt"
	"math"
	"sort"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// Params tune the pair-distance matching engine. Zero values are replaced
// with defaults derived from the pixel scale.
type Params struct {
	// PixelScale is radians per pixel at the image centre.
	PixelScale float64

	// MaxPairAngle is the largest star-pair separation retained in an
	// index. Pairs wider than the sensor can see never match anything.
	MaxPairAngle float64

	// PairTolerance is how closely an image pair angle must agree with a
	// catalog pair angle to cast correspondence votes.
	PairTolerance float64

	// MatchTolerance is the reprojection distance within which a detection
	// counts as matched to a catalog star.
	MatchTolerance float64
}

// PairEngine matches detected star groups against a constellation index by
// voting on pairwise angular distances and confirming candidate rotations by
// reprojection. It is deterministic for a given index and detection set.
type PairEngine struct {
	p Params
}

// NewPairEngine builds an engine, filling in tolerance defaults. Centroid
// quantisation is about half a pixel, so the defaults leave a few pixels of
// slack.
func NewPairEngine(p Params) *PairEngine {
	if p.PairTolerance == 0 {
		p.PairTolerance = 3 * p.PixelScale
	}
	if p.MatchTolerance == 0 {
		p.MatchTolerance = 4 * p.PixelScale
	}
	return &PairEngine{p: p}
}

type starPair struct {
	a, b  int // indexes into pairIndex.stars
	angle float64
}

type pairIndex struct {
	stars []Star
	pairs []starPair // sorted by angle
}

func (ix *pairIndex) Size() int { return len(ix.stars) }

// BuildConstellationIndex implements Engine. In catalog mode each star is
// paired with its 2+redundancy nearest neighbours inside MaxPairAngle; in
// image mode all pairs inside MaxPairAngle are kept.
func (e *PairEngine) BuildConstellationIndex(stars []Star, redundancy int, mode IndexMode) (Index, error) {
	if len(stars) == 0 {
		return nil, fmt.Errorf("cannot index an empty star set")
	}

	ix := &pairIndex{stars: stars}

	switch mode {
	case ModeImage:
		for i := 0; i < len(stars); i++ {
			for j := i + 1; j < len(stars); j++ {
				a := stars[i].Unit.Angle(stars[j].Unit)
				if a <= e.p.MaxPairAngle {
					ix.pairs = append(ix.pairs, starPair{a: i, b: j, angle: a})
				}
			}
		}
	case ModeCatalog:
		keep := 2 + redundancy
		seen := make(map[[2]int]bool)
		for i := 0; i < len(stars); i++ {
			var neighbours []starPair
			for j := 0; j < len(stars); j++ {
				if j == i {
					continue
				}
				a := stars[i].Unit.Angle(stars[j].Unit)
				if a <= e.p.MaxPairAngle {
					neighbours = append(neighbours, starPair{a: i, b: j, angle: a})
				}
			}
			sort.Slice(neighbours, func(x, y int) bool { return neighbours[x].angle < neighbours[y].angle })
			if len(neighbours) > keep {
				neighbours = neighbours[:keep]
			}
			for _, p := range neighbours {
				key := [2]int{p.a, p.b}
				if p.b < p.a {
					key = [2]int{p.b, p.a}
				}
				if !seen[key] {
					seen[key] = true
					ix.pairs = append(ix.pairs, starPair{a: key[0], b: key[1], angle: p.angle})
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown index mode %d", mode)
	}

	sort.Slice(ix.pairs, func(x, y int) bool { return ix.pairs[x].angle < ix.pairs[y].angle })
	return ix, nil
}

// maxRotationTrials bounds how many candidate correspondences are confirmed
// by reprojection per match.
const maxRotationTrials = 64

// Match implements Engine.
func (e *PairEngine) Match(index Index, detections []model.StarDetection) (MatchResult, error) {
	ix, ok := index.(*pairIndex)
	if !ok {
		return MatchResult{}, fmt.Errorf("index was not built by this engine")
	}
	if len(detections) < 2 || len(ix.stars) < 2 {
		return MatchResult{}, nil
	}

	dirs := make([]model.Vec3, len(detections))
	for i, d := range detections {
		dirs[i] = DirectionFromOffset(d.X, d.Y, e.p.PixelScale)
	}

	votes := e.voteCorrespondences(ix, dirs)
	candidates := topCandidates(votes, len(dirs))

	best := MatchResult{}
	trials := 0
	for i := 0; i < len(dirs) && trials < maxRotationTrials; i++ {
		for j := i + 1; j < len(dirs) && trials < maxRotationTrials; j++ {
			imgAngle := dirs[i].Angle(dirs[j])
			for _, a := range candidates[i] {
				for _, b := range candidates[j] {
					if a == b {
						continue
					}
					catAngle := ix.stars[a].Unit.Angle(ix.stars[b].Unit)
					if math.Abs(catAngle-imgAngle) > e.p.PairTolerance {
						continue
					}
					trials++
					r, ok := triad(dirs[i], dirs[j], ix.stars[a].Unit, ix.stars[b].Unit)
					if !ok {
						continue
					}
					matched := e.countInliers(ix, dirs, r)
					conf := float64(matched) / float64(len(dirs))
					if matched > best.MatchedStars || (matched == best.MatchedStars && conf > best.Confidence) {
						best = MatchResult{Rotation: r, Confidence: conf, MatchedStars: matched}
					}
					if trials >= maxRotationTrials {
						break
					}
				}
			}
		}
	}
	return best, nil
}

// voteCorrespondences accumulates detection-to-star votes from agreeing pair
// angles. Both orientations of each pairing are counted; the wrong one loses
// in the reprojection check later.
func (e *PairEngine) voteCorrespondences(ix *pairIndex, dirs []model.Vec3) map[[2]int]int {
	votes := make(map[[2]int]int)
	for i := 0; i < len(dirs); i++ {
		for j := i + 1; j < len(dirs); j++ {
			angle := dirs[i].Angle(dirs[j])
			if angle > e.p.MaxPairAngle {
				continue
			}
			lo := sort.Search(len(ix.pairs), func(k int) bool {
				return ix.pairs[k].angle >= angle-e.p.PairTolerance
			})
			for k := lo; k < len(ix.pairs) && ix.pairs[k].angle <= angle+e.p.PairTolerance; k++ {
				p := ix.pairs[k]
				votes[[2]int{i, p.a}]++
				votes[[2]int{j, p.b}]++
				votes[[2]int{i, p.b}]++
				votes[[2]int{j, p.a}]++
			}
		}
	}
	return votes
}

// topCandidates keeps, per detection, the three best-voted catalog stars with
// at least two supporting pairs.
func topCandidates(votes map[[2]int]int, nDets int) [][]int {
	type scored struct {
		star  int
		count int
	}
	perDet := make([][]scored, nDets)
	for key, n := range votes {
		if n < 2 {
			continue
		}
		perDet[key[0]] = append(perDet[key[0]], scored{star: key[1], count: n})
	}

	out := make([][]int, nDets)
	for i, list := range perDet {
		sort.Slice(list, func(x, y int) bool {
			if list[x].count != list[y].count {
				return list[x].count > list[y].count
			}
			return list[x].star < list[y].star
		})
		if len(list) > 3 {
			list = list[:3]
		}
		for _, s := range list {
			out[i] = append(out[i], s.star)
		}
	}
	return out
}

// countInliers reprojects every detection through the candidate rotation and
// counts those landing on a distinct catalog star.
func (e *PairEngine) countInliers(ix *pairIndex, dirs []model.Vec3, r model.Rotation) int {
	used := make(map[int]bool)
	matched := 0
	for _, v := range dirs {
		pred := r.Apply(v)
		bestStar := -1
		bestAngle := e.p.MatchTolerance
		for s := range ix.stars {
			if used[s] {
				continue
			}
			if a := pred.Angle(ix.stars[s].Unit); a <= bestAngle {
				bestAngle = a
				bestStar = s
			}
		}
		if bestStar >= 0 {
			used[bestStar] = true
			matched++
		}
	}
	return matched
}

// triad solves the two-vector attitude problem: the returned rotation maps
// the camera directions v1, v2 onto the celestial directions u1, u2 (the
// first exactly, the second up to measurement error). It fails when either
// vector pair is too close to collinear to define a frame.
func triad(v1, v2, u1, u2 model.Vec3) (model.Rotation, bool) {
	const minSin = 1e-8

	cv := v1.Cross(v2)
	cu := u1.Cross(u2)
	if cv.Norm() < minSin || cu.Norm() < minSin {
		return model.Rotation{}, false
	}

	v2c := cv.Normalized()
	v3c := v1.Cross(v2c)
	u2c := cu.Normalized()
	u3c := u1.Cross(u2c)

	// R = Mu * Mv^T with M* = [first, cross, third] as columns.
	var r model.Rotation
	mu := [3]model.Vec3{u1, u2c, u3c}
	mv := [3]model.Vec3{v1, v2c, v3c}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row][col] = comp(mu[0], row)*comp(mv[0], col) +
				comp(mu[1], row)*comp(mv[1], col) +
				comp(mu[2], row)*comp(mv[2], col)
		}
	}
	return r, true
}

func comp(v model.Vec3, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
