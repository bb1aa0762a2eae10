package solve

import (
	"math"
	"sort"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// blob is one connected bright region of the residual image. Centroid and
// second-order central moments follow the usual image-moment definitions over
// the blob's member pixels.
type blob struct {
	cx, cy        float64
	u20, u02, u11 float64
	area          int
	brightness    float64
}

// subtractReference removes the median-sky reference from a frame, clamping
// at zero so fixed-pattern noise cannot wrap around. A nil reference returns
// the frame's own pixels.
func subtractReference(f *model.Frame, ref *model.Frame) []uint8 {
	if ref == nil {
		out := make([]uint8, len(f.Pix))
		copy(out, f.Pix)
		return out
	}

	out := make([]uint8, len(f.Pix))
	for i, p := range f.Pix {
		d := int16(p) - int16(ref.Pix[i])
		if d < 0 {
			d = 0
		}
		out[i] = uint8(d)
	}
	return out
}

// extractBlobs binarises the residual at the cutoff and labels 4-connected
// components, computing centroid and second-order moments per component.
func extractBlobs(pix []uint8, w, h int, cutoff uint8) []blob {
	visited := make([]bool, len(pix))
	var blobs []blob

	var stack [][2]int
	for start := range pix {
		if visited[start] || pix[start] < cutoff {
			continue
		}

		var members [][2]int
		stack = stack[:0]
		stack = append(stack, [2]int{start % w, start / w})
		visited[start] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, p)

			x, y := p[0], p[1]
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				idx := ny*w + nx
				if !visited[idx] && pix[idx] >= cutoff {
					visited[idx] = true
					stack = append(stack, [2]int{nx, ny})
				}
			}
		}

		blobs = append(blobs, blobFromMembers(members, pix, w))
	}
	return blobs
}

func blobFromMembers(members [][2]int, pix []uint8, w int) blob {
	var sx, sy float64
	for _, m := range members {
		sx += float64(m[0])
		sy += float64(m[1])
	}
	n := float64(len(members))
	cx, cy := sx/n, sy/n

	var u20, u02, u11 float64
	for _, m := range members {
		dx := float64(m[0]) - cx
		dy := float64(m[1]) - cy
		u20 += dx * dx
		u02 += dy * dy
		u11 += dx * dy
	}

	// The centre pixel approximates the peak brightness.
	px := int(math.Round(cx))
	py := int(math.Round(cy))
	return blob{
		cx:         cx,
		cy:         cy,
		u20:        u20 / n,
		u02:        u02 / n,
		u11:        u11 / n,
		area:       len(members),
		brightness: float64(pix[py*w+px]),
	}
}

// detectionsFromBlobs converts blobs to centre-relative star detections and
// keeps only the n brightest, bounding the match search.
func detectionsFromBlobs(blobs []blob, w, h, n int) []model.StarDetection {
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].brightness > blobs[j].brightness })
	if n < len(blobs) {
		blobs = blobs[:n]
	}

	dets := make([]model.StarDetection, 0, len(blobs))
	for _, b := range blobs {
		dets = append(dets, model.StarDetection{
			X:          b.cx - float64(w)/2,
			Y:          b.cy - float64(h)/2,
			Brightness: b.brightness,
		})
	}
	return dets
}
