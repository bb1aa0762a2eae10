package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// SampleDir replays frames from a directory of still images, picking one at
// random per cycle the way the flight software's bench mode does. It stands in
// for the live camera whenever a sample directory is configured.
type SampleDir struct {
	paths []string
	rng   *rand.Rand
	now   func() time.Time
}

// SampleDirOption customises SampleDir construction.
type SampleDirOption func(*SampleDir)

// WithSeed fixes the playback order for reproducible runs.
func WithSeed(seed int64) SampleDirOption {
	return func(s *SampleDir) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithNow overrides the capture-timestamp clock.
func WithNow(now func() time.Time) SampleDirOption {
	return func(s *SampleDir) {
		s.now = now
	}
}

// NewSampleDir scans dir for images. An empty directory is not an error at
// construction; Next reports ErrNoFrame instead, matching the recoverable
// acquisition-error policy.
func NewSampleDir(dir string, opts ...SampleDirOption) (*SampleDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sample dir %q: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	s := &SampleDir{
		paths: paths,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Len reports how many sample images were found.
func (s *SampleDir) Len() int { return len(s.paths) }

// Next loads a randomly chosen sample frame.
func (s *SampleDir) Next(ctx context.Context) (*model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.paths) == 0 {
		return nil, ErrNoFrame
	}

	path := s.paths[s.rng.Intn(len(s.paths))]
	f, err := LoadFrame(path)
	if err != nil {
		// A corrupt sample is an acquisition failure, not a crash.
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	f.CapturedAt = s.now()
	return f, nil
}

// LoadFrame decodes a still image into a luminance frame. SourceID is the
// file path, which is what gets published as `filepath`.
func LoadFrame(path string) (*model.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame %q: %w", path, err)
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode frame %q: %w", path, err)
	}
	return frameFromImage(img, path), nil
}

// LoadReference decodes the median-sky reference image used for fixed-pattern
// noise suppression. It must match the camera geometry; the solver checks
// dimensions at startup.
func LoadReference(path string) (*model.Frame, error) {
	return LoadFrame(path)
}

func frameFromImage(img image.Image, sourceID string) *model.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)

	gray, ok := img.(*image.Gray)
	if ok && gray.Stride == w {
		copy(pix, gray.Pix)
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				// ITU-R 601 luma on 16-bit channel values.
				pix[y*w+x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 24)
			}
		}
	}

	return &model.Frame{
		Pix:      pix,
		Width:    w,
		Height:   h,
		SourceID: sourceID,
	}
}
