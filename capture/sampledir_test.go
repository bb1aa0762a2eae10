package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeGrayPNG(t *testing.T, path string, w, h int, fill uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer fh.Close()
	if err := png.Encode(fh, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestLoadFrameGrayPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	writeGrayPNG(t, path, 8, 6, 137)

	f, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame: %v", err)
	}
	if f.Width != 8 || f.Height != 6 {
		t.Fatalf("geometry %dx%d, want 8x6", f.Width, f.Height)
	}
	if f.SourceID != path {
		t.Fatalf("SourceID = %q, want %q", f.SourceID, path)
	}
	for i, p := range f.Pix {
		if p != 137 {
			t.Fatalf("Pix[%d] = %d, want 137", i, p)
		}
	}
}

func TestLoadFrameColorLuminance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	img.Set(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(fh, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	fh.Close()

	f, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame: %v", err)
	}
	// Neutral grey keeps its value under the luma weights; black stays black.
	if f.Pix[0] < 199 || f.Pix[0] > 201 {
		t.Errorf("grey pixel = %d, want ~200", f.Pix[0])
	}
	if f.Pix[1] != 0 {
		t.Errorf("black pixel = %d, want 0", f.Pix[1])
	}
}

func TestLoadFrameMissingFile(t *testing.T) {
	if _, err := LoadFrame(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSampleDirEmptyReportsNoFrame(t *testing.T) {
	src, err := NewSampleDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewSampleDir: %v", err)
	}
	if src.Len() != 0 {
		t.Fatalf("Len = %d, want 0", src.Len())
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Next = %v, want ErrNoFrame", err)
	}
}

func TestSampleDirSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 4, 4, 10)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	src, err := NewSampleDir(dir)
	if err != nil {
		t.Fatalf("NewSampleDir: %v", err)
	}
	if src.Len() != 1 {
		t.Fatalf("Len = %d, want 1", src.Len())
	}
}

func TestSampleDirSeededPlaybackIsReproducible(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		writeGrayPNG(t, filepath.Join(dir, name), 4, 4, uint8(10*(i+1)))
	}

	order := func() []string {
		src, err := NewSampleDir(dir, WithSeed(99))
		if err != nil {
			t.Fatalf("NewSampleDir: %v", err)
		}
		var got []string
		for i := 0; i < 8; i++ {
			f, err := src.Next(context.Background())
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			got = append(got, filepath.Base(f.SourceID))
		}
		return got
	}

	first, second := order(), order()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("playback diverged at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSampleDirStampsCaptureTime(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 4, 4, 50)

	want := time.Unix(1234567890, 0)
	src, err := NewSampleDir(dir, WithNow(func() time.Time { return want }))
	if err != nil {
		t.Fatalf("NewSampleDir: %v", err)
	}
	f, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !f.CapturedAt.Equal(want) {
		t.Fatalf("CapturedAt = %v, want %v", f.CapturedAt, want)
	}
}

func TestSampleDirHonoursContext(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 4, 4, 50)

	src, err := NewSampleDir(dir)
	if err != nil {
		t.Fatalf("NewSampleDir: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next on cancelled ctx = %v, want context.Canceled", err)
	}
}
