package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
camera:
  width: 640
  height: 480
  fov_deg: 10.0
solver:
  required_stars: 4
  max_false_stars: 2
  thresh_factor: 8
  image_variance: 16
catalog:
  path: /usr/share/star-tracker/hip_main.dat
median_image: /usr/share/star-tracker/median.png
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Quality.BrightnessCutoff != 80 {
		t.Errorf("brightness cutoff = %d", cfg.Quality.BrightnessCutoff)
	}
	if cfg.Solver.MatchThreshold != 0.99 {
		t.Errorf("match threshold = %v", cfg.Solver.MatchThreshold)
	}
	if cfg.Catalog.Epoch != 1991.25 {
		t.Errorf("epoch = %v", cfg.Catalog.Epoch)
	}
	if cfg.Backoff() != 500*time.Millisecond {
		t.Errorf("backoff = %v", cfg.Backoff())
	}
	if cfg.Publisher.Backend != "log" {
		t.Errorf("publisher backend = %q", cfg.Publisher.Backend)
	}
}

func TestPixelScale(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantFOV := 10.0 * math.Pi / 180
	if math.Abs(cfg.FOV()-wantFOV) > 1e-12 {
		t.Errorf("FOV = %v, want %v", cfg.FOV(), wantFOV)
	}
	if math.Abs(cfg.PixelScale()-wantFOV/640) > 1e-15 {
		t.Errorf("pixel scale = %v", cfg.PixelScale())
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  string
		wantErr string
	}{
		{"zero width", "camera:\n  width: 0\n  height: 480\n  fov_deg: 10\nsolver:\n  required_stars: 4\ncatalog:\n  path: x\n", "camera geometry"},
		{"bad fov", "camera:\n  width: 640\n  height: 480\n  fov_deg: 200\nsolver:\n  required_stars: 4\ncatalog:\n  path: x\n", "field of view"},
		{"one star", "camera:\n  width: 640\n  height: 480\n  fov_deg: 10\nsolver:\n  required_stars: 1\ncatalog:\n  path: x\n", "required stars"},
		{"no catalog", "camera:\n  width: 640\n  height: 480\n  fov_deg: 10\nsolver:\n  required_stars: 4\n", "catalog path"},
		{"bad backend", "camera:\n  width: 640\n  height: 480\n  fov_deg: 10\nsolver:\n  required_stars: 4\ncatalog:\n  path: x\npublisher:\n  backend: carrier-pigeon\n", "publisher backend"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mutate))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "camera: [not: a: mapping\n")); err == nil {
		t.Fatal("expected an error")
	}
}
