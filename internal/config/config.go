// Package config loads the tracker's calibration/configuration file. Loading
// or validation failure at startup is fatal by policy: the service never
// starts partially configured.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML calibration file.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Quality   QualityConfig   `yaml:"quality"`
	Solver    SolverConfig    `yaml:"solver"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Publisher PublisherConfig `yaml:"publisher"`

	// MedianImage is the path to the median-sky reference frame.
	MedianImage string `yaml:"median_image"`

	// SampleDir, when set, substitutes randomised file playback for live
	// capture.
	SampleDir string `yaml:"sample_dir"`

	// BackoffMs is the fixed pause after every cycle, success or failure.
	BackoffMs int `yaml:"backoff_ms"`

	// MetricsAddr is the HTTP listen address for Prometheus /metrics.
	MetricsAddr string `yaml:"metrics_addr"`
}

type CameraConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FOVDeg float64 `yaml:"fov_deg"`
}

type QualityConfig struct {
	BrightnessCutoff uint8   `yaml:"brightness_cutoff"`
	DarkUpperBound   float64 `yaml:"dark_upper_bound"`
	DarkLowerBound   float64 `yaml:"dark_lower_bound"`
	BlurCutoff       float64 `yaml:"blur_cutoff"`
}

type SolverConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	RequiredStars  int     `yaml:"required_stars"`
	MaxFalseStars  int     `yaml:"max_false_stars"`
	ThreshFactor   float64 `yaml:"thresh_factor"`
	ImageVariance  float64 `yaml:"image_variance"`
	DBRedundancy   int     `yaml:"db_redundancy"`
}

type CatalogConfig struct {
	Path  string  `yaml:"path"`
	Epoch float64 `yaml:"epoch"`
}

type PublisherConfig struct {
	// Backend selects the transport: "dbus" or "log".
	Backend    string `yaml:"backend"`
	BusName    string `yaml:"bus_name"`
	ObjectPath string `yaml:"object_path"`
	SessionBus bool   `yaml:"session_bus"`
}

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Quality.BrightnessCutoff == 0 {
		c.Quality.BrightnessCutoff = 80
	}
	if c.Quality.DarkUpperBound == 0 {
		c.Quality.DarkUpperBound = 0.99996744
	}
	if c.Quality.DarkLowerBound == 0 {
		c.Quality.DarkLowerBound = 0.99918619
	}
	if c.Quality.BlurCutoff == 0 {
		c.Quality.BlurCutoff = 5.0
	}
	if c.Solver.MatchThreshold == 0 {
		c.Solver.MatchThreshold = 0.99
	}
	if c.Catalog.Epoch == 0 {
		c.Catalog.Epoch = 1991.25
	}
	if c.BackoffMs == 0 {
		c.BackoffMs = 500
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.Publisher.Backend == "" {
		c.Publisher.Backend = "log"
	}
	if c.Publisher.BusName == "" {
		c.Publisher.BusName = "org.otra.StarTracker"
	}
	if c.Publisher.ObjectPath == "" {
		c.Publisher.ObjectPath = "/org/otra/StarTracker"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera geometry %dx%d is invalid", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FOVDeg <= 0 || c.Camera.FOVDeg >= 180 {
		return fmt.Errorf("field of view %v degrees outside (0, 180)", c.Camera.FOVDeg)
	}
	if c.Quality.DarkLowerBound >= c.Quality.DarkUpperBound {
		return fmt.Errorf("dark lower bound %v not below upper bound %v",
			c.Quality.DarkLowerBound, c.Quality.DarkUpperBound)
	}
	if c.Solver.MatchThreshold <= 0 || c.Solver.MatchThreshold > 1 {
		return fmt.Errorf("match threshold %v outside (0, 1]", c.Solver.MatchThreshold)
	}
	if c.Solver.RequiredStars < 2 {
		return fmt.Errorf("required stars %d below minimum of 2", c.Solver.RequiredStars)
	}
	if c.Solver.MaxFalseStars < 0 {
		return fmt.Errorf("max false stars %d is negative", c.Solver.MaxFalseStars)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}
	if c.BackoffMs < 0 {
		return fmt.Errorf("backoff %dms is negative", c.BackoffMs)
	}
	switch c.Publisher.Backend {
	case "dbus", "log":
	default:
		return fmt.Errorf("unknown publisher backend %q", c.Publisher.Backend)
	}
	return nil
}

// Backoff returns the inter-cycle pause as a duration.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

// FOV returns the field of view in radians.
func (c *Config) FOV() float64 {
	return c.Camera.FOVDeg * math.Pi / 180
}

// PixelScale returns radians per pixel at the image centre.
func (c *Config) PixelScale() float64 {
	return c.FOV() / float64(c.Camera.Width)
}
