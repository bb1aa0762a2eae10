// Package astro holds the astrometry-engine side of the tracker: the star
// catalog, the constellation index, and pattern matching between detected
// star groups and the catalog. The rest of the service depends only on the
// Engine contract, so the matcher can be swapped without touching the loop.
package astro

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// Star is one catalog entry. RA and Dec are radians at the catalog epoch;
// lower Mag is brighter.
type Star struct {
	ID   int
	RA   float64
	Dec  float64
	Mag  float64
	Unit model.Vec3
}

// Catalog is a loaded star catalog.
type Catalog struct {
	Stars []Star
	Epoch float64
}

// LoadCatalog reads a whitespace-separated catalog file with one star per
// line: id, right ascension (degrees), declination (degrees), magnitude.
// Lines starting with '#' are comments. Epoch is recorded for consumers that
// apply proper-motion corrections upstream of this file.
func LoadCatalog(path string, epoch float64) (*Catalog, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, err)
	}
	defer fh.Close()

	cat := &Catalog{Epoch: epoch}
	scanner := bufio.NewScanner(fh)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("catalog %q line %d: want 4 fields, got %d", path, line, len(fields))
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("catalog %q line %d: bad id: %w", path, line, err)
		}
		raDeg, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("catalog %q line %d: bad ra: %w", path, line, err)
		}
		decDeg, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("catalog %q line %d: bad dec: %w", path, line, err)
		}
		mag, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("catalog %q line %d: bad magnitude: %w", path, line, err)
		}

		ra := raDeg * math.Pi / 180
		dec := decDeg * math.Pi / 180
		cat.Stars = append(cat.Stars, Star{
			ID:   id,
			RA:   ra,
			Dec:  dec,
			Mag:  mag,
			Unit: model.UnitFromRADec(ra, dec),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	if len(cat.Stars) == 0 {
		return nil, fmt.Errorf("catalog %q contains no stars", path)
	}
	return cat, nil
}

// Within returns the stars inside the cone of the given angular radius around
// center. This is the refined-stage search that narrows the full-sky index to
// the field of view around a coarse solution.
func (c *Catalog) Within(center model.Vec3, radius float64) []Star {
	cosR := math.Cos(radius)
	var out []Star
	for _, s := range c.Stars {
		if s.Unit.Dot(center) >= cosR {
			out = append(out, s)
		}
	}
	return out
}

// Brightest returns up to n stars ordered brightest first. The full input is
// returned (sorted) when it has fewer than n entries.
func (c *Catalog) Brightest(n int) []Star {
	stars := make([]Star, len(c.Stars))
	copy(stars, c.Stars)
	sort.Slice(stars, func(i, j int) bool { return stars[i].Mag < stars[j].Mag })
	if n < len(stars) {
		stars = stars[:n]
	}
	return stars
}
