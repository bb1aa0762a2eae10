package astro

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.dat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
# id ra_deg dec_deg mag
1 0.0 0.0 1.5
2 90.0 45.0 2.0

3 180.0 -30.0 0.5
`)

	cat, err := LoadCatalog(path, 1991.25)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Epoch != 1991.25 {
		t.Errorf("epoch = %v", cat.Epoch)
	}
	if len(cat.Stars) != 3 {
		t.Fatalf("loaded %d stars, want 3", len(cat.Stars))
	}

	s := cat.Stars[1]
	if s.ID != 2 || math.Abs(s.RA-math.Pi/2) > 1e-12 || math.Abs(s.Dec-math.Pi/4) > 1e-12 {
		t.Errorf("star 2 parsed as %+v", s)
	}
	want := model.UnitFromRADec(s.RA, s.Dec)
	if s.Unit.Angle(want) > 1e-12 {
		t.Errorf("unit vector off by %v", s.Unit.Angle(want))
	}
}

func TestLoadCatalogRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"short line": "1 0.0 0.0\n",
		"bad id":     "x 0.0 0.0 1.0\n",
		"bad ra":     "1 north 0.0 1.0\n",
		"empty":      "# nothing here\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadCatalog(writeCatalog(t, content), 1991.25); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.dat"), 0); err == nil {
		t.Fatal("expected an error")
	}
}

func TestWithinSelectsCone(t *testing.T) {
	cat := &Catalog{Stars: []Star{
		starFromUnit(1, model.UnitFromRADec(0, 0), 1),
		starFromUnit(2, model.UnitFromRADec(0.05, 0), 1),
		starFromUnit(3, model.UnitFromRADec(1.5, 0.4), 1),
	}}

	got := cat.Within(model.UnitFromRADec(0, 0), 0.1)
	if len(got) != 2 {
		t.Fatalf("cone holds %d stars, want 2", len(got))
	}
}

func TestBrightest(t *testing.T) {
	cat := &Catalog{Stars: []Star{
		{ID: 1, Mag: 3.0},
		{ID: 2, Mag: 0.5},
		{ID: 3, Mag: 2.1},
	}}

	got := cat.Brightest(2)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("Brightest(2) = %+v", got)
	}
	if all := cat.Brightest(10); len(all) != 3 {
		t.Fatalf("Brightest(10) returned %d stars", len(all))
	}
}
