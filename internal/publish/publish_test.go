package publish

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/config"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

func TestCoordinatesFromRecordConvertsToDegrees(t *testing.T) {
	rec := model.SolutionRecord{
		Attitude: model.Attitude{
			Dec:          -math.Pi / 4,
			RA:           math.Pi,
			Ori:          math.Pi / 2,
			Confidence:   0.999,
			MatchedStars: 14,
			Valid:        true,
		},
		Timestamp: time.Unix(1700000000, 500000000),
		SourceID:  "/captures/img_0042.png",
		Seq:       42,
	}

	coor := coordinatesFromRecord(rec)
	if math.Abs(coor.Dec+45) > 1e-9 || math.Abs(coor.RA-180) > 1e-9 || math.Abs(coor.Ori-90) > 1e-9 {
		t.Fatalf("coordinates = %+v, want degrees (-45, 180, 90)", coor)
	}
	if coor.SolvedAt != 1700000000.5 {
		t.Fatalf("SolvedAt = %v, want 1700000000.5", coor.SolvedAt)
	}
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher(logging.Noop())
	ctx := context.Background()

	rec := model.SolutionRecord{
		Attitude:  model.Attitude{Dec: 1, RA: 2, Ori: 3, Valid: true},
		Timestamp: time.Now(),
		Seq:       1,
	}
	if err := p.PublishSolution(ctx, rec); err != nil {
		t.Fatalf("PublishSolution: %v", err)
	}
	if err := p.PublishError(ctx, "image too blurry"); err != nil {
		t.Fatalf("PublishError: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(config.PublisherConfig{Backend: "log"}, logging.Noop())
	if err != nil {
		t.Fatalf("New(log): %v", err)
	}
	if _, ok := p.(*LogPublisher); !ok {
		t.Fatalf("New(log) = %T, want *LogPublisher", p)
	}

	if _, err := New(config.PublisherConfig{Backend: "carrier-pigeon"}, logging.Noop()); err == nil {
		t.Fatal("New with unknown backend should fail")
	}
}
