package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/listing"
)

type failingSource struct{ name string }

func (s *failingSource) Name() string { return s.name }

func (s *failingSource) Search(ctx context.Context) ([]listing.Raw, error) {
	return nil, errors.New("feed unreachable")
}

func TestRunnerRun(t *testing.T) {
	store := drop.NewMemoryStore()
	sources := []Source{
		NewStaticSource("target-feed", []listing.Raw{
			{Name: "Booster Box", Retailer: "TARGET", URL: "u1", Price: "$161.99", Date: "03/01/2025"},
			{Name: "Elite Trainer Box", Retailer: "TARGET", URL: "u2"},
			{Name: "", URL: "u3"}, // no identity, rejected
		}),
		NewStaticSource("walmart-feed", []listing.Raw{
			{Name: "Booster Bundle", Retailer: "WALMART", URL: "u4"},
		}),
	}

	r := NewRunner(store, sources, 2, nil)
	result := r.Run(context.Background())

	if result.SourcesScanned != 2 {
		t.Errorf("SourcesScanned = %d, want 2", result.SourcesScanned)
	}
	if result.ListingsFound != 4 {
		t.Errorf("ListingsFound = %d, want 4", result.ListingsFound)
	}
	if result.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", result.Rejected)
	}
	if result.NewDrops != 3 {
		t.Errorf("NewDrops = %d, want 3", result.NewDrops)
	}
	if result.UpdatedDrops != 0 {
		t.Errorf("UpdatedDrops = %d, want 0", result.UpdatedDrops)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error = %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("store holds %d drops, want 3", stats.Total)
	}
}

func TestRunnerSecondCycleUpdates(t *testing.T) {
	store := drop.NewMemoryStore()
	src := NewStaticSource("feed", []listing.Raw{
		{Name: "Booster Box", Retailer: "TARGET", URL: "u1"},
	})
	r := NewRunner(store, []Source{src}, 1, nil)

	first := r.Run(context.Background())
	if first.NewDrops != 1 || first.UpdatedDrops != 0 {
		t.Fatalf("first cycle new=%d updated=%d, want 1/0", first.NewDrops, first.UpdatedDrops)
	}

	second := r.Run(context.Background())
	if second.NewDrops != 0 || second.UpdatedDrops != 1 {
		t.Errorf("second cycle new=%d updated=%d, want 0/1", second.NewDrops, second.UpdatedDrops)
	}
}

func TestRunnerSourceFailureIsIsolated(t *testing.T) {
	store := drop.NewMemoryStore()
	sources := []Source{
		&failingSource{name: "broken-feed"},
		NewStaticSource("ok-feed", []listing.Raw{
			{Name: "Booster Box", Retailer: "TARGET", URL: "u1"},
		}),
	}

	r := NewRunner(store, sources, 1, nil)
	result := r.Run(context.Background())

	if result.SourcesScanned != 2 {
		t.Errorf("SourcesScanned = %d, want failing source still counted", result.SourcesScanned)
	}
	if result.NewDrops != 1 {
		t.Errorf("NewDrops = %d, want the healthy source's drop", result.NewDrops)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one", result.Errors)
	}
}

func TestRunnerNoSources(t *testing.T) {
	r := NewRunner(drop.NewMemoryStore(), nil, 2, nil)
	result := r.Run(context.Background())
	if result.SourcesScanned != 0 || len(result.Errors) != 0 {
		t.Errorf("empty run = %+v", result)
	}
}
