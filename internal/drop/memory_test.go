package drop

import (
	"context"
	"testing"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

func mustUpsert(t *testing.T, s *MemoryStore, l listing.Listing, now time.Time) Drop {
	t.Helper()
	d, _, err := s.Upsert(context.Background(), l, now)
	if err != nil {
		t.Fatalf("Upsert(%q) error = %v", l.Name, err)
	}
	return d
}

func TestMemoryUpsertInsertThenUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)

	l := listing.Listing{
		Name:     "Booster Box",
		Retailer: "TARGET",
		URL:      "https://example.com/box",
		Price:    ptrFloat(161.99),
	}

	d1, isNew, err := s.Upsert(ctx, l, now)
	if err != nil || !isNew {
		t.Fatalf("first Upsert = (%v, %v, %v), want new", d1, isNew, err)
	}

	later := now.Add(time.Hour)
	l.Price = ptrFloat(149.99)
	d2, isNew, err := s.Upsert(ctx, l, later)
	if err != nil {
		t.Fatalf("second Upsert error = %v", err)
	}
	if isNew {
		t.Error("second Upsert reported new for the same natural key")
	}
	if d2.ID != d1.ID {
		t.Errorf("ID changed across upserts: %d -> %d", d1.ID, d2.ID)
	}
	if *d2.Price != 149.99 {
		t.Errorf("Price = %v, want overwritten to 149.99", *d2.Price)
	}
	if !d2.DiscoveredAt.Equal(now) {
		t.Errorf("DiscoveredAt = %v, want unchanged %v", d2.DiscoveredAt, now)
	}
	if !d2.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want advanced to %v", d2.LastSeenAt, later)
	}
}

func TestMemoryUpsertNullPreservingMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	target := now.Add(48 * time.Hour)

	full := listing.Listing{
		Name: "Box", Retailer: "TARGET", URL: "u",
		Price: ptrFloat(99.99), TargetAt: &target,
	}
	mustUpsert(t, s, full, now)

	// A later sighting with missing price and date keeps the known values.
	bare := listing.Listing{Name: "Box", Retailer: "TARGET", URL: "u"}
	d, _, err := s.Upsert(ctx, bare, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	if d.Price == nil || *d.Price != 99.99 {
		t.Errorf("Price = %v, want preserved 99.99", d.Price)
	}
	if d.TargetAt == nil || !d.TargetAt.Equal(target) {
		t.Errorf("TargetAt = %v, want preserved %v", d.TargetAt, target)
	}
}

func TestMemoryUpsertDistinctKeys(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	// Same name at two retailers is two drops.
	a := mustUpsert(t, s, listing.Listing{Name: "Box", Retailer: "TARGET", URL: "u1"}, now)
	b := mustUpsert(t, s, listing.Listing{Name: "Box", Retailer: "WALMART", URL: "u2"}, now)
	if a.ID == b.ID {
		t.Errorf("distinct natural keys collapsed to one drop (id %d)", a.ID)
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error = %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByRetailer["TARGET"] != 1 || stats.ByRetailer["WALMART"] != 1 {
		t.Errorf("ByRetailer = %v", stats.ByRetailer)
	}
}

func TestMemoryMarkNotifiedAtMostOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	d := mustUpsert(t, s, listing.Listing{Name: "Box", Retailer: "TARGET", URL: "u"}, now)

	first, err := s.MarkNotified(ctx, d.ID, TierImminent, now)
	if err != nil || !first {
		t.Fatalf("first MarkNotified = (%v, %v), want (true, nil)", first, err)
	}
	second, err := s.MarkNotified(ctx, d.ID, TierImminent, now)
	if err != nil {
		t.Fatalf("second MarkNotified error = %v", err)
	}
	if second {
		t.Error("second MarkNotified for the same tier reported a fresh claim")
	}

	// A different tier is a separate claim.
	other, err := s.MarkNotified(ctx, d.ID, TierLiveNow, now)
	if err != nil || !other {
		t.Fatalf("MarkNotified other tier = (%v, %v), want (true, nil)", other, err)
	}

	events, err := s.Events(ctx, d.ID)
	if err != nil {
		t.Fatalf("Events error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Tier != TierImminent || events[1].Tier != TierLiveNow {
		t.Errorf("event tiers = %v, %v", events[0].Tier, events[1].Tier)
	}

	if _, err := s.MarkNotified(ctx, 9999, TierImminent, now); err != ErrNotFound {
		t.Errorf("MarkNotified(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryExpireOlderThan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	stale := now.Add(-30 * time.Hour)
	fresh := now.Add(-2 * time.Hour)
	undated := mustUpsert(t, s, listing.Listing{Name: "Undated", Retailer: "TARGET", URL: "u0"}, now)
	old := mustUpsert(t, s, listing.Listing{Name: "Old", Retailer: "TARGET", URL: "u1", TargetAt: &stale}, now)
	recent := mustUpsert(t, s, listing.Listing{Name: "Recent", Retailer: "TARGET", URL: "u2", TargetAt: &fresh}, now)

	n, err := s.ExpireOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ExpireOlderThan error = %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d drops, want 1", n)
	}

	for _, tc := range []struct {
		id   int64
		want Status
	}{
		{old.ID, StatusExpired},
		{recent.ID, StatusUpcoming},
		{undated.ID, StatusUpcoming},
	} {
		got, err := s.Get(ctx, tc.id)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", tc.id, err)
		}
		if got.Status != tc.want {
			t.Errorf("drop %d status = %s, want %s", tc.id, got.Status, tc.want)
		}
	}
}

func TestMemoryOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	near := base.Add(2 * time.Hour)
	far := base.Add(72 * time.Hour)
	mustUpsert(t, s, listing.Listing{Name: "Far", Retailer: "TARGET", URL: "u1", TargetAt: &far}, base)
	mustUpsert(t, s, listing.Listing{Name: "Near", Retailer: "TARGET", URL: "u2", TargetAt: &near}, base.Add(time.Minute))
	mustUpsert(t, s, listing.Listing{Name: "Undated", Retailer: "TARGET", URL: "u3"}, base.Add(2*time.Minute))

	drops, err := s.UpcomingForAlert(ctx)
	if err != nil {
		t.Fatalf("UpcomingForAlert error = %v", err)
	}
	var names []string
	for _, d := range drops {
		names = append(names, d.Name)
	}
	want := []string{"Near", "Far", "Undated"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestMemoryGetNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), 1); err != ErrNotFound {
		t.Errorf("Get on empty store error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCloneIsolation(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	d := mustUpsert(t, s, listing.Listing{Name: "Box", Retailer: "TARGET", URL: "u", Price: ptrFloat(10)}, now)

	// Mutating the returned copy must not leak into the store.
	*d.Price = 999
	d.NotifiedTiers = append(d.NotifiedTiers, TierLiveNow)

	got, err := s.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if *got.Price != 10 {
		t.Errorf("stored price mutated to %v", *got.Price)
	}
	if len(got.NotifiedTiers) != 0 {
		t.Errorf("stored tiers mutated to %v", got.NotifiedTiers)
	}
}

func ptrFloat(v float64) *float64 { return &v }
