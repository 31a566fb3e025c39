package drop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// MemoryStore is an in-memory Store used by tests and DB-less one-shot runs.
// A per-key mutex serializes read-modify-write cycles on the same drop;
// the outer lock only guards map structure, so writes to distinct keys do
// not block each other for the duration of an update.
type MemoryStore struct {
	mu     sync.RWMutex
	byKey  map[Key]*Drop
	byID   map[int64]*Drop
	locks  map[Key]*sync.Mutex
	events []Event
	nextID int64
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[Key]*Drop),
		byID:  make(map[int64]*Drop),
		locks: make(map[Key]*sync.Mutex),
	}
}

func (s *MemoryStore) keyLock(k Key) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

func (s *MemoryStore) Upsert(ctx context.Context, l listing.Listing, now time.Time) (Drop, bool, error) {
	if err := ctx.Err(); err != nil {
		return Drop{}, false, err
	}

	key := Key{Name: l.Name, Retailer: l.Retailer, URL: l.URL}
	kl := s.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[key]; ok {
		if l.Price != nil {
			existing.Price = l.Price
		}
		if l.TargetAt != nil {
			existing.TargetAt = l.TargetAt
		}
		existing.LastSeenAt = now
		return clone(existing), false, nil
	}

	s.nextID++
	d := &Drop{
		ID:           s.nextID,
		Name:         l.Name,
		Retailer:     l.Retailer,
		URL:          l.URL,
		Price:        l.Price,
		TargetAt:     l.TargetAt,
		Status:       StatusUpcoming,
		DiscoveredAt: now,
		LastSeenAt:   now,
	}
	s.byKey[key] = d
	s.byID[d.ID] = d
	return clone(d), true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return Drop{}, ErrNotFound
	}
	return clone(d), nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status Status) ([]Drop, error) {
	drops := s.snapshot(status)
	sort.SliceStable(drops, func(i, j int) bool {
		if c := compareTargets(drops[i].TargetAt, drops[j].TargetAt); c != 0 {
			return c < 0
		}
		return drops[i].DiscoveredAt.After(drops[j].DiscoveredAt)
	})
	return drops, nil
}

func (s *MemoryStore) UpcomingForAlert(ctx context.Context) ([]Drop, error) {
	drops := s.snapshot(StatusUpcoming)
	sort.SliceStable(drops, func(i, j int) bool {
		if c := compareTargets(drops[i].TargetAt, drops[j].TargetAt); c != 0 {
			return c < 0
		}
		return drops[i].DiscoveredAt.Before(drops[j].DiscoveredAt)
	})
	return drops, nil
}

func (s *MemoryStore) MarkNotified(ctx context.Context, dropID int64, tier Tier, firedAt time.Time) (bool, error) {
	s.mu.RLock()
	d, ok := s.byID[dropID]
	s.mu.RUnlock()
	if !ok {
		return false, ErrNotFound
	}

	kl := s.keyLock(d.Key())
	kl.Lock()
	defer kl.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if d.HasNotified(tier) {
		return false, nil
	}
	d.NotifiedTiers = append(d.NotifiedTiers, tier)
	s.events = append(s.events, Event{
		ID:      int64(len(s.events) + 1),
		DropID:  dropID,
		Tier:    tier,
		FiredAt: firedAt,
	})
	return true, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, dropID int64, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[dropID]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	return nil
}

func (s *MemoryStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, d := range s.byID {
		if d.Status == StatusUpcoming && d.TargetAt != nil && d.TargetAt.Before(cutoff) {
			d.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Events(ctx context.Context, dropID int64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []Event
	for _, e := range s.events {
		if e.DropID == dropID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{ByRetailer: make(map[string]int)}
	for _, d := range s.byID {
		stats.Total++
		stats.ByRetailer[d.Retailer]++
	}
	return stats, nil
}

func (s *MemoryStore) snapshot(status Status) []Drop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	drops := make([]Drop, 0, len(s.byID))
	for _, d := range s.byID {
		if d.Status == status {
			drops = append(drops, clone(d))
		}
	}
	return drops
}

// compareTargets orders non-nil targets ascending, nils last.
func compareTargets(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}

func clone(d *Drop) Drop {
	out := *d
	if d.Price != nil {
		p := *d.Price
		out.Price = &p
	}
	if d.TargetAt != nil {
		t := *d.TargetAt
		out.TargetAt = &t
	}
	out.NotifiedTiers = append([]Tier(nil), d.NotifiedTiers...)
	return out
}
