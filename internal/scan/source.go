// Package scan drives the scan cycle: sources produce raw candidate
// records, the normalizer cleans them, the reconciler merges them into the
// drop store.
//
// Sources are black boxes. How a feed extracts candidates from retailer
// markup is entirely its own business; this package only sees the
// (name, retailer, url, price?, date?) tuples that come out.
package scan

import (
	"context"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// Source is a named producer of raw candidate records.
type Source interface {
	Name() string
	Search(ctx context.Context) ([]listing.Raw, error)
}

// StaticSource returns a fixed set of records. Used in tests and for
// offline development without any feed endpoints.
type StaticSource struct {
	name string
	raws []listing.Raw
}

func NewStaticSource(name string, raws []listing.Raw) *StaticSource {
	return &StaticSource{name: name, raws: raws}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Search(ctx context.Context) ([]listing.Raw, error) {
	out := make([]listing.Raw, len(s.raws))
	copy(out, s.raws)
	return out, nil
}
