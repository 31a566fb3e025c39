// Package drop holds the durable drop model and its stores.
//
// A drop is a tracked retail release of a card product at a specific
// retailer/URL. Identity is the (name, retailer, url) triple — exact,
// case-sensitive match, no fuzzy dedup across retailers.
package drop

import "time"

// Status is the lifecycle state of a drop.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusReleased Status = "released"
	StatusExpired  Status = "expired"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUpcoming, StatusReleased, StatusExpired:
		return true
	}
	return false
}

// Tier is a named alert urgency level.
type Tier string

const (
	TierLiveNow  Tier = "live_now"
	TierImminent Tier = "imminent"
	TierSameDay  Tier = "same_day"
	TierWeekOut  Tier = "week_out"
)

// Key is a drop's natural key.
type Key struct {
	Name     string
	Retailer string
	URL      string
}

// Drop is a tracked release record.
//
// DiscoveredAt is set on first insert and never changes. NotifiedTiers only
// grows: once a tier is recorded for a drop it is never fired again.
type Drop struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Retailer      string     `json:"retailer"`
	URL           string     `json:"url"`
	Price         *float64   `json:"price,omitempty"`
	TargetAt      *time.Time `json:"target_at,omitempty"`
	Status        Status     `json:"status"`
	DiscoveredAt  time.Time  `json:"discovered_at"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
	NotifiedTiers []Tier     `json:"notified_tiers"`
}

// Key returns the drop's natural key.
func (d *Drop) Key() Key {
	return Key{Name: d.Name, Retailer: d.Retailer, URL: d.URL}
}

// HasNotified reports whether tier has already been recorded for this drop.
func (d *Drop) HasNotified(tier Tier) bool {
	for _, t := range d.NotifiedTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Event is one row of the append-only notification log. It makes "already
// notified for tier T" auditable and replays idempotent.
type Event struct {
	ID      int64     `json:"id"`
	DropID  int64     `json:"drop_id"`
	Tier    Tier      `json:"tier"`
	FiredAt time.Time `json:"fired_at"`
}

// Stats summarizes the store contents for the API stats endpoint.
type Stats struct {
	Total      int            `json:"total_drops"`
	ByRetailer map[string]int `json:"by_retailer"`
}
