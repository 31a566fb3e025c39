// Package alert classifies how far a drop is from its target time and
// fires each notification tier at most once per drop.
//
// Tier windows, most urgent first:
//
//	live_now  (-1h, 0]     target passed within the last hour
//	imminent  (0, 1h)      starting within the hour
//	same_day  [1h, 24h)    starting today
//	week_out  [6d, 7d)     the single seven-days-out heads-up
//
// Everything outside these windows is silent; the week_out window is
// deliberately the only multi-day tier.
package alert

import (
	"fmt"
	"sort"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/drop"
)

const (
	hourWindow    = time.Hour
	dayWindow     = 24 * time.Hour
	weekOutLow    = 6 * 24 * time.Hour
	weekOutHigh   = 7 * 24 * time.Hour
	releaseGrace  = time.Hour      // past this, an upcoming drop is released
	expiryAge     = 24 * time.Hour // past this, it is expired
)

// Decision is a tier firing the engine should record and dispatch.
type Decision struct {
	DropID int64     `json:"drop_id"`
	Tier   drop.Tier `json:"tier"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Link   string    `json:"link"`
}

// Evaluate classifies d against now and returns the first matching un-fired
// tier, or nil. Pure: no store access, no status mutation. A drop without a
// target never yields a decision.
func Evaluate(now time.Time, d drop.Drop) *Decision {
	if d.TargetAt == nil {
		return nil
	}
	diff := d.TargetAt.Sub(now)

	var tier drop.Tier
	var title, body string

	switch {
	case -hourWindow < diff && diff <= 0:
		tier = drop.TierLiveNow
		title = "Drop available now"
		body = fmt.Sprintf("%s at %s", d.Name, d.Retailer)
	case 0 < diff && diff < hourWindow:
		tier = drop.TierImminent
		title = "Drop starting soon"
		body = fmt.Sprintf("%s at %s in %d minutes", d.Name, d.Retailer, int(diff.Round(time.Minute).Minutes()))
	case hourWindow <= diff && diff < dayWindow:
		tier = drop.TierSameDay
		title = "Drop within 24 hours"
		body = fmt.Sprintf("%s at %s in %d hours", d.Name, d.Retailer, int(diff.Round(time.Hour).Hours()))
	case weekOutLow <= diff && diff < weekOutHigh:
		tier = drop.TierWeekOut
		title = "Drop next week"
		body = fmt.Sprintf("%s at %s on %s", d.Name, d.Retailer, d.TargetAt.Format("01/02"))
	default:
		return nil
	}

	if d.HasNotified(tier) {
		return nil
	}
	return &Decision{DropID: d.ID, Tier: tier, Title: title, Body: body, Link: d.URL}
}

// Scan evaluates a batch of drops and returns their pending decisions in
// ascending target order (nulls last), ties broken by discovered_at. Only
// upcoming drops are considered. Pure, used for read-only previews; the
// engine records what it fires.
func Scan(now time.Time, drops []drop.Drop) []Decision {
	sorted := make([]drop.Drop, 0, len(drops))
	for _, d := range drops {
		if d.Status == drop.StatusUpcoming {
			sorted = append(sorted, d)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].TargetAt, sorted[j].TargetAt
		switch {
		case a == nil && b == nil:
			// fall through to discovered_at
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return sorted[i].DiscoveredAt.Before(sorted[j].DiscoveredAt)
	})

	var decisions []Decision
	for _, d := range sorted {
		if dec := Evaluate(now, d); dec != nil {
			decisions = append(decisions, *dec)
		}
	}
	return decisions
}
