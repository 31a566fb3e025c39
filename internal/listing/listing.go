// Package listing normalizes raw candidate records scraped from retailer
// pages into canonical listings the reconciler can consume.
//
// Normalization is pure: price and date extraction fail softly to nil,
// only a missing identity field rejects a record outright.
package listing

import (
	"errors"
	"time"
)

// ErrMissingIdentity rejects a raw record whose name or URL is empty.
// Such records have no natural key and can never be reconciled.
var ErrMissingIdentity = errors.New("missing identity field")

// Raw is a candidate tuple as produced by a source adapter. Price, date and
// time are free text exactly as found on the page.
type Raw struct {
	Name     string `json:"name"`
	Retailer string `json:"retailer"`
	URL      string `json:"url"`
	Price    string `json:"price,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
}

// Listing is a normalized candidate. It carries no identity beyond its
// fields and is immutable once produced.
type Listing struct {
	Name     string
	Retailer string
	URL      string
	Price    *float64
	TargetAt *time.Time
}

// Normalize validates and cleans a raw record into a Listing.
func Normalize(raw Raw) (Listing, error) {
	if raw.Name == "" || raw.URL == "" {
		return Listing{}, ErrMissingIdentity
	}
	return Listing{
		Name:     raw.Name,
		Retailer: raw.Retailer,
		URL:      raw.URL,
		Price:    ParsePrice(raw.Price),
		TargetAt: ParseTarget(raw.Date, raw.Time),
	}, nil
}
