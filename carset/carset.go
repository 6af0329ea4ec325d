// Package carset holds the car records the daily puzzle draws from: CSV
// ingestion, de-duplication, the selectable subset, and guess comparison.
//
// The dataset is produced upstream (a spec-page scraper outside this
// repository) and loaded once at process start. Ordering matters: the
// selection shuffle is seeded, so the pool preserves ingestion order to
// keep day→car mapping reproducible across restarts.
package carset

import (
	"fmt"
	"strings"
)

// Record is one car. Attribute fields keep their raw dataset form ("V6",
// "1,234", empty string for missing) so comparison semantics stay faithful
// to the source table. Immutable once loaded.
type Record struct {
	Make       string `json:"make"`
	Model      string `json:"model"`
	Year       string `json:"year,omitempty"`
	Cylinders  string `json:"cylinders,omitempty"`
	Horsepower string `json:"horsepower,omitempty"`
	FuelGal    string `json:"fuel_capacity_gal,omitempty"`
	FuelL      string `json:"fuel_capacity_liters,omitempty"`
	Country    string `json:"country,omitempty"`

	// ImageURL is set by the selector once a photo has been resolved for
	// this record. Empty in the pool.
	ImageURL string `json:"image_url,omitempty"`

	selectable bool
}

// Name returns the display name "Make Model".
func (r *Record) Name() string {
	return r.Make + " " + r.Model
}

// Selectable reports whether the record is eligible to be a daily puzzle.
// Computed once at load time.
func (r *Record) Selectable() bool {
	return r.selectable
}

// requiredNumeric lists the fields that must be present and non-zero for a
// record to be selectable.
func (r *Record) requiredNumeric() []string {
	return []string{r.Year, r.Horsepower}
}

// computeSelectable applies the selectability rule: every required numeric
// field that is present must parse to a non-zero number. Absent or
// unparsable fields do not disqualify; explicit zeros do.
func (r *Record) computeSelectable() bool {
	for _, raw := range r.requiredNumeric() {
		if raw == "" {
			continue
		}
		if v, ok := parseNumber(raw); ok && v == 0 {
			return false
		}
	}
	return true
}

// Pool is the ordered, de-duplicated record set.
type Pool struct {
	all        []*Record
	selectable []*Record
	byName     map[string]*Record // lowercase "make model" → record
}

// NewPool builds a Pool from records in ingestion order. Duplicates by
// case-insensitive (make, model) are dropped, first occurrence wins.
func NewPool(records []Record) (*Pool, error) {
	p := &Pool{byName: make(map[string]*Record, len(records))}
	for i := range records {
		r := records[i]
		if r.Make == "" || r.Model == "" {
			return nil, fmt.Errorf("carset: record %d: make and model are required", i)
		}
		key := strings.ToLower(r.Name())
		if _, dup := p.byName[key]; dup {
			continue
		}
		r.selectable = r.computeSelectable()
		rec := &r
		p.byName[key] = rec
		p.all = append(p.all, rec)
		if rec.selectable {
			p.selectable = append(p.selectable, rec)
		}
	}
	if len(p.all) == 0 {
		return nil, fmt.Errorf("carset: empty dataset")
	}
	return p, nil
}

// All returns every record (including non-selectable ones) in ingestion
// order. Callers must not mutate the returned records.
func (p *Pool) All() []*Record {
	return p.all
}

// Selectable returns the records eligible for daily selection, in ingestion
// order.
func (p *Pool) Selectable() []*Record {
	return p.selectable
}

// Lookup finds a record by display name, case-insensitively. Returns nil
// when absent.
func (p *Pool) Lookup(name string) *Record {
	return p.byName[strings.ToLower(strings.TrimSpace(name))]
}

// Names returns the display names of the selectable records, in order.
// Used by the serving layer for guess autocomplete.
func (p *Pool) Names() []string {
	names := make([]string, len(p.selectable))
	for i, r := range p.selectable {
		names[i] = r.Name()
	}
	return names
}
