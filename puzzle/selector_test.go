package puzzle

import (
	"image"
	"testing"

	"github.com/hazyhaar/cardle/carset"
)

// WHAT: the search query quotes the display name and appends the year.
// WHY: quoting keeps multi-word models together in the search engine.
func TestSearchQuery(t *testing.T) {
	r := carset.Record{Make: "Alfa Romeo", Model: "Giulia Quadrifoglio", Year: "2017"}
	if got, want := SearchQuery(&r), `"Alfa Romeo Giulia Quadrifoglio" 2017`; got != want {
		t.Errorf("SearchQuery = %q, want %q", got, want)
	}

	noYear := carset.Record{Make: "Morgan", Model: "Plus 4"}
	if got, want := SearchQuery(&noYear), `"Morgan Plus 4"`; got != want {
		t.Errorf("SearchQuery without year = %q, want %q", got, want)
	}
}

// WHAT: the reveal region for a day is stable and changes between days.
func TestRegionFor(t *testing.T) {
	bounds := image.Rect(0, 0, 800, 600)
	a := regionFor(100, bounds)
	b := regionFor(100, bounds)
	if a != b {
		t.Fatalf("same day gave different regions: %v vs %v", a, b)
	}

	distinct := false
	for day := 101; day < 110; day++ {
		if regionFor(day, bounds) != a {
			distinct = true
			break
		}
	}
	if !distinct {
		t.Error("nine consecutive days all produced the same region")
	}
}
