package puzzle

import (
	"context"
	"image"
	"math/rand"

	"github.com/hazyhaar/cardle/carset"
	"github.com/hazyhaar/cardle/clue"
	"github.com/hazyhaar/cardle/photosearch"
)

// Salt is mixed into the day number to seed both the selection walk and
// the reveal-region generator. Changing it reshuffles every future day.
const Salt = 12345

// Resolver turns a search query into photo bytes. Satisfied by
// *photosearch.Client; tests substitute stubs.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*photosearch.Photo, error)
}

// SearchQuery builds the image-search query for a record: the quoted
// display name followed by the model year, when the record has one.
func SearchQuery(r *carset.Record) string {
	q := `"` + r.Name() + `"`
	if r.Year != "" {
		q += " " + r.Year
	}
	return q
}

// selection is the outcome of one day's pool walk.
type selection struct {
	record   carset.Record // copy with ImageURL filled in
	img      image.Image   // decoded, not yet normalized
	attempts int           // candidates tried, including the winner
}

// selectForDay walks the selectable pool in the day's seeded shuffle
// order and returns the first candidate whose photo resolves and decodes.
// The shuffle is a full Fisher-Yates over index order, so every day sees a
// distinct permutation but the same day always sees the same one.
func (s *Service) selectForDay(ctx context.Context, day int) (*selection, error) {
	pool := s.pool.Selectable()
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(int64(day + Salt)))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	attempts := 0
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := *pool[idx]
		attempts++

		photo, err := s.resolver.Resolve(ctx, SearchQuery(&rec))
		if err != nil {
			s.logger.Debug("candidate photo unresolvable",
				"car", rec.Name(), "day", day, "error", err)
			continue
		}
		img, err := clue.Decode(photo.Bytes)
		if err != nil {
			s.logger.Debug("candidate photo undecodable",
				"car", rec.Name(), "day", day, "url", photo.URL, "error", err)
			continue
		}

		rec.ImageURL = photo.URL
		return &selection{record: rec, img: img, attempts: attempts}, nil
	}
	return nil, ErrNoPuzzle
}

// regionFor derives the day's reveal window from its own generator so the
// window stays stable regardless of how many shuffle draws preceded it.
func regionFor(day int, bounds image.Rectangle) image.Rectangle {
	rng := rand.New(rand.NewSource(int64(day + Salt)))
	return clue.Region(bounds, rng)
}
