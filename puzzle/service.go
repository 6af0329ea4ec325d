// Package puzzle is the daily guess-the-car game engine: it picks one car
// per day from the pool, resolves a photo for it, renders the graded clue
// sequence, and answers guesses and hints against the pick.
//
// The pick is deterministic in the day number, so restarts and replicas
// agree on the answer without coordination; the SQLite cache only avoids
// re-fetching the photo.
package puzzle

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/hazyhaar/cardle/carset"
	"github.com/hazyhaar/cardle/clue"
	"github.com/hazyhaar/cardle/daily"
	"github.com/hazyhaar/cardle/puzzle/store"
)

// State is one day's fully materialized puzzle.
type State struct {
	Day      int
	Record   carset.Record
	Image    []byte   // normalized full photo, PNG
	Variants [][]byte // clue PNGs, index 0 shown first
	Region   image.Rectangle
}

// DayInfo is the public shape of the current period.
type DayInfo struct {
	Day              int `json:"day_number"`
	MaxGuesses       int `json:"max_guesses"`
	SecondsUntilNext int `json:"seconds_until_next_reset"`
}

// Service orchestrates selection, image work, caching and comparison.
type Service struct {
	pool     *carset.Pool
	clock    *daily.Clock
	resolver Resolver
	store    *store.Store
	logger   *slog.Logger

	maxGuesses int
	maxW, maxH int

	mu    sync.Mutex
	state *State // current day's puzzle, nil until first built
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithMaxGuesses sets the clue count per puzzle. Default: 7.
func WithMaxGuesses(n int) ServiceOption {
	return func(s *Service) {
		if n >= 1 {
			s.maxGuesses = n
		}
	}
}

// WithImageBounds sets the normalization box. Default: 800x600.
func WithImageBounds(w, h int) ServiceOption {
	return func(s *Service) {
		if w >= 1 && h >= 1 {
			s.maxW, s.maxH = w, h
		}
	}
}

// NewService wires the engine together. st may be nil, in which case every
// lookup rebuilds from the resolver (used for tests and one-shot tools).
func NewService(pool *carset.Pool, clock *daily.Clock, resolver Resolver, st *store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		pool:       pool,
		clock:      clock,
		resolver:   resolver,
		store:      st,
		logger:     slog.Default(),
		maxGuesses: 7,
		maxW:       800,
		maxH:       600,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns today's puzzle, building and caching it if needed.
func (s *Service) Current(ctx context.Context) (*State, error) {
	day := s.clock.DayNumber()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil && s.state.Day == day && len(s.state.Variants) == s.maxGuesses {
		return s.state, nil
	}

	st, err := s.loadOrBuild(ctx, day)
	if err != nil {
		return nil, err
	}
	s.state = st
	return st, nil
}

// ForDay returns the puzzle for a past day. The current day goes through
// the cache; historical days replay the selection walk in memory and never
// touch the cache, so looking back cannot evict today's puzzle.
func (s *Service) ForDay(ctx context.Context, day int) (*State, error) {
	current := s.clock.DayNumber()
	if day == current {
		return s.Current(ctx)
	}
	if day < 1 || day > current {
		return nil, fmt.Errorf("%w: %d (current is %d)", ErrInvalidDay, day, current)
	}
	return s.build(ctx, day, false)
}

// ClueImage returns the clue PNG for a given wrong-guess count, for today
// (day == 0) or a specific day. The index clamps into range so a client
// that overshoots still gets the final clue.
func (s *Service) ClueImage(ctx context.Context, day, guess int) ([]byte, error) {
	st, err := s.stateFor(ctx, day)
	if err != nil {
		return nil, err
	}
	if guess < 0 {
		guess = 0
	}
	if guess >= len(st.Variants) {
		guess = len(st.Variants) - 1
	}
	return st.Variants[guess], nil
}

// FullImage returns the normalized full-color photo, revealed at game end.
func (s *Service) FullImage(ctx context.Context, day int) ([]byte, error) {
	st, err := s.stateFor(ctx, day)
	if err != nil {
		return nil, err
	}
	return st.Image, nil
}

// CompareGuess grades a guessed car name against the day's answer.
func (s *Service) CompareGuess(ctx context.Context, day int, name string) (*carset.GuessResult, error) {
	guessed := s.pool.Lookup(name)
	if guessed == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCar, name)
	}
	st, err := s.stateFor(ctx, day)
	if err != nil {
		return nil, err
	}
	res := carset.Compare(guessed, &st.Record)
	return &res, nil
}

// hintValue maps the hint API's field names onto record attributes.
func hintValue(r *carset.Record, field string) (string, bool) {
	switch field {
	case "year":
		return r.Year, true
	case "cylinders":
		return r.Cylinders, true
	case "horsepower":
		return r.Horsepower, true
	case "fuel_capacity_gal":
		return r.FuelGal, true
	case "fuel_capacity_liters":
		return r.FuelL, true
	case "country":
		return r.Country, true
	}
	return "", false
}

// FieldHint reveals one attribute of the day's answer.
func (s *Service) FieldHint(ctx context.Context, day int, field string) (string, error) {
	st, err := s.stateFor(ctx, day)
	if err != nil {
		return "", err
	}
	v, ok := hintValue(&st.Record, field)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return v, nil
}

// RevealAnswer returns the day's answer record in full.
func (s *Service) RevealAnswer(ctx context.Context, day int) (carset.Record, error) {
	st, err := s.stateFor(ctx, day)
	if err != nil {
		return carset.Record{}, err
	}
	return st.Record, nil
}

// DayInfo reports the current period without forcing a puzzle build.
func (s *Service) DayInfo() DayInfo {
	return DayInfo{
		Day:              s.clock.DayNumber(),
		MaxGuesses:       s.maxGuesses,
		SecondsUntilNext: s.clock.SecondsUntilNextReset(),
	}
}

// Pool exposes the record pool for the catalog endpoints.
func (s *Service) Pool() *carset.Pool { return s.pool }

// MaxGuesses returns the configured clue count.
func (s *Service) MaxGuesses() int { return s.maxGuesses }

// PurgeCache drops the cached puzzle and the in-memory state; the next
// request rebuilds. The selection log survives.
func (s *Service) PurgeCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	if s.store == nil {
		return nil
	}
	return s.store.Purge(ctx)
}

// RecentSelections lists the latest pool picks, newest first.
func (s *Service) RecentSelections(ctx context.Context, limit int) ([]store.Selection, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentSelections(ctx, limit)
}

// stateFor resolves day 0 to "today".
func (s *Service) stateFor(ctx context.Context, day int) (*State, error) {
	if day == 0 {
		return s.Current(ctx)
	}
	return s.ForDay(ctx, day)
}

// loadOrBuild serves day from the cache when possible. A cached entry with
// the wrong variant count keeps its photo; only the variants are redone.
// Callers hold s.mu.
func (s *Service) loadOrBuild(ctx context.Context, day int) (*State, error) {
	if s.store == nil {
		return s.build(ctx, day, false)
	}

	entry, err := s.store.Load(ctx, day)
	if err != nil {
		// Cache I/O failure is recovered exactly like a miss: the puzzle
		// is recomputable from the resolver, so a broken cache never
		// reaches the caller.
		s.logger.Warn("cache read failed, rebuilding", "day", day, "error", err)
		return s.build(ctx, day, true)
	}
	if entry == nil {
		return s.build(ctx, day, true)
	}

	img, err := clue.Decode(entry.Image)
	if err != nil {
		// Image blob rotted on disk. Rebuild from scratch.
		s.logger.Warn("cached image undecodable, rebuilding", "day", day, "error", err)
		return s.build(ctx, day, true)
	}

	variants := entry.Variants
	if len(variants) != s.maxGuesses {
		s.logger.Info("regenerating clue variants",
			"day", day, "have", len(variants), "want", s.maxGuesses)
		variants, err = clue.EncodeVariants(img, s.maxGuesses)
		if err != nil {
			return nil, fmt.Errorf("puzzle: variants for day %d: %w", day, err)
		}
		if err := s.store.SaveVariants(ctx, day, variants); err != nil {
			s.logger.Warn("persisting regenerated variants failed", "day", day, "error", err)
		}
	}

	return &State{
		Day:      day,
		Record:   entry.Record,
		Image:    entry.Image,
		Variants: variants,
		Region:   regionFor(day, img.Bounds()),
	}, nil
}

// build materializes a day's puzzle from the resolver. persist writes it
// to the cache and selection log; historical lookups pass false.
func (s *Service) build(ctx context.Context, day int, persist bool) (*State, error) {
	sel, err := s.selectForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	normalized := clue.Normalize(sel.img, s.maxW, s.maxH)
	imgPNG, err := clue.EncodePNG(normalized)
	if err != nil {
		return nil, fmt.Errorf("puzzle: encode image for day %d: %w", day, err)
	}
	variants, err := clue.EncodeVariants(normalized, s.maxGuesses)
	if err != nil {
		return nil, fmt.Errorf("puzzle: variants for day %d: %w", day, err)
	}

	st := &State{
		Day:      day,
		Record:   sel.record,
		Image:    imgPNG,
		Variants: variants,
		Region:   regionFor(day, normalized.Bounds()),
	}

	s.logger.Info("puzzle selected",
		"day", day, "car", sel.record.Name(), "attempts", sel.attempts,
		"image_url", sel.record.ImageURL)

	if persist && s.store != nil {
		if err := s.store.Save(ctx, &store.Entry{
			Day: day, Record: st.Record, Image: st.Image, Variants: st.Variants,
		}); err != nil {
			// The puzzle is still served from memory this process lifetime.
			s.logger.Warn("caching puzzle failed", "day", day, "error", err)
		}
		if err := s.store.LogSelection(ctx, day, sel.record, sel.record.ImageURL, sel.attempts); err != nil {
			s.logger.Warn("selection log write failed", "day", day, "error", err)
		}
	}
	return st, nil
}
