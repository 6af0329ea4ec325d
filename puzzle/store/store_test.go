package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/cardle/carset"
	"github.com/hazyhaar/cardle/dbopen"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return New(db)
}

func testRecord() carset.Record {
	return carset.Record{
		Make:       "Mazda",
		Model:      "MX-5",
		Year:       "1994",
		Cylinders:  "I4",
		Horsepower: "128",
		Country:    "Japan",
		ImageURL:   "http://img.example/mx5.jpg",
	}
}

// WHAT: a saved puzzle reads back intact for its own day, variants in
// index order.
func TestStore_SaveLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	entry := &Entry{
		Day:      42,
		Record:   testRecord(),
		Image:    []byte("png: full image"),
		Variants: [][]byte{[]byte("v0"), []byte("v1"), []byte("v2")},
	}
	if err := s.Save(ctx, entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, 42)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil for the saved day")
	}
	if got.Record.Make != "Mazda" || got.Record.Model != "MX-5" {
		t.Errorf("record = %+v", got.Record)
	}
	if string(got.Image) != "png: full image" {
		t.Errorf("image = %q", got.Image)
	}
	if len(got.Variants) != 3 || string(got.Variants[1]) != "v1" {
		t.Errorf("variants = %q", got.Variants)
	}
}

func TestStore_Load_Empty(t *testing.T) {
	s := openStore(t)
	got, err := s.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("empty cache should load nil, got %+v", got)
	}
}

// WHAT: loading for a different day clears the stale row entirely.
// WHY: the cache holds exactly one day's puzzle; yesterday's must never
// leak into today.
func TestStore_Load_Stale(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &Entry{Day: 10, Record: testRecord(),
		Image: []byte("img"), Variants: [][]byte{[]byte("v")}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, 11)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("stale cache should load nil, got day %d", got.Day)
	}

	// The stale row is gone, not just skipped.
	got, err = s.Load(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("stale row should have been deleted")
	}
}

// WHAT: an undecodable record column is treated as absent and cleared,
// never surfaced as an error.
func TestStore_Load_Corrupt(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := New(db)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO puzzle_cache (id, day_number, record, image) VALUES (1, 5, '{{not json', x'00')`); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, 5)
	if err != nil {
		t.Fatalf("corrupt cache should not error: %v", err)
	}
	if got != nil {
		t.Fatal("corrupt cache should load nil")
	}
}

// WHAT: the legacy [record, base64-image] pair encoding still loads, with
// the image taken from the pair when the blob column is empty.
func TestStore_Load_LegacyPair(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := New(db)
	ctx := context.Background()

	recJSON, err := json.Marshal(testRecord())
	if err != nil {
		t.Fatal(err)
	}
	img := []byte("legacy image bytes")
	pair, err := json.Marshal([]any{
		json.RawMessage(recJSON),
		base64.StdEncoding.EncodeToString(img),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO puzzle_cache (id, day_number, record, image) VALUES (1, 7, ?, x'')`,
		string(pair)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("legacy pair should load")
	}
	if got.Record.Make != "Mazda" {
		t.Errorf("record = %+v", got.Record)
	}
	if string(got.Image) != "legacy image bytes" {
		t.Errorf("image = %q", got.Image)
	}
}

// WHAT: unreadable variant rows degrade to an entry without variants
// instead of failing the load; the caller regenerates them.
func TestStore_Load_VariantsUnreadable(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := New(db)
	ctx := context.Background()

	if err := s.Save(ctx, &Entry{Day: 9, Record: testRecord(),
		Image: []byte("img"), Variants: [][]byte{[]byte("v")}}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `DROP TABLE puzzle_variants`); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, 9)
	if err != nil {
		t.Fatalf("variant read failure should not fail the load: %v", err)
	}
	if got == nil {
		t.Fatal("entry should still load")
	}
	if len(got.Variants) != 0 {
		t.Fatalf("variants should be absent, got %d", len(got.Variants))
	}
}

// WHAT: SaveVariants rewrites only the variant rows; the main cache row
// survives.
func TestStore_SaveVariants(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &Entry{Day: 3, Record: testRecord(),
		Image: []byte("img"), Variants: [][]byte{[]byte("old")}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveVariants(ctx, 3, [][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("SaveVariants: %v", err)
	}

	got, err := s.Load(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("cache row should survive variant rewrite")
	}
	if len(got.Variants) != 2 || string(got.Variants[0]) != "a" {
		t.Errorf("variants = %q", got.Variants)
	}
}

// WHAT: Purge clears the cache but keeps the selection log.
func TestStore_Purge(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &Entry{Day: 1, Record: testRecord(),
		Image: []byte("img"), Variants: [][]byte{[]byte("v")}}); err != nil {
		t.Fatal(err)
	}
	if err := s.LogSelection(ctx, 1, testRecord(), "http://img.example/x.jpg", 2); err != nil {
		t.Fatal(err)
	}

	if err := s.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	got, err := s.Load(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("cache should be empty after purge")
	}

	sels, err := s.RecentSelections(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sels) != 1 {
		t.Fatalf("selection log should survive purge, got %d rows", len(sels))
	}
	if sels[0].Make != "Mazda" || sels[0].Attempts != 2 {
		t.Errorf("selection = %+v", sels[0])
	}
	if sels[0].ID == "" {
		t.Error("selection id should be generated")
	}
}
