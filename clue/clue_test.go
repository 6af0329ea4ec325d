package clue

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// colorfulImage builds a strongly colored gradient so that desaturation
// is measurable.
func colorfulImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: uint8(255 - 255*x/w),
				A: 255,
			})
		}
	}
	return img
}

// colorfulness sums per-pixel channel spread; grayscale images score 0.
func colorfulness(img image.Image) int {
	b := img.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			ri, gi, bi := int(r>>8), int(g>>8), int(bl>>8)
			total += abs(ri-gi) + abs(gi-bi) + abs(bi-ri)
		}
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// WHAT: all variants share the same dimensions (the pre-crop's) so the
// front end can swap them without reflow.
func TestVariants_EqualDimensions(t *testing.T) {
	imgs, err := Variants(colorfulImage(200, 150), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 7 {
		t.Fatalf("got %d variants, want 7", len(imgs))
	}
	w, h := imgs[0].Bounds().Dx(), imgs[0].Bounds().Dy()
	if w != 100 || h != 75 {
		t.Errorf("variant size = %dx%d, want the 50%% pre-crop 100x75", w, h)
	}
	for i, v := range imgs {
		if v.Bounds().Dx() != w || v.Bounds().Dy() != h {
			t.Errorf("variant %d size = %dx%d, want %dx%d",
				i, v.Bounds().Dx(), v.Bounds().Dy(), w, h)
		}
	}
}

// WHAT: color returns monotonically across the sequence; the first variant
// is pure grayscale, the last is fully saturated.
func TestVariants_SaturationProgression(t *testing.T) {
	imgs, err := Variants(colorfulImage(160, 120), 5)
	if err != nil {
		t.Fatal(err)
	}
	if c := colorfulness(imgs[0]); c != 0 {
		t.Errorf("first variant should be grayscale, colorfulness = %d", c)
	}
	prev := -1
	for i, v := range imgs {
		c := colorfulness(v)
		if c < prev {
			t.Errorf("colorfulness decreased at variant %d: %d -> %d", i, prev, c)
		}
		prev = c
	}
}

// WHAT: a single-guess game degenerates to one full-color variant of the
// pre-cropped photo.
func TestVariants_SingleGuess(t *testing.T) {
	src := colorfulImage(100, 100)
	imgs, err := Variants(src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 1 {
		t.Fatalf("got %d variants, want 1", len(imgs))
	}
	if c := colorfulness(imgs[0]); c == 0 {
		t.Error("single variant should keep full color")
	}
}

func TestVariants_RejectsZeroGuesses(t *testing.T) {
	if _, err := Variants(colorfulImage(10, 10), 0); err == nil {
		t.Fatal("expected error for guesses=0")
	}
}

// WHAT: the pipeline is byte-for-byte deterministic.
// WHY: cached variants and freshly regenerated ones must be
// indistinguishable.
func TestEncodeVariants_Deterministic(t *testing.T) {
	src := colorfulImage(120, 90)
	a, err := EncodeVariants(src, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeVariants(src, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Errorf("variant %d differs between runs", i)
		}
	}
}

// WHAT: Region stays inside the image, with the bottom-right corner pinned
// at 60% and the top-left inside the upper-left 40%.
func TestRegion_Bounds(t *testing.T) {
	bounds := image.Rect(0, 0, 500, 400)
	for seed := int64(0); seed < 50; seed++ {
		r := Region(bounds, rand.New(rand.NewSource(seed)))
		if r.Max.X != 300 || r.Max.Y != 240 {
			t.Fatalf("seed %d: bottom-right = (%d,%d), want (300,240)", seed, r.Max.X, r.Max.Y)
		}
		if r.Min.X < 0 || r.Min.X >= 200 || r.Min.Y < 0 || r.Min.Y >= 160 {
			t.Fatalf("seed %d: top-left (%d,%d) outside [0,200)x[0,160)", seed, r.Min.X, r.Min.Y)
		}
		if r.Empty() {
			t.Fatalf("seed %d: empty region %v", seed, r)
		}
	}
}

func TestRegion_Deterministic(t *testing.T) {
	bounds := image.Rect(0, 0, 800, 600)
	a := Region(bounds, rand.New(rand.NewSource(42)))
	b := Region(bounds, rand.New(rand.NewSource(42)))
	if a != b {
		t.Errorf("same seed gave different regions: %v vs %v", a, b)
	}
}

// WHAT: Region never panics on tiny images.
func TestRegion_TinyImage(t *testing.T) {
	r := Region(image.Rect(0, 0, 2, 2), rand.New(rand.NewSource(1)))
	if r.Min.X != 0 || r.Min.Y != 0 {
		t.Errorf("tiny image should pin top-left at origin, got %v", r)
	}
}

// WHAT: Normalize shrinks oversized images preserving aspect, and leaves
// in-bounds images untouched.
func TestNormalize(t *testing.T) {
	big := colorfulImage(1600, 900)
	got := Normalize(big, 800, 600)
	if w, h := got.Bounds().Dx(), got.Bounds().Dy(); w != 800 || h != 450 {
		t.Errorf("normalized size = %dx%d, want 800x450", w, h)
	}

	small := colorfulImage(640, 480)
	if Normalize(small, 800, 600) != image.Image(small) {
		t.Error("in-bounds image should pass through unchanged")
	}

	tall := colorfulImage(600, 1200)
	if w, h := Normalize(tall, 800, 600).Bounds().Dx(), Normalize(tall, 800, 600).Bounds().Dy(); w != 300 || h != 600 {
		t.Errorf("tall image normalized to %dx%d, want 300x600", w, h)
	}
}

// WHAT: Decode handles the formats photo hosts serve and rejects garbage.
func TestDecode(t *testing.T) {
	b, err := EncodePNG(colorfulImage(8, 8))
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode png: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d, want 8", img.Bounds().Dx())
	}

	if _, err := Decode([]byte("not an image at all")); err == nil {
		t.Error("garbage bytes should fail to decode")
	}
}
