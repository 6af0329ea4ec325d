// Package clue turns a car photo into a graded sequence of clue images.
//
// Earlier clues show a tightly zoomed, fully desaturated detail of the
// photo; each subsequent clue zooms out and restores color until the last
// one shows the (pre-cropped) photo in full color. The whole pipeline is
// deterministic: same input image and guess count, same output bytes.
package clue

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math/rand"

	"golang.org/x/image/draw"

	// Register decoders for the formats image hosts actually serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "golang.org/x/image/webp"
)

// Decode parses raw photo bytes with the registered decoders.
func Decode(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("clue: decode image: %w", err)
	}
	return img, nil
}

// EncodePNG renders an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("clue: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize shrinks img to fit within maxW x maxH, preserving aspect
// ratio. Images already within bounds pass through unchanged; nothing is
// ever upscaled here.
func Normalize(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Region picks the reveal window for a day's photo: the top-left corner is
// drawn uniformly from the upper-left 40% of each dimension, the
// bottom-right corner is fixed at 60%. Callers pass a generator seeded for
// the day so the window is stable across restarts.
func Region(bounds image.Rectangle, rng *rand.Rand) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	maxX := int(0.4 * float64(w))
	if maxX < 1 {
		maxX = 1
	}
	maxY := int(0.4 * float64(h))
	if maxY < 1 {
		maxY = 1
	}
	x0 := rng.Intn(maxX)
	y0 := rng.Intn(maxY)
	x1 := int(0.6 * float64(w))
	y1 := int(0.6 * float64(h))
	return image.Rect(bounds.Min.X+x0, bounds.Min.Y+y0, bounds.Min.X+x1, bounds.Min.Y+y1)
}

// Variants renders the clue sequence for one photo. It returns guesses
// images, all with identical dimensions: index i is shown after i wrong
// guesses. With guesses == 1 the single variant is the full-color
// pre-cropped photo.
func Variants(img image.Image, guesses int) ([]image.Image, error) {
	if guesses < 1 {
		return nil, fmt.Errorf("clue: guesses must be >= 1, got %d", guesses)
	}

	base := centerCrop(img, 0.5)
	bw, bh := base.Bounds().Dx(), base.Bounds().Dy()

	out := make([]image.Image, guesses)
	for i := 0; i < guesses; i++ {
		zoom, sat := 1.0, 1.0
		if guesses > 1 {
			t := float64(i) / float64(guesses-1)
			zoom = 0.5 + 0.5*t
			sat = t
		}

		cropped := centerCrop(base, zoom)
		scaled := image.NewRGBA(image.Rect(0, 0, bw, bh))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)
		desaturate(scaled, sat)
		out[i] = scaled
	}
	return out, nil
}

// EncodeVariants runs Variants and renders each to PNG.
func EncodeVariants(img image.Image, guesses int) ([][]byte, error) {
	imgs, err := Variants(img, guesses)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(imgs))
	for i, v := range imgs {
		b, err := EncodePNG(v)
		if err != nil {
			return nil, fmt.Errorf("clue: variant %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// centerCrop returns the centered frac x frac window of img as a new RGBA.
func centerCrop(img image.Image, frac float64) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw := int(float64(w) * frac)
	ch := int(float64(h) * frac)
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	x0 := b.Min.X + (w-cw)/2
	y0 := b.Min.Y + (h-ch)/2

	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return dst
}

// desaturate blends each pixel toward its Rec.601 luma in place. sat is
// the fraction of original color retained: 0 is grayscale, 1 leaves the
// image untouched.
func desaturate(img *image.RGBA, sat float64) {
	if sat >= 1.0 {
		return
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		gray := (299*r + 587*g + 114*b + 500) / 1000
		pix[i] = blend(gray, r, sat)
		pix[i+1] = blend(gray, g, sat)
		pix[i+2] = blend(gray, b, sat)
	}
}

// blend interpolates gray -> v by sat, rounding half up.
func blend(gray, v int, sat float64) uint8 {
	f := float64(gray) + sat*float64(v-gray)
	n := int(f + 0.5)
	if n < 0 {
		n = 0
	} else if n > 255 {
		n = 255
	}
	return uint8(n)
}
