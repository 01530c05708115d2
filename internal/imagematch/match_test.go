package imagematch

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// noisyImage builds a deterministic pseudo-random grayscale image. Random
// texture gives the correlation something to lock onto.
func noisyImage(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}
	return img
}

// crop copies a sub-rectangle into a fresh zero-origin image.
func crop(src *image.Gray, x, y, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			out.SetGray(dx, dy, src.GrayAt(x+dx, y+dy))
		}
	}
	return out
}

func TestFindMatch_ExactTemplate(t *testing.T) {
	screen := noisyImage(200, 160, 1)
	tmpl := crop(screen, 57, 83, 24, 16)

	m, found := FindMatch(screen, tmpl, 0.9)
	if !found {
		t.Fatal("template not found")
	}
	if m.X != 57 || m.Y != 83 {
		t.Errorf("match at %d,%d, want 57,83", m.X, m.Y)
	}
	if m.Confidence < 0.99 {
		t.Errorf("confidence = %v, want near 1.0 for exact crop", m.Confidence)
	}
}

func TestFindMatch_CoarseThenRefine(t *testing.T) {
	// Larger than coarseMaxDim on one axis, forcing the downsampled pass.
	screen := noisyImage(640, 400, 2)
	tmpl := crop(screen, 311, 222, 48, 40)

	m, found := FindMatch(screen, tmpl, 0.9)
	if !found {
		t.Fatal("template not found in large image")
	}
	if m.X != 311 || m.Y != 222 {
		t.Errorf("match at %d,%d, want 311,222", m.X, m.Y)
	}
}

func TestFindMatch_Absent(t *testing.T) {
	screen := noisyImage(200, 160, 3)
	// Template from an unrelated image does not appear in the screen.
	other := noisyImage(64, 64, 99)
	tmpl := crop(other, 10, 10, 24, 16)

	if m, found := FindMatch(screen, tmpl, 0.9); found {
		t.Errorf("unexpected match at %d,%d conf %v", m.X, m.Y, m.Confidence)
	}
}

func TestFindMatch_TemplateLargerThanImage(t *testing.T) {
	screen := noisyImage(50, 50, 4)
	tmpl := noisyImage(100, 100, 5)
	if _, found := FindMatch(screen, tmpl, 0.5); found {
		t.Error("oversized template cannot match")
	}
}

func TestFindMatch_UniformTemplate(t *testing.T) {
	screen := noisyImage(100, 100, 6)
	tmpl := image.NewGray(image.Rect(0, 0, 10, 10)) // all zeros, no contrast
	if _, found := FindMatch(screen, tmpl, 0.5); found {
		t.Error("zero-variance template must not match")
	}
}

func TestValidate(t *testing.T) {
	for _, v := range []float64{0, 0.5, 0.8, 1} {
		if err := Validate(v); err != nil {
			t.Errorf("Validate(%v): %v", v, err)
		}
	}
	for _, v := range []float64{-0.1, 1.1, 2} {
		if err := Validate(v); err == nil {
			t.Errorf("Validate(%v): expected error", v)
		}
	}
}

func TestParseRegion(t *testing.T) {
	b, err := ParseRegion("10, 20, 300, 400")
	if err != nil {
		t.Fatal(err)
	}
	if b != [4]int{10, 20, 300, 400} {
		t.Errorf("got %v, want {10 20 300 400}", b)
	}

	invalid := []string{"", "10,20,300", "10,20,300,400,500", "a,b,c,d", "10,20,0,400", "10,20,300,-1"}
	for _, s := range invalid {
		if _, err := ParseRegion(s); err == nil {
			t.Errorf("ParseRegion(%q) should fail", s)
		}
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmpl.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, noisyImage(8, 8, 7)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("bounds = %v, want 8x8", img.Bounds())
	}

	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
