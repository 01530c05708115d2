// Package imagematch locates a template image within a larger image using
// normalized cross-correlation. A coarse pass over downsampled copies finds
// a candidate region; the full-resolution pass refines it. Not finding the
// template is an expected outcome, not an error.
package imagematch

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Match is a found template location. X,Y is the top-left corner of the
// match in the searched image's coordinate space.
type Match struct {
	X          int
	Y          int
	Confidence float64
}

// coarseMaxDim bounds the downsampled search size for the first pass.
const coarseMaxDim = 256

// refineWindow is the half-width of the full-resolution neighborhood
// searched around the coarse candidate.
const refineWindow = 8

// FindMatch searches img for tmpl and returns the best match when its
// confidence reaches minConfidence. The second result is false when no
// acceptable match exists.
func FindMatch(img, tmpl image.Image, minConfidence float64) (Match, bool) {
	if minConfidence < 0 || minConfidence > 1 {
		minConfidence = 0.8
	}

	src := toGray(img)
	pat := toGray(tmpl)
	if pat.w > src.w || pat.h > src.h || pat.w == 0 || pat.h == 0 {
		return Match{}, false
	}

	// Coarse pass: shrink both images by the same factor and scan fully.
	scale := 1.0
	if src.w > coarseMaxDim || src.h > coarseMaxDim {
		scale = float64(coarseMaxDim) / float64(max(src.w, src.h))
	}

	var cx, cy int
	if scale < 1.0 {
		smallSrc := toGray(resize(img, scale))
		smallPat := toGray(resize(tmpl, scale))
		if smallPat.w == 0 || smallPat.h == 0 || smallPat.w > smallSrc.w || smallPat.h > smallSrc.h {
			scale = 1.0
		} else {
			x, y, _ := scanBest(smallSrc, smallPat, 0, 0, smallSrc.w-smallPat.w, smallSrc.h-smallPat.h)
			cx = int(float64(x) / scale)
			cy = int(float64(y) / scale)
		}
	}

	// Refine at full resolution around the coarse candidate (or scan all
	// when no coarse pass ran).
	x0, y0 := 0, 0
	x1, y1 := src.w-pat.w, src.h-pat.h
	if scale < 1.0 {
		x0 = clamp(cx-refineWindow, 0, x1)
		y0 = clamp(cy-refineWindow, 0, y1)
		x1 = clamp(cx+refineWindow, 0, x1)
		y1 = clamp(cy+refineWindow, 0, y1)
	}

	bx, by, score := scanBest(src, pat, x0, y0, x1, y1)
	if score < minConfidence {
		return Match{}, false
	}
	return Match{X: bx, Y: by, Confidence: score}, true
}

// gray is a float64 grayscale plane.
type gray struct {
	pix  []float64
	w, h int
}

func toGray(img image.Image) gray {
	b := img.Bounds()
	g := gray{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			g.pix[i] = 0.299*float64(r>>8) + 0.587*float64(gr>>8) + 0.114*float64(bl>>8)
			i++
		}
	}
	return g
}

func resize(img image.Image, scale float64) image.Image {
	b := img.Bounds()
	w := int(math.Max(1, math.Round(float64(b.Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// scanBest slides pat over src within the inclusive top-left range and
// returns the position with the highest normalized cross-correlation.
func scanBest(src, pat gray, x0, y0, x1, y1 int) (int, int, float64) {
	patMean, patNorm := meanNorm(pat.pix)
	if patNorm == 0 {
		return x0, y0, 0
	}

	bestX, bestY := x0, y0
	bestScore := -1.0
	window := make([]float64, len(pat.pix))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			i := 0
			for py := 0; py < pat.h; py++ {
				row := (y+py)*src.w + x
				copy(window[i:i+pat.w], src.pix[row:row+pat.w])
				i += pat.w
			}
			score := ncc(window, pat.pix, patMean, patNorm)
			if score > bestScore {
				bestScore, bestX, bestY = score, x, y
			}
		}
	}
	return bestX, bestY, bestScore
}

func meanNorm(p []float64) (mean, norm float64) {
	for _, v := range p {
		mean += v
	}
	mean /= float64(len(p))
	for _, v := range p {
		d := v - mean
		norm += d * d
	}
	return mean, math.Sqrt(norm)
}

func ncc(window, pat []float64, patMean, patNorm float64) float64 {
	var winMean float64
	for _, v := range window {
		winMean += v
	}
	winMean /= float64(len(window))

	var dot, winNorm float64
	for i, v := range window {
		wd := v - winMean
		pd := pat[i] - patMean
		dot += wd * pd
		winNorm += wd * wd
	}
	if winNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(winNorm) * patNorm)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Validate sanity-checks a confidence threshold from config or CLI flags.
func Validate(minConfidence float64) error {
	if minConfidence < 0 || minConfidence > 1 {
		return fmt.Errorf("minConfidence %v outside [0,1]", minConfidence)
	}
	return nil
}
