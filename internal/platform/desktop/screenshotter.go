//go:build cgo

package desktop

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// Screenshotter captures screen content through robotgo.
type Screenshotter struct{}

// NewScreenshotter creates the robotgo-backed screenshotter.
func NewScreenshotter() *Screenshotter {
	return &Screenshotter{}
}

func (s *Screenshotter) CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

func (s *Screenshotter) CaptureRegion(x, y, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture region: invalid size %dx%d", w, h)
	}
	img, err := robotgo.CaptureImg(x, y, w, h)
	if err != nil {
		return nil, fmt.Errorf("capture region %d,%d %dx%d: %w", x, y, w, h, err)
	}
	return img, nil
}
