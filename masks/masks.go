// Package masks renders black-and-white PNG masks used to cut venue photos
// into the shapes the site layouts expect.
package masks

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"path"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	MaxDimension = 4096
	MaxShapes    = 64
	MaxFeather   = 50

	ShapeRect    = "rect"
	ShapeEllipse = "ellipse"

	BackgroundBlack       = "black"
	BackgroundTransparent = "transparent"
)

var (
	ErrInvalidSize   = errors.New("width and height must be between 1 and 4096")
	ErrNoShapes      = errors.New("at least one shape is required")
	ErrTooManyShapes = errors.New("too many shapes")
)

// Shape is a rectangle or ellipse in pixel coordinates. For ellipses the
// box is the bounding rectangle.
type Shape struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Request describes a mask to render
type Request struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Shapes     []Shape `json:"shapes"`
	Background string  `json:"background,omitempty"`
	Invert     bool    `json:"invert,omitempty"`
	Feather    float64 `json:"feather,omitempty"` // gaussian blur sigma in pixels
}

// Validate checks the request bounds and shape types
func (r Request) Validate() error {
	if r.Width < 1 || r.Height < 1 || r.Width > MaxDimension || r.Height > MaxDimension {
		return ErrInvalidSize
	}
	if len(r.Shapes) == 0 {
		return ErrNoShapes
	}
	if len(r.Shapes) > MaxShapes {
		return ErrTooManyShapes
	}
	switch r.Background {
	case "", BackgroundBlack, BackgroundTransparent:
	default:
		return fmt.Errorf("unknown background %q", r.Background)
	}
	if r.Feather < 0 || r.Feather > MaxFeather {
		return fmt.Errorf("feather must be between 0 and %d", MaxFeather)
	}
	for i, s := range r.Shapes {
		if s.Type != ShapeRect && s.Type != ShapeEllipse {
			return fmt.Errorf("shape %d: unknown type %q", i, s.Type)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("shape %d: width and height must be positive", i)
		}
	}
	return nil
}

// Render draws the mask. Shapes are white on the background unless Invert
// is set, in which case they are cut out of a white canvas.
func Render(r Request) (*image.NRGBA, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	bg := color.NRGBA{A: 255}
	if r.Background == BackgroundTransparent {
		bg = color.NRGBA{}
	}
	fg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if r.Invert {
		fg, bg = bg, fg
	}

	img := imaging.New(r.Width, r.Height, bg)
	for _, s := range r.Shapes {
		fill(img, s, fg)
	}

	if r.Feather > 0 {
		img = imaging.Blur(img, r.Feather)
	}
	return img, nil
}

// RenderPNG renders the mask and encodes it as PNG
func RenderPNG(r Request) ([]byte, error) {
	img, err := Render(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes img as PNG
func Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// ObjectKey returns a unique storage key for a new mask
func ObjectKey(prefix string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format("2006/01"), uuid.NewString()+".png")
}

func fill(img *image.NRGBA, s Shape, c color.NRGBA) {
	b := img.Bounds()
	x0 := clamp(int(s.X), b.Min.X, b.Max.X)
	y0 := clamp(int(s.Y), b.Min.Y, b.Max.Y)
	x1 := clamp(int(s.X+s.Width+0.5), b.Min.X, b.Max.X)
	y1 := clamp(int(s.Y+s.Height+0.5), b.Min.Y, b.Max.Y)

	cx, cy := s.X+s.Width/2, s.Y+s.Height/2
	rx, ry := s.Width/2, s.Height/2

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if s.Type == ShapeEllipse {
				dx := (float64(x) + 0.5 - cx) / rx
				dy := (float64(y) + 0.5 - cy) / ry
				if dx*dx+dy*dy > 1 {
					continue
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
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
