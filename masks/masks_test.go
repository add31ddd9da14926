package masks

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok := Shape{Type: ShapeRect, Width: 1, Height: 1}

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"zero size", Request{Shapes: []Shape{ok}}, "between 1 and 4096"},
		{"too large", Request{Width: 5000, Height: 10, Shapes: []Shape{ok}}, "between 1 and 4096"},
		{"no shapes", Request{Width: 10, Height: 10}, "at least one shape"},
		{"bad type", Request{Width: 10, Height: 10, Shapes: []Shape{{Type: "star", Width: 1, Height: 1}}}, "unknown type"},
		{"empty shape", Request{Width: 10, Height: 10, Shapes: []Shape{{Type: ShapeEllipse}}}, "must be positive"},
		{"bad background", Request{Width: 10, Height: 10, Shapes: []Shape{ok}, Background: "red"}, "unknown background"},
		{"feather", Request{Width: 10, Height: 10, Shapes: []Shape{ok}, Feather: 99}, "feather"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Request{Width: 10, Height: 10, Shapes: []Shape{ok}}.Validate())
}

func TestRender_Rect(t *testing.T) {
	img, err := Render(Request{
		Width:  10,
		Height: 10,
		Shapes: []Shape{{Type: ShapeRect, X: 2, Y: 2, Width: 4, Height: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(255), img.NRGBAAt(3, 3).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(5, 5).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(6, 6).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
}

func TestRender_EllipseClipsCorners(t *testing.T) {
	img, err := Render(Request{
		Width:  20,
		Height: 20,
		Shapes: []Shape{{Type: ShapeEllipse, X: 0, Y: 0, Width: 20, Height: 20}},
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(255), img.NRGBAAt(10, 10).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(19, 19).R)
}

func TestRender_InvertAndTransparent(t *testing.T) {
	img, err := Render(Request{
		Width:      10,
		Height:     10,
		Background: BackgroundTransparent,
		Shapes:     []Shape{{Type: ShapeRect, X: 0, Y: 0, Width: 5, Height: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), img.NRGBAAt(8, 5).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(2, 5).A)

	inv, err := Render(Request{
		Width:  10,
		Height: 10,
		Invert: true,
		Shapes: []Shape{{Type: ShapeRect, X: 0, Y: 0, Width: 5, Height: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), inv.NRGBAAt(2, 5).R)
	assert.Equal(t, uint8(255), inv.NRGBAAt(8, 5).R)
}

func TestRender_ShapesOutsideCanvasAreClipped(t *testing.T) {
	img, err := Render(Request{
		Width:  10,
		Height: 10,
		Shapes: []Shape{{Type: ShapeRect, X: -5, Y: 8, Width: 100, Height: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 9).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 7).R)
}

func TestRender_Feather(t *testing.T) {
	img, err := Render(Request{
		Width:   20,
		Height:  20,
		Feather: 1,
		Shapes:  []Shape{{Type: ShapeRect, X: 5, Y: 5, Width: 10, Height: 10}},
	})
	require.NoError(t, err)

	edge := img.NRGBAAt(4, 10).R
	assert.Greater(t, edge, uint8(0))
	assert.Less(t, edge, uint8(255))
}

func TestRenderPNG(t *testing.T) {
	data, err := RenderPNG(Request{
		Width:  32,
		Height: 16,
		Shapes: []Shape{{Type: ShapeEllipse, X: 4, Y: 4, Width: 8, Height: 8}},
	})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	a := ObjectKey("masks", now)
	b := ObjectKey("masks", now)

	assert.True(t, strings.HasPrefix(a, "masks/2025/07/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}
