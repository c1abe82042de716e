// Package ggrenderer provides a renderer implementation using the gg library.
//
// Frame sources draw one canvas per frame, so font faces loaded from disk
// are cached on the Renderer and shared by every canvas it creates.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/user/gifpress/pkg/ports"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithScaler sets the interpolator used by ResizeImage.
// The default is draw.CatmullRom; draw.ApproxBiLinear is much faster.
func WithScaler(s draw.Scaler) Option {
	return func(r *Renderer) {
		if s != nil {
			r.scaler = s
		}
	}
}

type faceKey struct {
	path string
	size float64
}

// Renderer implements ports.Renderer using the gg library.
type Renderer struct {
	scaler draw.Scaler

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// New creates a new Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		scaler: draw.CatmullRom,
		faces:  make(map[faceKey]font.Face),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc, renderer: r}
}

// face returns the cached face for path at size, loading it on first use.
func (r *Renderer) face(path string, size float64) (font.Face, error) {
	key := faceKey{path: path, size: size}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f, err := gg.LoadFontFace(path, size)
	if err != nil {
		return nil, err
	}
	r.faces[key] = f
	return f, nil
}

// DecodeImage decodes image data into an image.Image.
// FormatAuto detects PNG or JPEG from the data.
func (r *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch format {
	case ports.FormatJPEG:
		return jpeg.Decode(reader)
	case ports.FormatPNG:
		return png.Decode(reader)
	default:
		img, _, err := image.Decode(reader)
		return img, err
	}
}

// EncodeImage encodes an image to the specified format.
// FormatAuto encodes PNG; quality only applies to JPEG.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG, ports.FormatAuto:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage scales an image to exactly width x height. Source alpha is
// copied, not composited, so transparent input stays transparent.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst
	}
	r.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc       *gg.Context
	renderer *Renderer
}

// DrawImage draws an image at the specified position.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawCircle draws a filled circle centered at (x, y).
func (c *Canvas) DrawCircle(x, y, radius int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawCircle(float64(x), float64(y), float64(radius))
	c.dc.Fill()
}

// DrawText draws text vertically centered on y.
// Without a FontPath the built-in face is used.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.dc.SetColor(style.Color)

	if style.FontPath != "" {
		// An unreadable font leaves the current face in place.
		if f, err := c.renderer.face(style.FontPath, style.FontSize); err == nil {
			c.dc.SetFontFace(f)
		}
	}

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.5)
}

// ToImage returns the canvas as an image.Image backed by *image.RGBA, so
// framebuf can convert it without a color model round trip.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

// Ensure Canvas implements ports.Canvas
var _ ports.Canvas = (*Canvas)(nil)
