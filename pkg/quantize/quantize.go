// Package quantize reduces true-color frames to indexed images with at most
// 255 palette entries.
//
// One of the 256 slots a GIF color table allows is left free so that delta
// frames can append a transparent entry without re-quantizing. Pixels with
// alpha below AlphaThreshold share a single transparent entry, the only
// palette color with zero alpha.
package quantize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	mediancut "github.com/ericpauley/go-quantize/quantize"
	xdraw "golang.org/x/image/draw"

	"github.com/user/gifpress/pkg/ports"
)

// MaxPaletteSize is the largest palette Quantize produces.
const MaxPaletteSize = 255

// minColors is the palette size used at quality 0.
const minColors = 16

// AlphaThreshold is the alpha below which a pixel is written as transparent.
// Pixels at or above it are written opaque.
const AlphaThreshold = 128

// ErrInvalidFrameDimensions is returned when a pixel buffer does not match
// the frame's width and height.
var ErrInvalidFrameDimensions = errors.New("quantize: pixel buffer does not match frame dimensions")

// IndexedImage is a frame reduced to palette indices.
type IndexedImage struct {
	Width   int
	Height  int
	Palette []color.RGBA
	Indices []uint8 // len == Width*Height, row-major
}

// ColorAt returns the palette color of the pixel at (x, y).
func (m *IndexedImage) ColorAt(x, y int) color.RGBA {
	return m.Palette[m.Indices[y*m.Width+x]]
}

// TransparentIndex returns the palette index of the transparent entry, or -1.
func (m *IndexedImage) TransparentIndex() int {
	for i, c := range m.Palette {
		if c.A == 0 {
			return i
		}
	}
	return -1
}

// IsTransparent reports whether an alpha value is written as transparent.
func IsTransparent(alpha uint8) bool {
	return alpha < AlphaThreshold
}

// TransparentMask marks the pixels of frame that are written as transparent.
// It returns nil when there are none or the buffer does not match the frame.
func TransparentMask(frame ports.PixelFrame) []bool {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pixels) != frame.ExpectedLen() {
		return nil
	}
	var mask []bool
	for i := 3; i < len(frame.Pixels); i += 4 {
		if !IsTransparent(frame.Pixels[i]) {
			continue
		}
		if mask == nil {
			mask = make([]bool, len(frame.Pixels)/4)
		}
		mask[i/4] = true
	}
	return mask
}

// Options controls quantization effort.
type Options struct {
	MaxColors  int  // Palette size limit, 1..MaxPaletteSize
	Dither     bool // Floyd-Steinberg error diffusion
	SampleStep int  // Histogram downsampling factor (1 = every pixel)
}

// OptionsForQuality maps a quality in [0,1] to quantization options.
// Higher quality means more colors, dithering and a denser histogram.
func OptionsForQuality(quality float64) Options {
	q := clamp01(quality)
	opts := Options{
		MaxColors:  minColors + int(math.Round(q*float64(MaxPaletteSize-minColors))),
		Dither:     q >= 0.5,
		SampleStep: 1,
	}
	switch {
	case q < 0.4:
		opts.SampleStep = 4
	case q < 0.8:
		opts.SampleStep = 2
	}
	return opts
}

// Quantize reduces frame to an indexed image using options derived from quality.
func Quantize(frame ports.PixelFrame, quality float64) (*IndexedImage, error) {
	return QuantizeWithOptions(frame, OptionsForQuality(quality))
}

// QuantizeWithOptions reduces frame to an indexed image.
// The result depends only on the frame pixels and opts.
func QuantizeWithOptions(frame ports.PixelFrame, opts Options) (*IndexedImage, error) {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pixels) != frame.ExpectedLen() {
		return nil, fmt.Errorf("%w: %dx%d frame with %d bytes", ErrInvalidFrameDimensions,
			frame.Width, frame.Height, len(frame.Pixels))
	}
	opts = normalizeOptions(opts)
	src, mask := prepare(frame)
	if mask != nil && opts.MaxColors > MaxPaletteSize-1 {
		opts.MaxColors = MaxPaletteSize - 1
	}

	palette, indices, ok := exactPalette(src, opts.MaxColors)
	if !ok {
		palette = buildPalette(src, opts)
		if opts.Dither {
			indices = ditherIndices(src, palette)
		} else {
			indices = nearestIndices(src, palette)
		}
	}

	if mask != nil {
		t := len(palette)
		palette = append(palette, color.RGBA{})
		for i, transparent := range mask {
			if transparent {
				indices[i] = uint8(t)
			}
		}
	}

	return &IndexedImage{
		Width:   frame.Width,
		Height:  frame.Height,
		Palette: palette,
		Indices: indices,
	}, nil
}

func normalizeOptions(opts Options) Options {
	if opts.MaxColors < 1 || opts.MaxColors > MaxPaletteSize {
		opts.MaxColors = MaxPaletteSize
	}
	if opts.SampleStep < 1 {
		opts.SampleStep = 1
	}
	return opts
}

// prepare wraps the frame pixels as an opaque RGBA image and marks the
// pixels that are written as transparent. Those take the color of the first
// opaque pixel so they claim no palette entry of their own. The frame buffer
// is shared when it is already opaque.
func prepare(frame ports.PixelFrame) (*image.RGBA, []bool) {
	rect := image.Rect(0, 0, frame.Width, frame.Height)
	src := frame.Pixels

	var fill [3]byte
	for i := 3; i < len(src); i += 4 {
		if !IsTransparent(src[i]) {
			copy(fill[:], src[i-3:i])
			break
		}
	}

	pix := src
	var mask []bool
	for i := 3; i < len(src); i += 4 {
		a := src[i]
		if a == 0xff {
			continue
		}
		if &pix[0] == &src[0] {
			pix = make([]byte, len(src))
			copy(pix, src)
		}
		pix[i] = 0xff
		if IsTransparent(a) {
			if mask == nil {
				mask = make([]bool, len(src)/4)
			}
			mask[i/4] = true
			copy(pix[i-3:i], fill[:])
		}
	}
	return &image.RGBA{Pix: pix, Stride: frame.Width * 4, Rect: rect}, mask
}

// exactPalette returns the frame's own colors in first-seen order when there
// are no more than maxColors of them.
func exactPalette(src *image.RGBA, maxColors int) ([]color.RGBA, []uint8, bool) {
	lookup := make(map[uint32]uint8, maxColors)
	palette := make([]color.RGBA, 0, maxColors)
	indices := make([]uint8, len(src.Pix)/4)
	for i := 0; i < len(indices); i++ {
		p := src.Pix[i*4 : i*4+3]
		key := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		idx, ok := lookup[key]
		if !ok {
			if len(palette) == maxColors {
				return nil, nil, false
			}
			idx = uint8(len(palette))
			lookup[key] = idx
			palette = append(palette, color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xff})
		}
		indices[i] = idx
	}
	return palette, indices, true
}

func buildPalette(src *image.RGBA, opts Options) []color.RGBA {
	var hist image.Image = src
	b := src.Bounds()
	if step := opts.SampleStep; step > 1 && b.Dx() >= step*2 && b.Dy() >= step*2 {
		small := image.NewRGBA(image.Rect(0, 0, b.Dx()/step, b.Dy()/step))
		xdraw.NearestNeighbor.Scale(small, small.Bounds(), src, b, xdraw.Src, nil)
		hist = small
	}

	q := mediancut.MedianCutQuantizer{}
	raw := q.Quantize(make(color.Palette, 0, opts.MaxColors), hist)

	seen := make(map[color.RGBA]bool, len(raw))
	palette := make([]color.RGBA, 0, len(raw))
	for _, c := range raw {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		rgba.A = 0xff
		if seen[rgba] {
			continue
		}
		seen[rgba] = true
		palette = append(palette, rgba)
		if len(palette) == opts.MaxColors {
			break
		}
	}
	if len(palette) == 0 {
		p := src.Pix
		palette = append(palette, color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xff})
	}
	// The quantizer's bucket order is not part of its contract; a sorted
	// palette keeps index assignment stable across runs.
	sort.Slice(palette, func(i, j int) bool {
		return rgbKey(palette[i]) < rgbKey(palette[j])
	})
	return palette
}

func rgbKey(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func ditherIndices(src *image.RGBA, palette []color.RGBA) []uint8 {
	pal := make(color.Palette, len(palette))
	for i, c := range palette {
		pal[i] = c
	}
	dst := image.NewPaletted(src.Bounds(), pal)
	draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, image.Point{})
	return dst.Pix
}

func nearestIndices(src *image.RGBA, palette []color.RGBA) []uint8 {
	cache := make(map[uint32]uint8)
	indices := make([]uint8, len(src.Pix)/4)
	for i := range indices {
		p := src.Pix[i*4 : i*4+3]
		key := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		idx, ok := cache[key]
		if !ok {
			idx = nearest(palette, p[0], p[1], p[2])
			cache[key] = idx
		}
		indices[i] = idx
	}
	return indices
}

// nearest returns the first palette entry with the smallest squared RGB distance.
func nearest(palette []color.RGBA, r, g, b uint8) uint8 {
	best, bestDist := 0, math.MaxInt
	for i, c := range palette {
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return uint8(best)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
