// Package delta reduces a frame to the region that changed since the previous
// output frame.
package delta

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/user/gifpress/pkg/gifwriter"
	"github.com/user/gifpress/pkg/quantize"
)

// ErrSizeMismatch is returned when the two frames have different canvases.
var ErrSizeMismatch = errors.New("delta: frame sizes differ")

// maxPalette is the largest local color table a GIF frame can carry.
const maxPalette = 256

// Patch is the part of a frame that must be written to reproduce it on top
// of the previous output frame.
type Patch struct {
	Bounds      image.Rectangle // Position on the canvas
	Indices     []uint8         // len == Bounds.Dx()*Bounds.Dy()
	Palette     []color.RGBA
	Transparent int // Palette index that leaves the canvas unchanged, or -1
	Disposal    gifwriter.Disposal
}

// Encode computes the patch that turns previous into current.
//
// Frames carry their own palettes, so pixels are compared by resolved color.
// With a nil previous frame the whole canvas is returned. A transparent
// pixel of current is only reproduced where previous is transparent too;
// use EncodeCleared when the area under it must be cleared first.
func Encode(current, previous *quantize.IndexedImage) (Patch, error) {
	return EncodeCleared(current, previous, image.Rectangle{})
}

// EncodeCleared is Encode for a frame that is disposed to the background
// after it is shown. The patch covers at least area, so disposing it
// leaves that area transparent for the next frame. An empty area gives the
// same patch as Encode.
func EncodeCleared(current, previous *quantize.IndexedImage, area image.Rectangle) (Patch, error) {
	if current == nil {
		return Patch{}, errors.New("delta: current frame is nil")
	}
	if previous != nil && (current.Width != previous.Width || current.Height != previous.Height) {
		return Patch{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch,
			current.Width, current.Height, previous.Width, previous.Height)
	}

	area = area.Intersect(image.Rect(0, 0, current.Width, current.Height))
	disposal := gifwriter.DisposalNone
	if !area.Empty() {
		disposal = gifwriter.DisposalBackground
	}

	if previous == nil {
		p := full(current)
		p.Disposal = disposal
		return p, nil
	}

	changed, bounds := diff(current, previous)
	bounds = bounds.Union(area)
	if bounds.Empty() {
		return noop(), nil
	}

	w := current.Width
	out := make([]uint8, 0, bounds.Dx()*bounds.Dy())

	// The frame's own transparent entry also means "leave the canvas as is".
	palette := current.Palette
	transparent := current.TransparentIndex()
	if transparent < 0 {
		// Without a free palette slot the changed rectangle is written opaque.
		if len(current.Palette) >= maxPalette {
			for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
				out = append(out, current.Indices[y*w+bounds.Min.X:y*w+bounds.Max.X]...)
			}
			return Patch{
				Bounds:      bounds,
				Indices:     out,
				Palette:     current.Palette,
				Transparent: gifwriter.NoTransparency,
				Disposal:    disposal,
			}, nil
		}

		palette = make([]color.RGBA, len(current.Palette), len(current.Palette)+1)
		copy(palette, current.Palette)
		transparent = len(palette)
		palette = append(palette, color.RGBA{})
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := y*w + x
			if changed[i] {
				out = append(out, current.Indices[i])
			} else {
				out = append(out, uint8(transparent))
			}
		}
	}

	return Patch{
		Bounds:      bounds,
		Indices:     out,
		Palette:     palette,
		Transparent: transparent,
		Disposal:    disposal,
	}, nil
}

// Uncovered returns the bounding rectangle of the pixels that are opaque in
// current and transparent in next. A frame must be disposed to the
// background over this area before next can show through. A mask whose
// length does not match the canvas gives an empty rectangle.
func Uncovered(current *quantize.IndexedImage, next []bool) image.Rectangle {
	if current == nil || len(next) != current.Width*current.Height {
		return image.Rectangle{}
	}
	transparent := current.TransparentIndex()

	w := current.Width
	minX, minY, maxX, maxY := current.Width, current.Height, -1, -1
	for i, gone := range next {
		if !gone || int(current.Indices[i]) == transparent {
			continue
		}
		x, y := i%w, i/w
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Dispose returns the canvas left after img is shown and then disposed to
// the background over r: pixels inside r become transparent. img is not
// modified.
func Dispose(img *quantize.IndexedImage, r image.Rectangle) (*quantize.IndexedImage, error) {
	r = r.Intersect(image.Rect(0, 0, img.Width, img.Height))
	if r.Empty() {
		return img, nil
	}

	palette := img.Palette
	transparent := img.TransparentIndex()
	if transparent < 0 {
		if len(palette) >= maxPalette {
			return nil, fmt.Errorf("delta: no palette slot to dispose a %d-color frame", len(palette))
		}
		palette = make([]color.RGBA, len(img.Palette), len(img.Palette)+1)
		copy(palette, img.Palette)
		transparent = len(palette)
		palette = append(palette, color.RGBA{})
	}

	indices := make([]uint8, len(img.Indices))
	copy(indices, img.Indices)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			indices[y*img.Width+x] = uint8(transparent)
		}
	}

	return &quantize.IndexedImage{
		Width:   img.Width,
		Height:  img.Height,
		Palette: palette,
		Indices: indices,
	}, nil
}

// diff marks changed pixels and returns their bounding rectangle.
func diff(current, previous *quantize.IndexedImage) ([]bool, image.Rectangle) {
	w, h := current.Width, current.Height
	changed := make([]bool, w*h)
	minX, minY, maxX, maxY := w, h, -1, -1

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			i := row + x
			if current.Palette[current.Indices[i]] == previous.Palette[previous.Indices[i]] {
				continue
			}
			changed[i] = true
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < 0 {
		return changed, image.Rectangle{}
	}
	return changed, image.Rect(minX, minY, maxX+1, maxY+1)
}

func full(current *quantize.IndexedImage) Patch {
	return Patch{
		Bounds:      image.Rect(0, 0, current.Width, current.Height),
		Indices:     current.Indices,
		Palette:     current.Palette,
		Transparent: current.TransparentIndex(),
		Disposal:    gifwriter.DisposalNone,
	}
}

// noop is a single transparent pixel at the origin.
func noop() Patch {
	return Patch{
		Bounds:      image.Rect(0, 0, 1, 1),
		Indices:     []uint8{0},
		Palette:     []color.RGBA{{}},
		Transparent: 0,
		Disposal:    gifwriter.DisposalNone,
	}
}
