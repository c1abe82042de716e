// Package framebuf converts images into encoder frames.
package framebuf

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/user/gifpress/pkg/ports"
)

// FromImage copies img into a tightly packed RGBA8 frame.
func FromImage(img image.Image, index int, timestamp float64) ports.PixelFrame {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return ports.PixelFrame{
		Index:     index,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Pixels:    dst.Pix,
		Timestamp: timestamp,
	}
}

// FitSize returns the largest size with the aspect ratio of src that fits
// inside width x height. Both sides are at least 1.
func FitSize(src image.Rectangle, width, height int) (int, int) {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 {
		return width, height
	}
	w, h := width, sh*width/sw
	if h > height {
		w, h = sw*height/sh, height
	}
	return max(w, 1), max(h, 1)
}

// Letterbox scales img to fit a width x height canvas filled with bg,
// centered, keeping its aspect ratio.
func Letterbox(r ports.Renderer, img image.Image, width, height int, bg color.Color) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	w, h := FitSize(b, width, height)
	scaled := r.ResizeImage(img, w, h)

	canvas := r.CreateCanvas(width, height, bg)
	canvas.DrawImage(scaled, (width-w)/2, (height-h)/2)
	return canvas.ToImage()
}
