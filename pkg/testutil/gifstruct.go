// Package testutil provides helpers for inspecting encoder output in tests.
package testutil

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Document is the block structure of a GIF file.
type Document struct {
	Width     int
	Height    int
	LoopCount int // -1 when no NETSCAPE2.0 extension is present
	Frames    []Frame
	Trailer   bool
}

// Frame describes one image block and its graphic control extension.
type Frame struct {
	Delay        int
	Disposal     int
	Transparent  int // -1 when unset
	Bounds       image.Rectangle
	PaletteSize  int
	MinCodeSize  int
	MaxSubBlock  int
	DataSubBlock int
}

// ErrTruncated is returned when the data ends inside a block.
var ErrTruncated = errors.New("testutil: truncated gif")

// ParseStructure walks the GIF block structure without decoding pixels.
func ParseStructure(data []byte) (*Document, error) {
	p := &parser{data: data}
	if len(data) < 13 || string(data[:6]) != "GIF89a" {
		return nil, errors.New("testutil: missing GIF89a header")
	}
	doc := &Document{
		Width:     int(data[6]) | int(data[7])<<8,
		Height:    int(data[8]) | int(data[9])<<8,
		LoopCount: -1,
	}
	p.pos = 13
	if data[10]&0x80 != 0 {
		p.pos += 3 * (1 << ((data[10] & 0x07) + 1))
	}

	pending := Frame{Transparent: -1}
	for {
		b, err := p.byte()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0x21:
			label, err := p.byte()
			if err != nil {
				return nil, err
			}
			switch label {
			case 0xf9:
				blk, err := p.bytes(6)
				if err != nil {
					return nil, err
				}
				pending.Disposal = int(blk[1]>>2) & 0x07
				pending.Delay = int(blk[2]) | int(blk[3])<<8
				if blk[1]&0x01 != 0 {
					pending.Transparent = int(blk[4])
				}
			case 0xff:
				size, err := p.byte()
				if err != nil {
					return nil, err
				}
				app, err := p.bytes(int(size))
				if err != nil {
					return nil, err
				}
				subs, err := p.subBlocks()
				if err != nil {
					return nil, err
				}
				if string(app) == "NETSCAPE2.0" && len(subs) > 0 && len(subs[0]) == 3 {
					doc.LoopCount = int(subs[0][1]) | int(subs[0][2])<<8
				}
			default:
				if _, err := p.subBlocks(); err != nil {
					return nil, err
				}
			}
		case 0x2c:
			desc, err := p.bytes(9)
			if err != nil {
				return nil, err
			}
			left := int(desc[0]) | int(desc[1])<<8
			top := int(desc[2]) | int(desc[3])<<8
			w := int(desc[4]) | int(desc[5])<<8
			h := int(desc[6]) | int(desc[7])<<8
			pending.Bounds = image.Rect(left, top, left+w, top+h)
			if desc[8]&0x80 != 0 {
				pending.PaletteSize = 1 << ((desc[8] & 0x07) + 1)
				if _, err := p.bytes(3 * pending.PaletteSize); err != nil {
					return nil, err
				}
			}
			code, err := p.byte()
			if err != nil {
				return nil, err
			}
			pending.MinCodeSize = int(code)
			subs, err := p.subBlocks()
			if err != nil {
				return nil, err
			}
			pending.DataSubBlock = len(subs)
			for _, s := range subs {
				if len(s) > pending.MaxSubBlock {
					pending.MaxSubBlock = len(s)
				}
			}
			doc.Frames = append(doc.Frames, pending)
			pending = Frame{Transparent: -1}
		case 0x3b:
			doc.Trailer = true
			return doc, nil
		default:
			return nil, fmt.Errorf("testutil: unexpected block 0x%02x at offset %d", b, p.pos-1)
		}
	}
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) byte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, ErrTruncated
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *parser) bytes(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, ErrTruncated
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func (p *parser) subBlocks() ([][]byte, error) {
	var subs [][]byte
	for {
		n, err := p.byte()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return subs, nil
		}
		b, err := p.bytes(int(n))
		if err != nil {
			return nil, err
		}
		subs = append(subs, b)
	}
}

// SolidPixels returns an RGBA8 buffer of w*h pixels of color c.
func SolidPixels(w, h int, c color.RGBA) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return pix
}

// NoisePixels returns a deterministic pseudo-random RGBA8 buffer.
func NoisePixels(w, h int, seed uint32) []byte {
	pix := make([]byte, w*h*4)
	state := seed | 1
	for i := 0; i < len(pix); i += 4 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		pix[i] = uint8(state)
		pix[i+1] = uint8(state >> 8)
		pix[i+2] = uint8(state >> 16)
		pix[i+3] = 0xff
	}
	return pix
}
