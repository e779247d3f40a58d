package pixarray

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// A dotstar LED frame starts with three 1 bits followed by 5 bits of brightness.
	dotstarStart           = 0b11100000
	dotstarBrightness      = 0b00011111
	dotstarStartFullBright = 0b11111111
)

// Color is a logical pixel value accepted by Set, SetRange and Fill.
// It is one of Packed, RGB, RGBW or Tuple.
type Color interface {
	isColor()
}

// Packed is a 0xRRGGBB color.
type Packed uint32

// RGB is a red, green, blue triple.
type RGB [3]uint8

// RGBW is a red, green, blue, white quad. On a dotstar strip the fourth
// byte is the pixel brightness in 1/255 steps instead.
type RGBW [4]uint8

// Tuple is a color of unchecked length. It must hold 3 or 4 components.
// R, G and B (and W on white strips) are bytes. On a dotstar strip the
// fourth component is a brightness fraction between 0 and 1.
type Tuple []float64

func (Packed) isColor() {}
func (RGB) isColor()    {}
func (RGBW) isColor()   {}
func (Tuple) isColor()  {}

// Colorful converts a go-colorful color to RGB, clamping it to the sRGB gamut.
func Colorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{r, g, b}
}

// channels are the bytes for one pixel, ready to be placed at an order's
// offsets. On dotstar strips w is the finished frame byte.
type channels struct {
	r, g, b, w uint8
}

func (ch channels) scaled(brightness float64, scaleW bool) channels {
	out := channels{
		r: uint8(float64(ch.r) * brightness),
		g: uint8(float64(ch.g) * brightness),
		b: uint8(float64(ch.b) * brightness),
		w: ch.w,
	}
	if scaleW {
		out.w = uint8(float64(ch.w) * brightness)
	}
	return out
}

func toByte(f float64) (uint8, error) {
	if f < 0 || f >= 256 {
		return 0, fmt.Errorf("%w: %v", ErrColorValue, f)
	}
	return uint8(f), nil
}

// decode turns a logical color into channel bytes for the given order.
func decode(c Color, o *Order) (channels, error) {
	var (
		ch       channels
		lum      float64
		implicit bool // the white channel was not given explicitly
	)
	if o.dotstar {
		lum = 1.0
	}

	switch v := c.(type) {
	case Packed:
		ch.r, ch.g, ch.b = uint8(v>>16), uint8(v>>8), uint8(v)
		implicit = true
	case RGB:
		ch.r, ch.g, ch.b = v[0], v[1], v[2]
		implicit = true
	case RGBW:
		ch.r, ch.g, ch.b = v[0], v[1], v[2]
		if o.dotstar {
			lum = float64(v[3]) / 255
		} else {
			ch.w = v[3]
		}
	case Tuple:
		if len(v) < 3 || len(v) > 4 {
			return ch, fmt.Errorf("%w: expected 3 or 4 components for %s, got %d", ErrColorLength, o, len(v))
		}
		var err error
		if ch.r, err = toByte(v[0]); err != nil {
			return ch, err
		}
		if ch.g, err = toByte(v[1]); err != nil {
			return ch, err
		}
		if ch.b, err = toByte(v[2]); err != nil {
			return ch, err
		}
		if len(v) == 3 {
			implicit = true
			break
		}
		if o.dotstar {
			if v[3] < 0 || v[3] > 1 {
				return ch, fmt.Errorf("%w: dotstar brightness %v", ErrColorValue, v[3])
			}
			lum = v[3]
		} else if ch.w, err = toByte(v[3]); err != nil {
			return ch, err
		}
	default:
		return ch, fmt.Errorf("%w: unsupported color %T", ErrColorValue, c)
	}

	switch {
	case o.dotstar:
		// The epsilon keeps a brightness read back as n/31 at n.
		ch.w = uint8(int(lum*31+1e-9)&dotstarBrightness | dotstarStart)
	case o.hasWhite && implicit && ch.r == ch.g && ch.g == ch.b:
		// Equal components drive the white LED alone unless W was given.
		ch.w = ch.r
		ch.r, ch.g, ch.b = 0, 0, 0
	case !o.hasWhite:
		ch.w = 0
	}
	return ch, nil
}
