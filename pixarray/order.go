package pixarray

import (
	"fmt"
	"strings"
)

// channelLetters are the channels OrderFromIndexes indexes into.
const channelLetters = "RGBW"

// Common channel orders. P is the per-pixel brightness byte of a dotstar
// (APA102) frame.
const (
	OrderGRB  = "GRB"
	OrderBRG  = "BRG"
	OrderBGR  = "BGR"
	OrderGBR  = "GBR"
	OrderRGB  = "RGB"
	OrderRBG  = "RBG"
	OrderRGBW = "RGBW"
	OrderGRBW = "GRBW"
	OrderPBGR = "PBGR"
)

// Order describes where each channel of a pixel lives in the encoded buffer.
type Order struct {
	str      string
	bpp      int
	r        int
	g        int
	b        int
	w        int // White or dotstar brightness; -1 if the order has three channels
	hasWhite bool
	dotstar  bool
}

// ParseOrder parses a channel order such as "GRB", "RGBW" or "PBGR".
// R, G and B must each appear exactly once. W (white) and P (dotstar
// brightness) are optional and mutually exclusive.
func ParseOrder(s string) (*Order, error) {
	if strings.Trim(s, "RGBWP") != "" {
		return nil, fmt.Errorf("%w: %q contains characters other than RGBWP", ErrInvalidOrder, s)
	}
	o := Order{str: s, bpp: len(s), r: -1, g: -1, b: -1, w: -1}
	for i, c := range s {
		var slot *int
		switch c {
		case 'R':
			slot = &o.r
		case 'G':
			slot = &o.g
		case 'B':
			slot = &o.b
		case 'W':
			slot = &o.w
			o.hasWhite = true
		case 'P':
			slot = &o.w
			o.dotstar = true
		}
		if *slot != -1 {
			return nil, fmt.Errorf("%w: %q repeats a channel", ErrInvalidOrder, s)
		}
		*slot = i
	}
	if o.r < 0 || o.g < 0 || o.b < 0 {
		return nil, fmt.Errorf("%w: %q must contain R, G and B", ErrInvalidOrder, s)
	}
	return &o, nil
}

// OrderFromIndexes builds an order string from channel indexes into "RGBW",
// e.g. (1, 0, 2) is "GRB".
func OrderFromIndexes(idx ...int) (string, error) {
	var sb strings.Builder
	for _, i := range idx {
		if i < 0 || i >= len(channelLetters) {
			return "", fmt.Errorf("%w: index %d outside RGBW", ErrInvalidOrder, i)
		}
		sb.WriteByte(channelLetters[i])
	}
	return sb.String(), nil
}

func (o *Order) String() string {
	return o.str
}

// Bpp is the number of channels per pixel.
func (o *Order) Bpp() int {
	return o.bpp
}

// HasWhite reports whether the fourth channel is a white LED.
func (o *Order) HasWhite() bool {
	return o.hasWhite
}

// Dotstar reports whether the fourth channel is a dotstar brightness frame.
func (o *Order) Dotstar() bool {
	return o.dotstar
}

// Offsets returns the byte offsets of R, G, B and the fourth channel within
// a pixel. The fourth is -1 for three-channel orders.
func (o *Order) Offsets() (r, g, b, w int) {
	return o.r, o.g, o.b, o.w
}
