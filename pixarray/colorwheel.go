package pixarray

// Colorwheel maps pos in [0, 255] onto a hue cycle running red, green,
// blue and back to red. Positions outside that range are black.
func Colorwheel(pos int) RGB {
	switch {
	case pos < 0 || pos > 255:
		return RGB{0, 0, 0}
	case pos < 85:
		return RGB{uint8(255 - pos*3), uint8(pos * 3), 0}
	case pos < 170:
		pos -= 85
		return RGB{0, uint8(255 - pos*3), uint8(pos * 3)}
	}
	pos -= 170
	return RGB{uint8(pos * 3), 0, uint8(255 - pos*3)}
}
