package pixarray

// Transmitter sends an encoded buffer to the LEDs. The buffer belongs to the
// PixArray and is only valid for the duration of the call.
type Transmitter interface {
	Transmit(buf []byte) error
}

// TransmitFunc adapts a function to a Transmitter.
type TransmitFunc func(buf []byte) error

func (f TransmitFunc) Transmit(buf []byte) error {
	return f(buf)
}
