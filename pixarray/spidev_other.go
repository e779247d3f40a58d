//go:build !linux

package pixarray

import "errors"

// SPIDev is only available on Linux.
type SPIDev struct{}

func OpenSPIDev(path string, speedHz uint32) (*SPIDev, error) {
	return nil, errors.New("spidev is only supported on Linux")
}

func (sd *SPIDev) Speed() (uint32, error) {
	return 0, errors.New("spidev is only supported on Linux")
}

func (sd *SPIDev) Transmit(buf []byte) error {
	return errors.New("spidev is only supported on Linux")
}

func (sd *SPIDev) Close() error {
	return nil
}
