//go:build linux

package pixarray

import (
	"bytes"
	"errors"
	"testing"
)

type fakeSPI struct {
	bytes.Buffer
	closed bool
	err    error
}

func (f *fakeSPI) Fd() uintptr {
	return ^uintptr(0)
}

func (f *fakeSPI) Write(b []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.Buffer.Write(b)
}

func (f *fakeSPI) Close() error {
	f.closed = true
	return nil
}

func TestSPIDevTransmit(t *testing.T) {
	f := &fakeSPI{}
	sd, err := NewSPIDev(f, 0)
	if err != nil {
		t.Fatalf("Failed NewSPIDev: %v", err)
	}
	pa, err := New(2, sd, &Config{Order: OrderGRB, Trailer: []byte{0}})
	if err != nil {
		t.Fatalf("Failed New: %v", err)
	}
	pa.Set(1, RGB{1, 2, 3})
	if got, want := f.Bytes(), []byte{0, 0, 0, 2, 1, 3, 0}; !bytes.Equal(got, want) {
		t.Errorf("Wrong bytes written, got: %v, want: %v", got, want)
	}
	if err := sd.Close(); err != nil || !f.closed {
		t.Errorf("Close didn't close: %v", err)
	}

	f.err = errors.New("bus gone")
	if err := sd.Transmit([]byte{1}); err == nil {
		t.Errorf("Write error not returned")
	}
}

func TestSPIDevSpeedNeedsRealDevice(t *testing.T) {
	if _, err := NewSPIDev(&fakeSPI{}, 1000000); err == nil {
		t.Errorf("Setting speed on an invalid fd succeeded")
	}
	sd, _ := NewSPIDev(&fakeSPI{}, 0)
	if _, err := sd.Speed(); err == nil {
		t.Errorf("Reading speed from an invalid fd succeeded")
	}
}
