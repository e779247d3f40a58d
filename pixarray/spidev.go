//go:build linux

package pixarray

import (
	"fmt"
	"log"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	spiIOCMagic       = 'k'
	spiIOCBitsPerWord = 3
	spiIOCMaxSpeedHz  = 4
)

// This is satisfied by os.File, but this minimal interface makes testing easier
type dev interface {
	Fd() uintptr
	Write(b []byte) (n int, err error)
	Close() error
}

// SPIDev transmits the buffer by writing it to a Linux spidev device, as
// used by LPD8806 and APA102 strips wired to a hardware SPI bus.
type SPIDev struct {
	dev dev
}

// OpenSPIDev opens a spidev device such as /dev/spidev0.0. A speedHz of 0
// leaves the bus speed alone.
func OpenSPIDev(path string, speedHz uint32) (*SPIDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't open SPI device %s: %v", path, err)
	}
	sd, err := NewSPIDev(f, speedHz)
	if err != nil {
		f.Close() // Ignore error
		return nil, err
	}
	log.Printf("Opened %s, speed %dHz", path, speedHz)
	return sd, nil
}

// NewSPIDev wraps an already open device.
func NewSPIDev(d dev, speedHz uint32) (*SPIDev, error) {
	sd := &SPIDev{dev: d}
	if speedHz == 0 {
		return sd, nil
	}
	if err := sd.setBitsPerWord(8); err != nil {
		return nil, fmt.Errorf("couldn't set SPI word size: %v", err)
	}
	if err := sd.setSpeed(speedHz); err != nil {
		return nil, fmt.Errorf("couldn't set SPI speed: %v", err)
	}
	got, err := sd.Speed()
	if err != nil {
		return nil, fmt.Errorf("couldn't read back SPI speed: %v", err)
	}
	if got != speedHz {
		log.Printf("Asked for SPI speed %dHz, driver chose %dHz", speedHz, got)
	}
	return sd, nil
}

func (sd *SPIDev) setBitsPerWord(b uint8) error {
	return ioctlPtr(sd.dev.Fd(), iow(spiIOCMagic, spiIOCBitsPerWord, b), unsafe.Pointer(&b))
}

func (sd *SPIDev) setSpeed(s uint32) error {
	return ioctlPtr(sd.dev.Fd(), iow(spiIOCMagic, spiIOCMaxSpeedHz, s), unsafe.Pointer(&s))
}

// Speed reads the bus speed from the driver.
func (sd *SPIDev) Speed() (uint32, error) {
	var s uint32
	err := ioctlPtr(sd.dev.Fd(), ior(spiIOCMagic, spiIOCMaxSpeedHz, s), unsafe.Pointer(&s))
	return s, err
}

func (sd *SPIDev) Transmit(buf []byte) error {
	n, err := sd.dev.Write(buf)
	if err != nil {
		return fmt.Errorf("couldn't write to SPI: %v", err)
	}
	if n != len(buf) {
		return fmt.Errorf("short SPI write, %d of %d bytes", n, len(buf))
	}
	return nil
}

func (sd *SPIDev) Close() error {
	return sd.dev.Close()
}

func ioctlPtr(fd uintptr, req uint32, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
