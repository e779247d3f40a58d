package pixarray

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// PeriphSPI transmits the buffer over an SPI port opened through periph.io.
// host.Init must have been called before OpenPeriphSPI.
type PeriphSPI struct {
	port  spi.PortCloser
	conn  spi.Conn
	maxTx int
}

// OpenPeriphSPI opens the named SPI port ("" for the first one available)
// in mode 0 with 8 bit words.
func OpenPeriphSPI(name string, freq physic.Frequency) (*PeriphSPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("couldn't open SPI port %q: %v", name, err)
	}
	c, err := p.Connect(freq, spi.Mode0, 8)
	if err != nil {
		p.Close() // Ignore error
		return nil, fmt.Errorf("couldn't connect to SPI port %s: %v", p, err)
	}
	ps := NewPeriphSPI(c)
	ps.port = p
	log.Printf("Connected to %s at %s, max transfer %d bytes", c, freq, ps.maxTx)
	return ps, nil
}

// NewPeriphSPI wraps an existing connection. Transfers are split to fit the
// connection's limits, if it has any.
func NewPeriphSPI(c spi.Conn) *PeriphSPI {
	ps := &PeriphSPI{conn: c}
	if l, ok := c.(conn.Limits); ok {
		ps.maxTx = l.MaxTxSize()
	}
	return ps
}

func (ps *PeriphSPI) Transmit(buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if ps.maxTx > 0 && n > ps.maxTx {
			n = ps.maxTx
		}
		if err := ps.conn.Tx(buf[:n], nil); err != nil {
			return fmt.Errorf("couldn't send %d bytes over %s: %v", n, ps.conn, err)
		}
		buf = buf[n:]
	}
	return nil
}

func (ps *PeriphSPI) Close() error {
	if ps.port == nil {
		return nil
	}
	return ps.port.Close()
}
