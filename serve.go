package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/Jon-Bright/pixbuf/effects"
	"github.com/Jon-Bright/pixbuf/pixarray"
)

var spiDev = flag.String("dev", "/dev/spidev0.0", "The spidev device on which the LEDs are connected")
var spiSpeed = flag.Uint("spispeed", 1000000, "The speed to send data via SPI, in Hz")
var spiPort = flag.String("spiport", "", "The periph.io SPI port name, empty for the first available")
var mmapFile = flag.String("mmapfile", "/tmp/pixbuf.frame", "The file frames are mapped into for the mmap chip")
var ledChip = flag.String("ledchip", "spidev", "How to send the buffer: one of spidev, periph, mmap")
var port = flag.Int("port", 24601, "The port that the server should listen to")
var pixels = flag.Int("pixels", 5*32, "The number of pixels to be controlled")
var pixelOrder = flag.String("order", "", "The channel order of the pixels, e.g. GRB, GRBW or PBGR. Empty means GRB or GRBW, depending on -bpp")
var bpp = flag.Int("bpp", 3, "Channels per pixel, 3 or 4. Ignored if -order is given")
var brightness = flag.Float64("brightness", 1.0, "Initial brightness, 0 to 1")
var header = flag.String("header", "", "Hex bytes sent before the pixel data, e.g. 00000000 for APA102 strips")
var trailer = flag.String("trailer", "", "Hex bytes sent after the pixel data, e.g. ffffffff for APA102 strips")

type Server struct {
	pw *power
	l  net.Listener
	c  chan effects.Effect

	mu      sync.Mutex // Guards the fields below
	pa      *pixarray.PixArray
	laste   effects.Effect
	off     bool
	running bool
}

func NewServer(port int, pa *pixarray.PixArray, pw *power) (*Server, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	log.Printf("Listening on port %d", port)
	return newServer(l, pa, pw), nil
}

func newServer(l net.Listener, pa *pixarray.PixArray, pw *power) *Server {
	return &Server{pa: pa, pw: pw, l: l, c: make(chan effects.Effect), off: true}
}

func parseDuration(parms string) (string, time.Duration, error) {
	t := strings.SplitN(parms, " ", 2)
	d, err := time.ParseDuration(t[0] + "s")
	if err != nil {
		return "", 0, err
	}
	if len(t) == 1 {
		return "", d, nil
	}
	return t[1], d, nil
}

// parseColor reads RRGGBB, or RRGGBBWW on four channel strips. On dotstar
// strips WW is the brightness out of 255.
func (s *Server) parseColor(parms string) (string, pixarray.Tuple, error) {
	t := strings.SplitN(parms, " ", 2)
	h := t[0]
	if len(h) != 6 && (len(h) != 8 || s.pa.Bpp() != 4) {
		return "", nil, fmt.Errorf("color '%s' should have %d hex digits", h, s.pa.Bpp()*2)
	}
	c, err := colorful.Hex("#" + h[:6])
	if err != nil {
		return "", nil, err
	}
	r, g, b := c.RGB255()
	p := pixarray.Tuple{float64(r), float64(g), float64(b)}
	if len(h) == 8 {
		w, err := strconv.ParseUint(h[6:], 16, 8)
		if err != nil {
			return "", nil, fmt.Errorf("invalid fourth channel in '%s': %v", h, err)
		}
		if s.pa.Order().Dotstar() {
			p = append(p, float64(w)/255)
		} else {
			p = append(p, float64(w))
		}
	}
	if len(t) == 1 {
		return "", p, nil
	}
	return t[1], p, nil
}

func (s *Server) reply(w *bufio.Writer, r string) error {
	log.Printf("Returning %s", strings.TrimSpace(r))
	w.WriteString(r)
	return w.Flush()
}

func (s *Server) createEffect(cmd, parms string, w *bufio.Writer) (effects.Effect, error) {
	switch {
	case cmd == "FADE_ALL":
		parms, p, err := s.parseColor(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing color: %v", err)
		}
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		return effects.NewFade(d, p), nil
	case cmd == "ZIP_SET_ALL":
		parms, p, err := s.parseColor(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing color: %v", err)
		}
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		return effects.NewZip(d, p), nil
	case cmd == "CYCLE":
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		return effects.NewCycle(d), nil
	case cmd == "RAINBOW":
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		return effects.NewRainbow(d), nil
	case cmd == "NOISE":
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("noise period must be positive, got %v", d)
		}
		return effects.NewNoise(time.Now().UnixNano(), 1/d.Seconds(), 0.05), nil
	case cmd == "KNIGHTRIDER":
		_, d, err := parseDuration(parms)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration: %v", err)
		}
		return effects.NewKnightRider(d, s.pa.NumPixels()/4), nil
	case cmd == "GET":
		s.mu.Lock()
		px := s.pa.GetPixels()
		s.mu.Unlock()
		for _, p := range px {
			if p.R != 0 || p.G != 0 || p.B != 0 || p.W > 0 {
				return nil, s.reply(w, "1\n")
			}
		}
		return nil, s.reply(w, "0\n")
	case cmd == "COLOUR" || cmd == "COLOR":
		s.mu.Lock()
		p, err := s.pa.Get(0)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, s.reply(w, p.String()+"\n")
	case cmd == "BRIGHTNESS":
		s.mu.Lock()
		defer s.mu.Unlock()
		if parms == "" {
			return nil, s.reply(w, strconv.FormatFloat(s.pa.Brightness(), 'f', 3, 64)+"\n")
		}
		b, err := strconv.ParseFloat(parms, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing brightness: %v", err)
		}
		if err = s.pa.SetBrightness(b); err != nil {
			return nil, err
		}
		if err = s.pa.Show(); err != nil {
			return nil, err
		}
		return nil, s.reply(w, "OK\n")
	case cmd == "MODE":
		s.mu.Lock()
		off, running, laste := s.off, s.running, s.laste
		s.mu.Unlock()
		n := "CONST"
		if off {
			n = "OFF"
		} else if running {
			if laste == nil {
				return nil, fmt.Errorf("effect running, but no last effect")
			}
			n = laste.Name()
		}
		log.Printf("Mode '%s'", n)
		if parms == "" {
			return nil, s.reply(w, n+"\n")
		}
		r := "0\n"
		if parms == n {
			r = "1\n"
		}
		return nil, s.reply(w, r)
	case cmd == "ON":
		s.mu.Lock()
		laste := s.laste
		s.mu.Unlock()
		if laste == nil {
			return nil, fmt.Errorf("no previous effect to turn on")
		}
		return laste, nil
	case cmd == "OFF":
		// Hack: we insert this directly into the channel because we don't want to overwrite whatever the last effect was
		fb := effects.NewFade(20*time.Second, pixarray.Tuple{0, 0, 0})
		s.mu.Lock()
		s.off = true
		s.mu.Unlock()
		s.c <- fb
		return nil, s.reply(w, "OK\n")
	}
	return nil, fmt.Errorf("unknown command: %s", cmd)
}

// step runs one step of e, starting it first if it's new, and shows the result.
func (s *Server) step(e effects.Effect, isNew bool) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isNew {
		if err := e.Start(s.pa, time.Now()); err != nil {
			return 0, fmt.Errorf("couldn't start %s: %v", e.Name(), err)
		}
	}
	d, err := e.NextStep(s.pa, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%s step failed: %v", e.Name(), err)
	}
	return d, s.pa.Show()
}

func (s *Server) setRunning(r bool) {
	s.mu.Lock()
	s.running = r
	s.mu.Unlock()
}

func (s *Server) isDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pa.GetPixels()[0]
	log.Printf("Seeing post-effect pix %v", p)
	return p.R <= 0 && p.G <= 0 && p.B <= 0 && p.W <= 0
}

func (s *Server) runEffects() {
	var laste, e effects.Effect
	var d time.Duration
	var steps int
	var start time.Time
	for {
		if d == 0 {
			e = <-s.c
		} else {
			select {
			case e = <-s.c:
			case <-time.After(d):
			}
		}
		if e == nil {
			log.Fatalf("Ready to process effect, but no effect!")
		}
		isNew := e != laste
		if isNew {
			if err := s.pw.on(); err != nil {
				log.Fatalf("Failed power-on: %v", err)
			}
			start = time.Now()
			s.setRunning(true)
			steps = 0
		}
		var err error
		d, err = s.step(e, isNew)
		steps++
		if err != nil {
			log.Printf("Abandoning effect: %v", err)
			d = 0
		}
		if d == 0 {
			d := time.Since(start)
			ps := time.Duration(d.Nanoseconds() / int64(steps))
			log.Printf("Finished effect, %d steps, %s total, %s/step", steps, d, ps)
			laste = nil
			e = nil
			s.setRunning(false)
			if s.isDark() {
				if err := s.pw.off(); err != nil {
					log.Fatalf("Failed power-off: %v", err)
				}
			}
		} else {
			laste = e
		}
	}
}

func (s *Server) handleConnection(c net.Conn) {
	log.Printf("Handling connection from %v", c.RemoteAddr())
	defer c.Close()
	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	for {
		l, err := r.ReadString('\n')
		if err == io.EOF {
			log.Printf("EOF for connection %v", c.RemoteAddr())
			return
		}
		if err != nil {
			log.Printf("Error reading string for connection %v: %v", c.RemoteAddr(), err)
			return
		}
		l = strings.TrimSpace(l)
		log.Printf("Got line '%s'", l)
		t := strings.SplitN(l, " ", 2)
		cmd := strings.ToUpper(t[0])
		parms := ""
		if len(t) > 1 {
			parms = t[1]
		}
		if cmd == "QUIT" {
			return
		}
		e, err := s.createEffect(cmd, parms, w)
		if err != nil {
			es := fmt.Sprintf("Error creating effect: %v", err)
			log.Print(es)
			w.WriteString("ERR: " + es + "\n")
			err = w.Flush()
			if err != nil {
				log.Printf("error writing error reply: %v", err)
			}
			return
		}
		if e != nil {
			// Some commands don't result in a new Effect, e.g. status
			// those commands write their own reply.
			w.WriteString("OK\n")
			err = w.Flush()
			if err != nil {
				log.Printf("error writing reply: %v", err)
			}
			s.c <- e
			s.mu.Lock()
			s.laste = e
			s.off = false
			s.mu.Unlock()
		}
	}
}

func (s *Server) handleConnections() {
	for {
		conn, err := s.l.Accept()
		if err != nil {
			log.Printf("Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// shutdown blanks the strip on SIGINT or SIGTERM.
func (s *Server) shutdown(closer io.Closer) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Got %v, shutting down", <-sig)
	s.mu.Lock()
	if err := s.pa.Close(); err != nil {
		log.Printf("Failed blanking LEDs: %v", err)
	}
	if err := closer.Close(); err != nil {
		log.Printf("Failed closing %s: %v", *ledChip, err)
	}
	if err := s.pw.off(); err != nil {
		log.Printf("Failed power-off: %v", err)
	}
	os.Exit(0)
}

type transmitCloser interface {
	pixarray.Transmitter
	io.Closer
}

func openTransmitter() (transmitCloser, error) {
	switch *ledChip {
	case "spidev":
		return pixarray.OpenSPIDev(*spiDev, uint32(*spiSpeed))
	case "periph":
		return pixarray.OpenPeriphSPI(*spiPort, physic.Frequency(*spiSpeed)*physic.Hertz)
	case "mmap":
		return pixarray.OpenMMapFile(*mmapFile)
	}
	return nil, fmt.Errorf("unrecognized LED chip: %v", *ledChip)
}

func main() {
	flag.Parse()
	if _, err := host.Init(); err != nil {
		log.Fatalf("Failed initializing periph host: %v", err)
	}
	pw, err := initPower(*powerCtrlPin, *powerStatusPin, *powerStatusWait)
	if err != nil {
		log.Fatalf("Failed initializing power: %v", err)
	}

	// Effects change many pixels per step; runEffects shows once per step.
	cfg := &pixarray.Config{
		Order:       *pixelOrder,
		Bpp:         *bpp,
		Brightness:  brightness,
		ManualWrite: true,
	}
	if cfg.Header, err = pixarray.ParseFrameBytes(*header); err != nil {
		log.Fatalf("Bad -header: %v", err)
	}
	if cfg.Trailer, err = pixarray.ParseFrameBytes(*trailer); err != nil {
		log.Fatalf("Bad -trailer: %v", err)
	}

	tx, err := openTransmitter()
	if err != nil {
		log.Fatalf("Failed opening %s: %v", *ledChip, err)
	}
	pa, err := pixarray.New(*pixels, tx, cfg)
	if err != nil {
		log.Fatalf("Failed creating pixel array: %v", err)
	}
	log.Printf("Driving %d %s pixels via %s", pa.NumPixels(), pa.ByteOrder(), *ledChip)

	s, err := NewServer(*port, pa, pw)
	if err != nil {
		log.Fatalf("Failed creating server: %v", err)
	}

	go s.shutdown(tx)
	go s.runEffects()
	s.handleConnections()
}
