package effects

import (
	"fmt"
	"log"
	"time"

	"github.com/Jon-Bright/pixbuf/pixarray"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/ojrac/opensimplex-go"
)

// An Effect animates a PixArray. NextStep updates the pixels for the given
// time and returns how long to wait before the next step, or 0 once the
// effect has finished. Effects never call Show; the caller does.
type Effect interface {
	Start(pa *pixarray.PixArray, now time.Time) error
	NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error)
	Name() string
}

func abs(i int) int {
	if i >= 0 {
		return i
	}
	return -i
}

func progress(start, now time.Time, d time.Duration) float64 {
	if d <= 0 {
		return 1.0
	}
	if now.Before(start) {
		return 0
	}
	return float64(now.Sub(start).Nanoseconds()) / float64(d.Nanoseconds())
}

type Fade struct {
	fadeTime time.Duration
	dest     pixarray.Tuple
	startPix []pixarray.Tuple
	timeStep time.Duration
	start    time.Time
}

// NewFade fades every pixel to dest, which has 3 or 4 components as
// accepted by pixarray.Tuple.
func NewFade(fadeTime time.Duration, dest pixarray.Tuple) *Fade {
	f := Fade{}
	f.fadeTime = fadeTime
	f.dest = dest
	return &f
}

func (f *Fade) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting Fade, dest %v", f.dest)
	if len(f.dest) < 3 || len(f.dest) > 4 {
		return fmt.Errorf("fade destination %v: %w", f.dest, pixarray.ErrColorLength)
	}
	f.startPix = f.startPix[:0]
	for _, p := range pa.GetPixels() {
		f.startPix = append(f.startPix, p.Values())
	}
	// 8 bit channels can't show more than 256 distinct steps.
	f.timeStep = f.fadeTime / 256
	if f.timeStep < time.Millisecond {
		f.timeStep = time.Millisecond
	}
	f.start = now
	return nil
}

func (f *Fade) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	pct := progress(f.start, now, f.fadeTime)
	done := pct >= 1.0
	if done {
		pct = 1.0
	}
	destRGB := colorful.Color{R: f.dest[0] / 255, G: f.dest[1] / 255, B: f.dest[2] / 255}
	for i, sp := range f.startPix {
		startRGB := colorful.Color{R: sp[0] / 255, G: sp[1] / 255, B: sp[2] / 255}
		r, g, b := startRGB.BlendRgb(destRGB, pct).Clamped().RGB255()
		t := pixarray.Tuple{float64(r), float64(g), float64(b)}
		if len(sp) == 4 {
			t = append(t, sp[3]+(f.fourth(pa, sp)-sp[3])*pct)
		}
		if err := pa.Set(i, t); err != nil {
			return 0, err
		}
	}
	if done {
		return 0, nil
	}
	return f.timeStep, nil
}

// fourth is where the fourth component of a four channel pixel ends up. A
// three component destination turns white off and leaves dotstar
// brightness alone.
func (f *Fade) fourth(pa *pixarray.PixArray, sp pixarray.Tuple) float64 {
	switch {
	case len(f.dest) == 4:
		return f.dest[3]
	case pa.Order().Dotstar():
		return sp[3]
	}
	return 0
}

func (f *Fade) Name() string {
	return "FADE"
}

type Rainbow struct {
	cycleTime time.Duration
	start     time.Time
}

func NewRainbow(cycleTime time.Duration) *Rainbow {
	r := Rainbow{}
	r.cycleTime = cycleTime
	return &r
}

func (r *Rainbow) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting Rainbow")
	r.start = now
	return nil
}

func (r *Rainbow) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	pos := progress(r.start, now, r.cycleTime)
	offs := int(256*pos) % 256
	n := pa.NumPixels()
	for i := 0; i < n; i++ {
		if err := pa.Set(i, pixarray.Colorwheel((i*256/n+offs)%256)); err != nil {
			return 0, err
		}
	}
	return r.cycleTime / 256, nil
}

func (r *Rainbow) Name() string {
	return "RAINBOW"
}

// A Cycle walks the whole strip round the color wheel, one full turn per
// cycleTime.
type Cycle struct {
	cycleTime time.Duration
	start     time.Time
	last      int
}

func NewCycle(cycleTime time.Duration) *Cycle {
	c := Cycle{}
	c.cycleTime = cycleTime
	c.last = -1
	return &c
}

func (c *Cycle) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting Cycle")
	c.start = now
	c.last = -1
	return nil
}

func (c *Cycle) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	pos := int(256*progress(c.start, now, c.cycleTime)) % 256
	if pos != c.last {
		if err := pa.Fill(pixarray.Colorwheel(pos)); err != nil {
			return 0, err
		}
		c.last = pos
	}
	return c.cycleTime / 256, nil
}

func (c *Cycle) Name() string {
	return "CYCLE"
}

type Zip struct {
	zipTime time.Duration
	dest    pixarray.Color
	start   time.Time
	lastSet int
}

func NewZip(zipTime time.Duration, dest pixarray.Color) *Zip {
	z := Zip{}
	z.zipTime = zipTime
	z.dest = dest
	z.lastSet = -1
	return &z
}

func (z *Zip) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting Zip")
	z.start = now
	z.lastSet = -1
	return nil
}

func (z *Zip) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	p := int(progress(z.start, now, z.zipTime) * float64(pa.NumPixels()))
	for i := z.lastSet + 1; i < pa.NumPixels() && i <= p; i++ {
		if err := pa.Set(i, z.dest); err != nil {
			return 0, err
		}
		z.lastSet = i
	}
	if p >= pa.NumPixels() {
		return 0, nil
	}
	return time.Duration(z.zipTime.Nanoseconds() / int64(pa.NumPixels())), nil
}

func (z *Zip) Name() string {
	return "ZIP"
}

type KnightRider struct {
	pulseTime time.Duration
	pulseLen  int
	start     time.Time
}

func NewKnightRider(pulseTime time.Duration, pulseLen int) *KnightRider {
	kr := KnightRider{}
	kr.pulseTime = pulseTime
	kr.pulseLen = pulseLen
	if kr.pulseTime <= 0 {
		kr.pulseTime = time.Second
	}
	if kr.pulseLen < 1 {
		kr.pulseLen = 1
	}
	return &kr
}

func (kr *KnightRider) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting KnightRider")
	kr.start = now
	return pa.Fill(pixarray.Packed(0))
}

func (kr *KnightRider) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	n := pa.NumPixels()
	elapsed := now.Sub(kr.start).Nanoseconds()
	pulse := elapsed / kr.pulseTime.Nanoseconds()
	pulseProgress := float64(elapsed-(pulse*kr.pulseTime.Nanoseconds())) / float64(kr.pulseTime.Nanoseconds())
	pulseHead := int(float64(n+kr.pulseLen) * pulseProgress)
	pulseDir := 1
	if pulse%2 != 0 {
		pulseDir = -1
		pulseHead = n - pulseHead
	}
	if err := pa.Fill(pixarray.Packed(0)); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		d := (pulseHead - i) * pulseDir
		if d < 0 || d >= kr.pulseLen {
			continue
		}
		v := int((float64(kr.pulseLen-abs(d))/float64(kr.pulseLen))*254.0) + 1
		if err := pa.Set(i, pixarray.RGB{uint8(v), 0, 0}); err != nil {
			return 0, err
		}
	}
	return time.Millisecond, nil
}

func (kr *KnightRider) Name() string {
	return "KNIGHTRIDER"
}

// Noise colors each pixel from a slowly moving 2D simplex noise field mapped
// onto the color wheel.
type Noise struct {
	speed float64 // Noise units per second
	scale float64 // Noise units per pixel
	noise opensimplex.Noise
	start time.Time
}

func NewNoise(seed int64, speed, scale float64) *Noise {
	return &Noise{
		speed: speed,
		scale: scale,
		noise: opensimplex.NewNormalized(seed),
	}
}

func (ns *Noise) Start(pa *pixarray.PixArray, now time.Time) error {
	log.Printf("Starting Noise")
	ns.start = now
	return nil
}

func (ns *Noise) NextStep(pa *pixarray.PixArray, now time.Time) (time.Duration, error) {
	t := now.Sub(ns.start).Seconds() * ns.speed
	for i := 0; i < pa.NumPixels(); i++ {
		v := ns.noise.Eval2(float64(i)*ns.scale, t)
		if err := pa.Set(i, pixarray.Colorwheel(int(v*255))); err != nil {
			return 0, err
		}
	}
	return 20 * time.Millisecond, nil
}

func (ns *Noise) Name() string {
	return "NOISE"
}
