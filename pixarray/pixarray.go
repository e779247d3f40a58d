package pixarray

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Pixel is the value of one pixel as read back from a PixArray.
type Pixel struct {
	R int
	G int
	B int
	W int // -1 if the order has no white channel

	// Lum is the dotstar brightness between 0 and 1, -1 if the order has
	// no brightness channel.
	Lum float64
}

func (p Pixel) String() string {
	switch {
	case p.W != -1:
		return fmt.Sprintf("%02x%02x%02x%02x", p.R, p.G, p.B, p.W)
	case p.Lum != -1:
		// Smallest n/255 that decodes back to the same 5 bit brightness.
		return fmt.Sprintf("%02x%02x%02x%02x", p.R, p.G, p.B, int(math.Ceil(p.Lum*255-1e-9)))
	}
	return fmt.Sprintf("%02x%02x%02x", p.R, p.G, p.B)
}

// Values returns the pixel as a Tuple of 3 or 4 components, suitable for
// passing back to Set.
func (p Pixel) Values() Tuple {
	t := Tuple{float64(p.R), float64(p.G), float64(p.B)}
	switch {
	case p.W != -1:
		t = append(t, float64(p.W))
	case p.Lum != -1:
		t = append(t, p.Lum)
	}
	return t
}

// Colorful returns the RGB part of the pixel as a go-colorful color.
func (p Pixel) Colorful() colorful.Color {
	return colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
}

// Config describes the layout and behaviour of a PixArray.
type Config struct {
	// Order is the channel order, e.g. GRB or PBGR. Empty means GRB for
	// three channels and GRBW for four.
	Order string

	// Bpp is the number of channels, 3 or 4. Ignored if Order is set.
	Bpp int

	// Brightness scales every channel except dotstar brightness, 0 to 1.
	// Nil means full brightness.
	Brightness *float64

	// ManualWrite stops the buffer being transmitted after every change;
	// Show has to be called instead.
	ManualWrite bool

	// Header and Trailer are copied verbatim before and after the pixel data.
	Header  []byte
	Trailer []byte
}

// DefaultConfig is used by New when no Config is given: GRB at full
// brightness, transmitting after every change. The zero Config means the
// same thing.
var DefaultConfig = Config{
	Bpp: 3,
}

// Float64 returns a pointer to v, for setting Config.Brightness.
func Float64(v float64) *float64 {
	return &v
}

// ParseFrameBytes decodes a hex string such as "00000000" into a header
// or trailer region.
func ParseFrameBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderTrailer, err)
	}
	return b, nil
}

// PixArray is a strip of pixels encoded into a single byte buffer.
//
// Two buffers are kept once brightness has been changed: pre holds the
// values as they were set, post holds them scaled by brightness and is what
// gets transmitted. Rescaling always starts from pre, so repeated brightness
// changes don't lose precision.
//
// A PixArray is not safe for concurrent use.
type PixArray struct {
	numPixels  int
	order      *Order
	stride     int
	offset     int
	post       []byte
	pre        []byte
	brightness float64
	autoWrite  bool
	tx         Transmitter
	closed     bool
}

// New creates a PixArray of numPixels pixels sending its buffer to tx. A nil
// config means DefaultConfig; a nil tx makes Show a no-op.
func New(numPixels int, tx Transmitter, config *Config) (*PixArray, error) {
	if config == nil {
		config = new(Config)
		*config = DefaultConfig
	}
	if numPixels <= 0 {
		return nil, fmt.Errorf("pixarray: invalid pixel count %d", numPixels)
	}

	s := config.Order
	if s == "" {
		switch config.Bpp {
		case 0, 3:
			s = OrderGRB
		case 4:
			s = OrderGRBW
		default:
			return nil, fmt.Errorf("%w: %d channels per pixel", ErrInvalidOrder, config.Bpp)
		}
	}
	order, err := ParseOrder(s)
	if err != nil {
		return nil, err
	}

	stride := order.bpp
	if order.dotstar {
		stride = 4
	}
	offset := len(config.Header)
	buf := make([]byte, offset+numPixels*stride+len(config.Trailer))
	copy(buf, config.Header)
	copy(buf[offset+numPixels*stride:], config.Trailer)

	pa := &PixArray{
		numPixels:  numPixels,
		order:      order,
		stride:     stride,
		offset:     offset,
		post:       buf,
		brightness: 1.0,
		tx:         tx,
	}
	if order.dotstar {
		for i := 0; i < numPixels; i++ {
			buf[offset+i*stride+order.w] = dotstarStartFullBright
		}
	}
	if config.Brightness != nil {
		if err = pa.SetBrightness(*config.Brightness); err != nil {
			return nil, err
		}
	}
	pa.autoWrite = !config.ManualWrite
	return pa, nil
}

// Use creates a PixArray, hands it to fn and deinitializes it afterwards,
// whatever fn returns.
func Use(numPixels int, tx Transmitter, config *Config, fn func(*PixArray) error) (err error) {
	pa, err := New(numPixels, tx, config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pa.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(pa)
}

func (pa *PixArray) NumPixels() int {
	return pa.numPixels
}

// Bpp is the number of channels per pixel.
func (pa *PixArray) Bpp() int {
	return pa.order.bpp
}

// ByteOrder returns the channel order string the array was created with.
func (pa *PixArray) ByteOrder() string {
	return pa.order.str
}

func (pa *PixArray) Order() *Order {
	return pa.order
}

func (pa *PixArray) AutoWrite() bool {
	return pa.autoWrite
}

func (pa *PixArray) SetAutoWrite(on bool) {
	pa.autoWrite = on
}

// Bytes returns the buffer handed to the transmitter. It must not be modified.
func (pa *PixArray) Bytes() []byte {
	return pa.post
}

func (pa *PixArray) Brightness() float64 {
	return pa.brightness
}

// SetBrightness clamps v to [0, 1] and rescales every pixel. Changes smaller
// than 0.001 are ignored.
func (pa *PixArray) SetBrightness(v float64) error {
	if pa.closed {
		return ErrClosed
	}
	if math.IsNaN(v) {
		return fmt.Errorf("pixarray: invalid brightness %v", v)
	}
	v = math.Min(math.Max(v, 0.0), 1.0)
	if change := v - pa.brightness; -0.001 < change && change < 0.001 {
		return nil
	}
	pa.brightness = v

	if pa.pre == nil {
		pa.pre = make([]byte, len(pa.post))
		copy(pa.pre, pa.post)
	}
	end := pa.offset + pa.numPixels*pa.stride
	for i := pa.offset; i < end; i++ {
		// Dotstar brightness lives in each pixel's frame byte.
		if pa.order.dotstar && (i-pa.offset)%pa.stride == pa.order.w {
			continue
		}
		pa.post[i] = uint8(float64(pa.pre[i]) * v)
	}
	return pa.autoShow()
}

func (pa *PixArray) index(i int) (int, error) {
	idx := i
	if idx < 0 {
		idx += pa.numPixels
	}
	if idx < 0 || idx >= pa.numPixels {
		return 0, fmt.Errorf("%w: %d, have %d pixels", ErrIndexOutOfRange, i, pa.numPixels)
	}
	return idx, nil
}

// indices expands start:stop:step over the pixels the way a Python slice
// would: negative bounds count from the end and bounds are clamped.
func (pa *PixArray) indices(start, stop, step int) ([]int, error) {
	if step == 0 {
		return nil, ErrRangeStep
	}
	n := pa.numPixels
	lo, hi := 0, n
	if step < 0 {
		lo, hi = -1, n-1
	}
	clamp := func(i int) int {
		if i < 0 {
			i += n
		}
		if i < lo {
			return lo
		}
		if i > hi {
			return hi
		}
		return i
	}
	start, stop = clamp(start), clamp(stop)

	var idx []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		idx = append(idx, i)
	}
	return idx, nil
}

func (pa *PixArray) set(idx int, ch channels) {
	base := pa.offset + idx*pa.stride
	o := pa.order
	if pa.pre != nil {
		pa.pre[base+o.r] = ch.r
		pa.pre[base+o.g] = ch.g
		pa.pre[base+o.b] = ch.b
		if o.w >= 0 {
			pa.pre[base+o.w] = ch.w
		}
	}
	s := ch.scaled(pa.brightness, !o.dotstar)
	pa.post[base+o.r] = s.r
	pa.post[base+o.g] = s.g
	pa.post[base+o.b] = s.b
	if o.w >= 0 {
		pa.post[base+o.w] = s.w
	}
}

func (pa *PixArray) get(idx int) Pixel {
	buf := pa.post
	if pa.pre != nil {
		buf = pa.pre
	}
	base := pa.offset + idx*pa.stride
	o := pa.order
	p := Pixel{int(buf[base+o.r]), int(buf[base+o.g]), int(buf[base+o.b]), -1, -1}
	switch {
	case o.hasWhite:
		p.W = int(buf[base+o.w])
	case o.dotstar:
		p.Lum = float64(buf[base+o.w]&dotstarBrightness) / 31.0
	}
	return p
}

// Set sets pixel i, counting from the end if i is negative.
func (pa *PixArray) Set(i int, c Color) error {
	if pa.closed {
		return ErrClosed
	}
	ch, err := decode(c, pa.order)
	if err != nil {
		return err
	}
	idx, err := pa.index(i)
	if err != nil {
		return err
	}
	pa.set(idx, ch)
	return pa.autoShow()
}

// SetRange sets the pixels of start:stop:step to colors, in order. Nothing
// is changed unless every color decodes and there is one per pixel.
func (pa *PixArray) SetRange(start, stop, step int, colors ...Color) error {
	if pa.closed {
		return ErrClosed
	}
	idx, err := pa.indices(start, stop, step)
	if err != nil {
		return err
	}
	if len(idx) != len(colors) {
		return fmt.Errorf("%w: %d colors for %d pixels", ErrRangeLength, len(colors), len(idx))
	}
	chs := make([]channels, len(colors))
	for i, c := range colors {
		if chs[i], err = decode(c, pa.order); err != nil {
			return err
		}
	}
	for i, ch := range chs {
		pa.set(idx[i], ch)
	}
	return pa.autoShow()
}

// Get returns pixel i, counting from the end if i is negative. Values are
// those last set, before brightness scaling.
func (pa *PixArray) Get(i int) (Pixel, error) {
	idx, err := pa.index(i)
	if err != nil {
		return Pixel{}, err
	}
	return pa.get(idx), nil
}

// GetRange returns the pixels of start:stop:step.
func (pa *PixArray) GetRange(start, stop, step int) ([]Pixel, error) {
	idx, err := pa.indices(start, stop, step)
	if err != nil {
		return nil, err
	}
	p := make([]Pixel, len(idx))
	for i, v := range idx {
		p[i] = pa.get(v)
	}
	return p, nil
}

func (pa *PixArray) GetPixels() []Pixel {
	p := make([]Pixel, pa.numPixels)
	for i := 0; i < pa.numPixels; i++ {
		p[i] = pa.get(i)
	}
	return p
}

// Fill sets every pixel to c.
func (pa *PixArray) Fill(c Color) error {
	if pa.closed {
		return ErrClosed
	}
	ch, err := decode(c, pa.order)
	if err != nil {
		return err
	}
	for i := 0; i < pa.numPixels; i++ {
		pa.set(i, ch)
	}
	return pa.autoShow()
}

// Show transmits the buffer.
func (pa *PixArray) Show() error {
	if pa.closed {
		return ErrClosed
	}
	if pa.tx == nil {
		return nil
	}
	return pa.tx.Transmit(pa.post)
}

func (pa *PixArray) autoShow() error {
	if !pa.autoWrite {
		return nil
	}
	return pa.Show()
}

// Deinit blanks the strip and transmits it one last time. Afterwards every
// mutation returns ErrClosed.
func (pa *PixArray) Deinit() error {
	if err := pa.Fill(Packed(0)); err != nil {
		return err
	}
	if err := pa.Show(); err != nil {
		return err
	}
	pa.closed = true
	return nil
}

// Close deinitializes the array unless that has already happened.
func (pa *PixArray) Close() error {
	if pa.closed {
		return nil
	}
	return pa.Deinit()
}

func (pa *PixArray) String() string {
	parts := make([]string, pa.numPixels)
	for i := range parts {
		vals := pa.get(i).Values()
		s := make([]string, len(vals))
		for j, v := range vals {
			s[j] = fmt.Sprint(v)
		}
		parts[i] = "[" + strings.Join(s, ", ") + "]"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
