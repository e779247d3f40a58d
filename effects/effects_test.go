package effects

import (
	"testing"
	"time"

	"github.com/Jon-Bright/pixbuf/pixarray"
)

func d(s string, tb testing.TB) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		tb.Fatalf("Couldn't parse duration %s: %v", s, err)
	}
	return d
}

func newArray(tb testing.TB, numPixels int, order string) *pixarray.PixArray {
	pa, err := pixarray.New(numPixels, nil, &pixarray.Config{Order: order})
	if err != nil {
		tb.Fatalf("Failed New: %v", err)
	}
	return pa
}

func TestAllSameFade(t *testing.T) {
	pa := newArray(t, 100, pixarray.OrderGRB)

	tests := []struct {
		start   pixarray.RGB
		dest    pixarray.Tuple
		fadeLen time.Duration
		len     time.Duration
		want    pixarray.Pixel
	}{
		{pixarray.RGB{0, 0, 0}, pixarray.Tuple{254, 0, 0}, d("1.0s", t), d("0.5s", t), pixarray.Pixel{R: 127, G: 0, B: 0, W: -1, Lum: -1}},
		{pixarray.RGB{0, 254, 0}, pixarray.Tuple{254, 0, 0}, d("1.0s", t), d("0.5s", t), pixarray.Pixel{R: 127, G: 127, B: 0, W: -1, Lum: -1}},
		{pixarray.RGB{120, 120, 120}, pixarray.Tuple{120, 0, 120}, d("3.0s", t), d("1.0s", t), pixarray.Pixel{R: 120, G: 80, B: 120, W: -1, Lum: -1}},
		{pixarray.RGB{200, 100, 0}, pixarray.Tuple{0, 0, 0}, d("4.0s", t), d("3.0s", t), pixarray.Pixel{R: 50, G: 25, B: 0, W: -1, Lum: -1}},
		{pixarray.RGB{1, 2, 3}, pixarray.Tuple{9, 8, 7}, d("1.0s", t), d("1.5s", t), pixarray.Pixel{R: 9, G: 8, B: 7, W: -1, Lum: -1}},
	}

	tm := time.Now()
	for _, test := range tests {
		pa.Fill(test.start)
		f := NewFade(test.fadeLen, test.dest)
		if err := f.Start(pa, tm); err != nil {
			t.Fatalf("Failed Start: %v", err)
		}
		tm = tm.Add(test.len)
		next, err := f.NextStep(pa, tm)
		if err != nil {
			t.Fatalf("Failed NextStep: %v", err)
		}
		if test.len >= test.fadeLen && next != 0 {
			t.Errorf("Fade to %v not finished, next step %v", test.dest, next)
		}
		for i, p := range pa.GetPixels() {
			if p != test.want {
				t.Errorf("Wrong pixel %d fading %v->%v, got: %v, want: %v", i, test.start, test.dest, p, test.want)
				break
			}
		}
	}
}

func TestFadeWhite(t *testing.T) {
	pa := newArray(t, 4, pixarray.OrderGRBW)
	pa.Fill(pixarray.RGBW{0, 0, 0, 200})
	tm := time.Now()
	f := NewFade(d("2s", t), pixarray.Tuple{100, 0, 0, 0})
	f.Start(pa, tm)
	f.NextStep(pa, tm.Add(d("1s", t)))
	if p, _ := pa.Get(0); p != (pixarray.Pixel{R: 50, G: 0, B: 0, W: 100, Lum: -1}) {
		t.Errorf("Wrong white fade, got: %v", p)
	}
	if err := NewFade(d("1s", t), pixarray.Tuple{1, 2}).Start(pa, tm); err == nil {
		t.Errorf("Short destination accepted")
	}
}

func TestFadeFourthToThreeComponents(t *testing.T) {
	tests := []struct {
		order string
		start pixarray.Color
		mid   pixarray.Pixel
		end   pixarray.Pixel
	}{
		{pixarray.OrderGRBW, pixarray.RGBW{0, 0, 0, 200}, pixarray.Pixel{R: 0, G: 0, B: 0, W: 190, Lum: -1}, pixarray.Pixel{R: 0, G: 0, B: 0, W: 0, Lum: -1}},
		{pixarray.OrderGRBW, pixarray.RGBW{200, 0, 0, 100}, pixarray.Pixel{R: 190, G: 0, B: 0, W: 95, Lum: -1}, pixarray.Pixel{R: 0, G: 0, B: 0, W: 0, Lum: -1}},
		{pixarray.OrderPBGR, pixarray.Tuple{200, 0, 0, 0.1}, pixarray.Pixel{R: 190, G: 0, B: 0, W: -1, Lum: 3.0 / 31.0}, pixarray.Pixel{R: 0, G: 0, B: 0, W: -1, Lum: 3.0 / 31.0}},
	}
	for _, test := range tests {
		pa := newArray(t, 3, test.order)
		pa.Fill(test.start)
		tm := time.Now()
		f := NewFade(d("20s", t), pixarray.Tuple{0, 0, 0})
		if err := f.Start(pa, tm); err != nil {
			t.Fatalf("Failed Start: %v", err)
		}
		f.NextStep(pa, tm.Add(d("1s", t)))
		if p, _ := pa.Get(1); p != test.mid {
			t.Errorf("%s %v after 1s, got: %+v, want: %+v", test.order, test.start, p, test.mid)
		}
		if next, _ := f.NextStep(pa, tm.Add(d("20s", t))); next != 0 {
			t.Errorf("%s fade not finished, next %v", test.order, next)
		}
		if p, _ := pa.Get(1); p != test.end {
			t.Errorf("%s %v at end, got: %+v, want: %+v", test.order, test.start, p, test.end)
		}
	}
}

func TestZip(t *testing.T) {
	pa := newArray(t, 10, pixarray.OrderRGB)
	z := NewZip(d("1s", t), pixarray.Packed(0xff0000))
	tm := time.Now()
	z.Start(pa, tm)
	next, _ := z.NextStep(pa, tm.Add(d("0.45s", t)))
	if next != d("100ms", t) {
		t.Errorf("Wrong step, got: %v, want: 100ms", next)
	}
	for i, p := range pa.GetPixels() {
		if lit := p.R == 0xff; lit != (i <= 4) {
			t.Errorf("Pixel %d wrong after 0.45s: %v", i, p)
		}
	}
	if next, _ = z.NextStep(pa, tm.Add(d("1s", t))); next != 0 {
		t.Errorf("Zip not finished, next %v", next)
	}
	for i, p := range pa.GetPixels() {
		if p.R != 0xff {
			t.Errorf("Pixel %d not set: %v", i, p)
		}
	}
}

func TestRainbow(t *testing.T) {
	pa := newArray(t, 4, pixarray.OrderGRB)
	r := NewRainbow(d("2.56s", t))
	tm := time.Now()
	r.Start(pa, tm)
	next, _ := r.NextStep(pa, tm)
	if next != d("10ms", t) {
		t.Errorf("Wrong step, got: %v", next)
	}
	for i, want := range []int{0, 64, 128, 192} {
		c := pixarray.Colorwheel(want)
		if p, _ := pa.Get(i); p.R != int(c[0]) || p.G != int(c[1]) || p.B != int(c[2]) {
			t.Errorf("Pixel %d, got: %v, want: %v", i, p, c)
		}
	}
	r.NextStep(pa, tm.Add(d("0.64s", t)))
	if p, _ := pa.Get(3); p.R != 255 || p.G != 0 || p.B != 0 {
		t.Errorf("Rainbow didn't rotate, got: %v", p)
	}
}

func TestCycle(t *testing.T) {
	pa := newArray(t, 3, pixarray.OrderGRB)
	c := NewCycle(d("2.56s", t))
	tm := time.Now()
	c.Start(pa, tm)
	c.NextStep(pa, tm.Add(d("0.85s", t)))
	for i, p := range pa.GetPixels() {
		if p.R != 0 || p.G != 255 || p.B != 0 {
			t.Errorf("Pixel %d, got: %v, want green", i, p)
		}
	}
}

func TestKnightRider(t *testing.T) {
	pa := newArray(t, 20, pixarray.OrderGRB)
	kr := NewKnightRider(d("1s", t), 5)
	tm := time.Now()
	kr.Start(pa, tm)
	kr.NextStep(pa, tm.Add(d("0.5s", t)))
	lit := 0
	for _, p := range pa.GetPixels() {
		if p.R > 0 {
			lit++
		}
		if p.G != 0 || p.B != 0 {
			t.Errorf("Non-red pixel %v", p)
		}
	}
	if lit != 5 {
		t.Errorf("Wrong lit count, got: %d, want: 5", lit)
	}
	if p, _ := pa.Get(12); p.R != 255 {
		t.Errorf("Pulse head not full red, got: %v", p)
	}
}

func TestNoise(t *testing.T) {
	pa := newArray(t, 30, pixarray.OrderGRB)
	n := NewNoise(42, 0.5, 0.1)
	tm := time.Now()
	n.Start(pa, tm)
	if next, err := n.NextStep(pa, tm); err != nil || next <= 0 {
		t.Fatalf("Failed NextStep: %v, %v", next, err)
	}
	first := pa.GetPixels()
	n.NextStep(pa, tm)
	for i, p := range pa.GetPixels() {
		if p != first[i] {
			t.Errorf("Noise not deterministic at pixel %d: %v vs %v", i, p, first[i])
		}
		if p.R+p.G+p.B == 0 {
			t.Errorf("Pixel %d black", i)
		}
	}
}

func BenchmarkFadeStep(b *testing.B) {
	pa := newArray(b, 100, pixarray.OrderGRB)
	pa.Fill(pixarray.RGB{127, 0, 0})
	tm := time.Now()
	add := time.Duration((7200 * time.Second).Nanoseconds() / int64(b.N))
	if add == 0 {
		b.Fatalf("Zero delay")
	}
	f := NewFade(d("7200.0s", b), pixarray.Tuple{0, 127, 0})
	f.Start(pa, tm)
	for i := 0; i < b.N; i++ {
		tm = tm.Add(add)
		f.NextStep(pa, tm)
	}
}
