package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var powerCtrlPin = flag.String("powerCtrlPin", "", "A GPIO pin (e.g. GPIO17) which, when set high, turns on power for the LEDs. Empty means no such pin exists.")
var powerStatusPin = flag.String("powerStatusPin", "", "A GPIO pin which indicates healthy power to the LEDs. Empty means no such pin exists. Only relevant if powerCtrlPin is specified.")
var powerStatusWait = flag.Duration("powerStatusWait", 2*time.Second, "How long to wait for a healthy power signal. Only relevant if powerStatusPin is specified and relevant.")

type power struct {
	ctrl   gpio.PinIO
	status gpio.PinIO
	wait   time.Duration
}

func initPower(ctrlName, statusName string, wait time.Duration) (*power, error) {
	p := &power{wait: wait}
	if ctrlName == "" {
		return p, nil
	}
	if p.ctrl = gpioreg.ByName(ctrlName); p.ctrl == nil {
		return nil, fmt.Errorf("unknown power control pin %q", ctrlName)
	}
	if err := p.ctrl.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("couldn't set power control to output: %v", err)
	}
	if statusName == "" {
		return p, nil
	}
	if p.status = gpioreg.ByName(statusName); p.status == nil {
		return nil, fmt.Errorf("unknown power status pin %q", statusName)
	}
	if err := p.status.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("couldn't set power status to input: %v", err)
	}
	return p, nil
}

func (p *power) on() error {
	if p.ctrl == nil {
		return nil
	}
	log.Printf("Power on")
	if err := p.ctrl.Out(gpio.High); err != nil {
		return fmt.Errorf("couldn't set power control high: %v", err)
	}
	if p.status == nil {
		return nil
	}
	start := time.Now()
	for {
		t := time.Now()
		if p.status.Read() == gpio.High {
			log.Printf("Power stablized after %v", t.Sub(start))
			return nil
		}
		if t.Sub(start) > p.wait {
			return fmt.Errorf("timed out waiting for power to be healthy, started %v, now %v", start, t)
		}
		time.Sleep(50 * time.Millisecond) // No point overdoing it - we're not in _that_ much of a rush
	}
}

func (p *power) off() error {
	if p.ctrl == nil {
		return nil
	}
	log.Printf("Power off")
	if err := p.ctrl.Out(gpio.Low); err != nil {
		return fmt.Errorf("couldn't set power control low: %v", err)
	}
	// We could wait for power status to go low, but that might take a while and doesn't seem to provide any benefit
	return nil
}
