// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Sigbox streams a bit pattern out of the PWM serializer with DMA pacing:
// the clock generator paces the PWM, the PWM's DREQ paces the DMA chain,
// and the CPU is out of the loop once the channel is activated.  It is a
// demonstration and smoke test of the timing engine; it needs root.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"github.com/signalbox/raspberrypi/clock"
	"github.com/signalbox/raspberrypi/dma"
	"github.com/signalbox/raspberrypi/gpio"
	"github.com/signalbox/raspberrypi/hw/gpumem"
	"github.com/signalbox/raspberrypi/hw/mbox"
	"github.com/signalbox/raspberrypi/pwm"
)

const usage = `usage: sigbox [-v] [-cycle US] [-mash N] [-dma CHANNEL] [-pin PIN] [-words N]`

func main() {
	flag, args := flags.New(os.Args[1:], "-v", "-h")
	parm, args := parms.New(args, "-cycle", "-mash", "-dma", "-pin", "-words")
	if flag.ByName["-h"] || len(args) > 0 {
		fmt.Println(usage)
		os.Exit(0)
	}
	cycle := parmFloat(parm.ByName["-cycle"], 58)
	mash := parmUint(parm.ByName["-mash"], 1)
	channel := parmUint(parm.ByName["-dma"], 5)
	pin := parmUint(parm.ByName["-pin"], 18)
	words := parmUint(parm.ByName["-words"], 256)

	if err := run(cycle, uint32(mash), int(channel), int(pin), int(words),
		flag.ByName["-v"]); err != nil {
		fmt.Fprintln(os.Stderr, "sigbox:", err)
		os.Exit(1)
	}
}

func parmFloat(s string, def float64) float64 {
	if len(s) == 0 {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sigbox:", err)
		os.Exit(1)
	}
	return v
}

func parmUint(s string, def uint64) uint64 {
	if len(s) == 0 {
		return def
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sigbox:", err)
		os.Exit(1)
	}
	return v
}

func run(cycle float64, mash uint32, channel, pin, words int, verbose bool) error {
	// The bit cycle is what callers care about; each FIFO word is 32
	// serialized bits.
	sol, ok := clock.SolveForCycle(cycle, mash)
	if !ok {
		return fmt.Errorf("no clock configuration within tolerance of %vµs", cycle)
	}
	if verbose {
		log.Print("sigbox", "info", fmt.Sprintf(
			"clock: %v / (%d + %d/4096), MASH %d, %.6fµs achieved",
			sol.Source, sol.DivI, sol.DivF, sol.MASH, sol.Cycle()))
	}

	g, err := gpio.Open()
	if err != nil {
		return err
	}
	defer g.Close()
	p, err := g.Pin(pin)
	if err != nil {
		return err
	}
	p.SetFunction(gpio.Alt5) // PWM0 output

	clocks, err := clock.Open()
	if err != nil {
		return err
	}
	defer clocks.Close()
	gen, err := clocks.Generator(clock.PWM)
	if err != nil {
		return err
	}
	gen.Configure(sol)
	defer gen.Disable()

	pw, err := pwm.Open()
	if err != nil {
		return err
	}
	defer pw.Close()
	ch1, err := pw.Channel(1)
	if err != nil {
		return err
	}
	ch1.Enable(false)
	ch1.UseSerializer(true)
	ch1.UseFIFO(true)
	ch1.RepeatLast(false)
	ch1.SetRange(32)
	pw.ClearFIFO()
	pw.ClearStatus(pwm.BusError | pwm.FIFOReadError | pwm.FIFOWriteError |
		pwm.Gap1 | pwm.Gap2 | pwm.Gap3 | pwm.Gap4)
	pw.EnableDMA(7, 7)
	defer ch1.Enable(false)

	mb, err := mbox.Open()
	if err != nil {
		return err
	}
	defer mb.Close()

	// One coherent region holds the pattern followed by the chain.
	chainOff := (words*4 + dma.ControlBlockSize - 1) &^ (dma.ControlBlockSize - 1)
	region, err := gpumem.Alloc(mb, chainOff+dma.ControlBlockSize)
	if err != nil {
		return err
	}
	defer func() {
		if err := region.Free(mb); err != nil {
			log.Print("sigbox", "err", fmt.Sprintf("coherent region leaked: %v", err))
		}
	}()
	for i := 0; i < words; i++ {
		w := uint32(0xaaaaaaaa) // alternate bits at the clock rate
		for b := 0; b < 4; b++ {
			region.Mem()[i*4+b] = byte(w >> uint(8*b))
		}
	}

	b := dma.NewBuilder(region.Mem()[chainOff:], region.Bus()+uint32(chainOff))
	_, err = b.Append(dma.ControlBlock{
		Info: (dma.NoWideBursts | dma.WaitForWriteResponse |
			dma.SrcAddrIncrement | dma.DestDREQGated).
			WithPeripheral(dma.PeripheralPWM),
		SrcAddr:  region.Bus(),
		DestAddr: pw.FIFOBus(),
		Length:   uint32(words * 4),
	})
	if err != nil {
		return err
	}

	engine, err := dma.Open()
	if err != nil {
		return err
	}
	defer engine.Close()
	c, err := engine.Channel(channel)
	if err != nil {
		return err
	}
	engine.Enable(channel)
	c.Reset()
	c.ClearErrors(dma.ReadError | dma.FIFOError | dma.ReadLastNotSetError)

	gen.Enable()
	ch1.Enable(true)
	c.Activate(b.First())
	if verbose {
		log.Print("sigbox", "info", fmt.Sprintf(
			"chain of %d block(s) at %#x on channel %d", b.Len(), b.First(), channel))
	}
	c.Wait()

	if errs := c.Errors(); errs != 0 {
		c.ClearErrors(errs)
		return fmt.Errorf("dma channel %d: %v", channel, errs)
	}
	if sta := pw.Status(); sta&(pwm.BusError|pwm.FIFOReadError|pwm.FIFOWriteError) != 0 {
		pw.ClearStatus(sta)
		return fmt.Errorf("pwm status %#x", uint32(sta))
	}
	c.ClearComplete()
	if verbose {
		log.Print("sigbox", "info", "transfer complete")
	}
	return nil
}
