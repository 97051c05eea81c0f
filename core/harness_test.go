package core

import (
	"testing"

	"eqstep/synta"
)

// Test harness: an in-memory pin bank and EEPROM stand in for the board,
// and the simulated clock is advanced straight to each capture event so
// the engine can be driven interrupt by interrupt.

type testGPIO struct {
	mode     map[GPIOPin]uint8 // 0 unset, 1 out, 2 pull-up, 3 pull-down
	level    map[GPIOPin]bool
	external map[GPIOPin]bool
}

func newTestGPIO() *testGPIO {
	return &testGPIO{
		mode:     map[GPIOPin]uint8{},
		level:    map[GPIOPin]bool{},
		external: map[GPIOPin]bool{},
	}
}

func (g *testGPIO) ConfigureOutput(p GPIOPin) error        { g.mode[p] = 1; return nil }
func (g *testGPIO) ConfigureInputPullUp(p GPIOPin) error   { g.mode[p] = 2; return nil }
func (g *testGPIO) ConfigureInputPullDown(p GPIOPin) error { g.mode[p] = 3; return nil }

func (g *testGPIO) SetPin(p GPIOPin, value bool) error {
	g.level[p] = value
	return nil
}

func (g *testGPIO) ReadPin(p GPIOPin) bool {
	if v, ok := g.external[p]; ok {
		return v
	}
	switch g.mode[p] {
	case 1:
		return g.level[p]
	case 2:
		return true
	default:
		return false
	}
}

func (g *testGPIO) drive(p GPIOPin, level bool) { g.external[p] = level }
func (g *testGPIO) release(p GPIOPin)           { delete(g.external, p) }

type testEEPROM struct {
	data [1024]byte
}

func newTestEEPROM() *testEEPROM {
	e := &testEEPROM{}
	for i := range e.data {
		e.data[i] = 0xFF
	}
	return e
}

func (e *testEEPROM) ReadByte(addr uint16) byte         { return e.data[addr] }
func (e *testEEPROM) WriteByte(addr uint16, value byte) { e.data[addr] = value }
func (e *testEEPROM) Sync() error                       { return nil }

type testWatchdog struct {
	armed     bool
	timeoutMs uint32
}

func (w *testWatchdog) Arm(timeoutMs uint32) {
	w.armed = true
	w.timeoutMs = timeoutMs
}

type testRig struct {
	gpio     *testGPIO
	eeprom   *testEEPROM
	watchdog *testWatchdog
	sup      *Supervisor
}

// newTestRig resets all package state and boots the core with cfg
// already valid (not in programming mode).
func newTestRig(t *testing.T, cfg *Config) *testRig {
	t.Helper()

	timerList = nil
	currentTime = 0
	timerPastErrors = 0
	SetTime(0)

	r := &testRig{
		gpio:     newTestGPIO(),
		eeprom:   newTestEEPROM(),
		watchdog: &testWatchdog{},
	}
	SetGPIODriver(r.gpio)
	SetEEPROMDriver(r.eeprom)
	SetWatchdogDriver(r.watchdog)

	if err := ConfigureIO(); err != nil {
		t.Fatalf("ConfigureIO: %v", err)
	}
	SetActiveConfig(cfg)
	InitMotion(cfg)
	InitSyntaCommands()
	SetProgrammingMode(false)
	r.sup = NewSupervisor()
	return r
}

// issue feeds one ASCII command through the scanner and decoder and
// returns the response as a string.
func (r *testRig) issue(t *testing.T, cmd string) string {
	t.Helper()
	var sc synta.Scanner
	for i := 0; i < len(cmd); i++ {
		pkt, bad := sc.Feed(cmd[i])
		if bad {
			t.Fatalf("command %q rejected by scanner", cmd)
		}
		if pkt != nil {
			return string(ProcessPacket(pkt))
		}
	}
	pkt, bad := sc.Feed('\r')
	if bad {
		t.Fatalf("command %q rejected by scanner", cmd)
	}
	if pkt == nil {
		t.Fatalf("command %q did not complete", cmd)
	}
	return string(ProcessPacket(pkt))
}

// fire advances the clock to the next scheduled wake n times, dispatching
// every capture event due at each one (both axes fire together when their
// wakes coincide).
func (r *testRig) fire(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		w, ok := NextWake()
		if !ok {
			t.Fatalf("no timer scheduled after %d of %d events", i, n)
		}
		SetTime(w)
		ProcessTimers()
	}
}

// runUntilStopped drives the axis until the engine disarms it.
func (r *testRig) runUntilStopped(t *testing.T, ax Axis, maxEvents int) int {
	t.Helper()
	a := GetAxis(ax)
	for i := 0; i < maxEvents; i++ {
		if a.Stopped {
			return i
		}
		w, ok := NextWake()
		if !ok {
			t.Fatalf("axis not stopped but no timer scheduled")
		}
		SetTime(w)
		ProcessTimers()
		r.sup.Poll()
	}
	t.Fatalf("axis still running after %d events", maxEvents)
	return 0
}

// riseSpeeds fires events until the axis stops or limit is hit,
// recording CurrentSpeed at every rising step edge.
func (r *testRig) riseSpeeds(t *testing.T, ax Axis, limit int) []uint16 {
	t.Helper()
	a := GetAxis(ax)
	var speeds []uint16
	prevHigh := a.StepHigh
	for i := 0; i < limit && !a.Stopped; i++ {
		w, ok := NextWake()
		if !ok {
			break
		}
		SetTime(w)
		ProcessTimers()
		if a.StepHigh && !prevHigh {
			speeds = append(speeds, a.CurrentSpeed)
		}
		prevHigh = a.StepHigh
	}
	return speeds
}

// testConfig is the base configuration the engine scenarios use.
func testConfig() *Config {
	cfg := DefaultConfig()
	for ax := range cfg.Axis {
		cfg.Axis[ax].BVal = 40000
		cfg.Axis[ax].SiderealIVal = 1000
		cfg.Axis[ax].NormalGotoSpeed = 16
	}
	return cfg
}
