// Package sim is the hosted simulation board: in-memory GPIO with
// externally drivable inputs, a file-backed EEPROM image and a recording
// watchdog. It stands in for the AVR pin and EEPROM layer so the motion
// core runs unmodified on a workstation.
package sim

import (
	"errors"
	"os"

	"eqstep/core"
)

type pinMode uint8

const (
	modeUnconfigured pinMode = iota
	modeOutput
	modeInputPullUp
	modeInputPullDown
)

type pinState struct {
	mode     pinMode
	level    bool  // last driven output level
	external *bool // level forced by the attached fixture, if any
}

// Board implements core.GPIODriver.
type Board struct {
	pins       map[core.GPIOPin]*pinState
	st4Handler func()
}

// NewBoard creates an empty board. Pins materialise on first configure.
func NewBoard() *Board {
	return &Board{pins: map[core.GPIOPin]*pinState{}}
}

func (b *Board) pin(p core.GPIOPin) *pinState {
	ps, ok := b.pins[p]
	if !ok {
		ps = &pinState{}
		b.pins[p] = ps
	}
	return ps
}

func (b *Board) ConfigureOutput(p core.GPIOPin) error {
	b.pin(p).mode = modeOutput
	return nil
}

func (b *Board) ConfigureInputPullUp(p core.GPIOPin) error {
	b.pin(p).mode = modeInputPullUp
	return nil
}

func (b *Board) ConfigureInputPullDown(p core.GPIOPin) error {
	b.pin(p).mode = modeInputPullDown
	return nil
}

func (b *Board) SetPin(p core.GPIOPin, value bool) error {
	ps := b.pin(p)
	if ps.mode != modeOutput {
		return errors.New("sim: pin not configured as output")
	}
	ps.level = value
	return nil
}

func (b *Board) ReadPin(p core.GPIOPin) bool {
	ps := b.pin(p)
	if ps.external != nil {
		return *ps.external
	}
	switch ps.mode {
	case modeOutput:
		return ps.level
	case modeInputPullUp:
		return true
	default:
		return false
	}
}

// SetST4Handler wires the pin-change callback invoked when an ST4 input
// is driven or released.
func (b *Board) SetST4Handler(h func()) {
	b.st4Handler = h
}

// Drive forces an input pin to a level, as the attached hand controller
// or guide camera would.
func (b *Board) Drive(p core.GPIOPin, level bool) {
	l := level
	b.pin(p).external = &l
	b.notifyST4(p)
}

// Release lets a driven pin float back to its pull level.
func (b *Board) Release(p core.GPIOPin) {
	b.pin(p).external = nil
	b.notifyST4(p)
}

// Press grounds an active-low ST4 button.
func (b *Board) Press(p core.GPIOPin) {
	b.Drive(p, false)
}

func (b *Board) notifyST4(p core.GPIOPin) {
	if b.st4Handler == nil {
		return
	}
	for ax := range core.ST4Pins {
		for _, st4 := range core.ST4Pins[ax] {
			if p == st4 {
				b.st4Handler()
				return
			}
		}
	}
}

// OutputLevel reports the last driven level of an output pin, for
// assertions and the status display.
func (b *Board) OutputLevel(p core.GPIOPin) bool {
	return b.pin(p).level
}

// EEPROM is a file-backed persistent store. With an empty path it lives
// purely in memory, which is what the tests use.
type EEPROM struct {
	data []byte
	path string
}

const eepromSize = 1024

// NewEEPROM loads the image at path, or a blank (erased, 0xFF) image if
// the file does not exist or path is empty.
func NewEEPROM(path string) (*EEPROM, error) {
	e := &EEPROM{path: path}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			e.data = data
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if len(e.data) < eepromSize {
		blank := make([]byte, eepromSize)
		for i := range blank {
			blank[i] = 0xFF
		}
		copy(blank, e.data)
		e.data = blank
	}
	return e, nil
}

func (e *EEPROM) ReadByte(addr uint16) byte {
	if int(addr) >= len(e.data) {
		return 0xFF
	}
	return e.data[addr]
}

func (e *EEPROM) WriteByte(addr uint16, value byte) {
	if int(addr) < len(e.data) {
		e.data[addr] = value
	}
}

func (e *EEPROM) Sync() error {
	if e.path == "" {
		return nil
	}
	return os.WriteFile(e.path, e.data, 0o644)
}

// Watchdog records the arm request the R command issues. The hosted
// simulator reports it instead of resetting.
type Watchdog struct {
	Armed     bool
	TimeoutMs uint32
}

func (w *Watchdog) Arm(timeoutMs uint32) {
	w.Armed = true
	w.TimeoutMs = timeoutMs
}

// TMCRecorder is a register transport that records TMC2209 writes, for
// boards whose drivers are simulated.
type TMCRecorder struct {
	Writes []TMCWrite
}

// TMCWrite is one recorded register write.
type TMCWrite struct {
	Register uint8
	Value    uint32
	Driver   uint8
}

func (r *TMCRecorder) WriteRegister(register uint8, value uint32, driverIndex uint8) error {
	r.Writes = append(r.Writes, TMCWrite{Register: register, Value: value, Driver: driverIndex})
	return nil
}

func (r *TMCRecorder) ReadRegister(register uint8, driverIndex uint8) (uint32, error) {
	return 0, nil
}
