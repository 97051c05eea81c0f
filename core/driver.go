package core

import (
	"errors"

	"tinygo.org/x/drivers/tmc2209"
)

// Microstep mode selection per driver family. The A498x and DRV882x
// families take three mode pins; the TMC2209 is configured over its
// single-wire UART by rewriting CHOPCONF.MRES.

var ErrNoModeMapping = errors.New("driver: no mode mapping for microstep count")

// modePins498x maps a microstep count onto MS1..MS3 levels for the A4988
// class. The family tops out at 16.
var modePins498x = map[uint8][3]bool{
	1:  {false, false, false},
	2:  {true, false, false},
	4:  {false, true, false},
	8:  {true, true, false},
	16: {true, true, true},
}

// modePins882x maps a microstep count onto M0..M2 levels for the
// DRV8824/8825 class.
var modePins882x = map[uint8][3]bool{
	1:  {false, false, false},
	2:  {true, false, false},
	4:  {false, true, false},
	8:  {true, true, false},
	16: {false, false, true},
	32: {true, true, true},
}

// tmcComm is the register channel shared by both TMC2209 drivers; each
// axis answers at its own slave address. Registered by platform code.
var tmcComm tmc2209.RegisterComm

// SetTMCRegisterComm installs the TMC2209 register transport.
func SetTMCRegisterComm(c tmc2209.RegisterComm) {
	tmcComm = c
}

// ConfigureStepMode selects the microstep mode for an axis and records
// the resulting step geometry. High-speed mode divides the configured
// microstep count by the gear ratio, multiplying the angle per step by 8.
// Only legal while the axis is stopped.
func ConfigureStepMode(ax Axis, highSpeed bool) error {
	a := axes[ax]
	usteps := conf.Microsteps
	if highSpeed {
		usteps /= HighSpeedStepRatio
		if usteps == 0 {
			usteps = 1
		}
	}

	switch conf.DriverFamily {
	case FamilyA498x:
		if err := setModePins(a, modePins498x, usteps); err != nil {
			return err
		}
	case FamilyDRV882x:
		if err := setModePins(a, modePins882x, usteps); err != nil {
			return err
		}
	case FamilyTMC2209:
		if err := setTMCMicrosteps(ax, usteps); err != nil {
			return err
		}
	default:
		return ErrBadDriver
	}

	a.HighSpeed = highSpeed
	a.applyDirection()
	return nil
}

func setModePins(a *MotorAxis, table map[uint8][3]bool, usteps uint8) error {
	levels, ok := table[usteps]
	if !ok {
		return ErrNoModeMapping
	}
	g := MustGPIO()
	for i, pin := range a.pins.Mode {
		if err := g.SetPin(pin, levels[i]); err != nil {
			return err
		}
	}
	return nil
}

// setTMCMicrosteps rewrites CHOPCONF with the MRES field for the
// requested count. MRES encodes 256/usteps as a left-shift exponent:
// 8 selects full steps, 0 selects 256 microsteps.
func setTMCMicrosteps(ax Axis, usteps uint8) error {
	if tmcComm == nil {
		return errors.New("driver: TMC register transport not configured")
	}
	mres := uint32(8)
	for s := usteps; s > 1; s >>= 1 {
		mres--
	}

	cc := tmc2209.NewChopconf()
	cc.Toff = 3
	cc.Tbl = 2
	cc.Intpol = 1
	cc.Mres = mres
	return tmcComm.WriteRegister(tmc2209.CHOPCONF, cc.Pack(), uint8(ax))
}
