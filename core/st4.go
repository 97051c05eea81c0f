package core

// ST4 autoguide port. Four active-low button inputs adjust the tracking
// rate: RA guides by speeding to 1.25× or slowing to 0.75× sidereal while
// always running forward, DC nudges at 0.25× sidereal in the pressed
// direction and parks when released. A goto in flight on either axis
// makes the port inert so a guide pulse cannot corrupt a planned move.

// ST4PinChange is the pin-change handler. Platform code wires it to the
// ST4 input bank; the test harness calls it directly.
func ST4PinChange() {
	if axes[RA] == nil || axes[RA].GotoRunning || axes[DC].GotoRunning {
		return
	}

	g := MustGPIO()
	raPlus := !g.ReadPin(ST4Pins[RA][0])
	raMinus := !g.ReadPin(ST4Pins[RA][1])
	dcPlus := !g.ReadPin(ST4Pins[DC][0])
	dcMinus := !g.ReadPin(ST4Pins[DC][1])

	sidereal := conf.Axis[RA].SiderealIVal

	// RA: rate correction around sidereal, direction never flips.
	var raIVal uint16
	switch {
	case raPlus && !raMinus:
		raIVal = sidereal - sidereal/5 // 1.25× rate
	case raMinus && !raPlus:
		raIVal = sidereal + sidereal/3 // 0.75× rate
	default:
		raIVal = sidereal
	}
	guideRetarget(RA, raIVal, DirForward)

	// DC: creep in the pressed direction, stop when released.
	switch {
	case dcPlus && !dcMinus:
		guideRetarget(DC, conf.Axis[DC].SiderealIVal*4, DirForward)
	case dcMinus && !dcPlus:
		guideRetarget(DC, conf.Axis[DC].SiderealIVal*4, DirReverse)
	default:
		MotorStop(DC, false)
	}
}

// guideRetarget points an axis at a new guide rate. A stopped axis is
// started; a running one has its target swapped in place, with StopSpeed
// raised so the engine does not decelerate to a halt between updates.
func guideRetarget(ax Axis, ival uint16, dir uint8) {
	a := axes[ax]

	if !a.Stopped && a.Dir != dir {
		// Direction reversal needs a quiescent motor; ramp down and let
		// the next pin change restart the axis the other way.
		MotorStop(ax, false)
		return
	}

	a.Dir = dir
	if a.Stopped {
		a.CmdIVal = ival
		MotorSlew(ax)
		return
	}

	state := disableInterrupts()
	a.TargetSpeed = ival
	if a.StopSpeed < ival {
		a.StopSpeed = ival
	}
	restoreInterrupts(state)
}
