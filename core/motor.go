package core

// Foreground motor controller. Every mutation of fields the capture event
// handler also touches happens inside a disableInterrupts section, which
// on hardware masks the axis capture interrupt.

// MotorEnable energises the driver for an axis. The enable pin is active
// low. The capture timer stays disarmed until a movement starts.
func MotorEnable(ax Axis) {
	a := axes[ax]
	_ = MustGPIO().SetPin(a.pins.Enable, false)
	a.Enabled = true
}

// MotorDisable cuts driver power. Any running motion loses its steps, so
// callers stop the axis first.
func MotorDisable(ax Axis) {
	a := axes[ax]
	_ = MustGPIO().SetPin(a.pins.Enable, true)
	a.Enabled = false
}

// MotorSlew starts continuous motion toward the buffered target period.
// No endpoint: the axis runs until stopped or retargeted.
func MotorSlew(ax Axis) {
	a := axes[ax]
	a.GotoRunning = false
	a.GotoDecelerating = false
	MotorStart(ax, a.CmdIVal)
}

// MotorGoto plans and starts a bounded move of HVal steps. The
// deceleration start point is back-computed from the accel table so the
// ramp-down lands exactly on the commanded endpoint; for short moves the
// ramp is clamped to half the distance and the engine crawls the
// remainder at just above stop speed.
func MotorGoto(ax Axis) {
	a := axes[ax]
	cruise := uint16(conf.Axis[ax].NormalGotoSpeed)

	sd := a.stepSize()
	h := a.HVal & PositionMask
	if a.HighSpeed {
		// Steps come in units of 8; keep the endpoint reachable.
		h &^= HighSpeedStepRatio - 1
	}
	if h == 0 {
		return
	}

	decel := a.Accel.DecelerationPulses(cruise, a.HighSpeed) * sd
	if decel > h/2 {
		decel = (h / 2) &^ (sd - 1)
		if decel < sd {
			decel = sd
		}
	}

	delta := h
	if a.Dir == DirReverse {
		delta = -h & PositionMask
	}
	rampIn := h - decel
	if a.Dir == DirReverse {
		rampIn = -rampIn & PositionMask
	}

	state := disableInterrupts()
	a.GotoTarget = (a.JVal + rampIn) & PositionMask
	a.GotoFinal = (a.JVal + delta) & PositionMask
	a.GotoDecelerating = false
	a.GotoRunning = true
	restoreInterrupts(state)

	DebugPrintln("[MOTOR] goto axis " + itoa(int(ax)) + " dist " + utoa(h) + " decel " + utoa(decel))
	MotorStart(ax, cruise)
}

// MotorStart arms or retargets the engine. From standstill the axis
// begins at stop speed with the accel walk reset; while running, the
// current speed is kept when it is already faster than MinSpeed so the
// ramp continues without a discontinuity.
func MotorStart(ax Axis, target uint16) {
	a := axes[ax]

	stopSpeed := target
	if stopSpeed < a.MinSpeed {
		stopSpeed = a.MinSpeed
	}

	startSpeed := stopSpeed
	if !a.Stopped && a.CurrentSpeed < a.MinSpeed {
		startSpeed = a.CurrentSpeed
	}

	state := disableInterrupts()
	a.TargetSpeed = target
	a.CurrentSpeed = startSpeed
	a.StopSpeed = stopSpeed
	a.applyDirection()

	if a.Stopped {
		a.AccelIndex = 0
		a.AccelRepeatsLeft = uint16(a.Accel[0].Repeats)
		a.DistributionSegment = 0
		a.IRQToNext = 1
		a.StepHigh = false
		a.Stopped = false
		a.CaptureTimer.WakeTime = GetTime() + uint32(a.Periods[0])
		insertTimer(&a.CaptureTimer)
	}
	restoreInterrupts(state)
}

// MotorStop ends motion. Emergency drops the timer immediately and clears
// all goto state; a graceful stop raises the target above stop speed so
// the engine ramps down through the accel table and disarms itself.
func MotorStop(ax Axis, emergency bool) {
	a := axes[ax]
	state := disableInterrupts()

	a.GotoRunning = false
	a.GotoDecelerating = false
	a.GotoEn = false
	a.ReadyTo = ReadyIdle

	if emergency {
		CancelTimer(&a.CaptureTimer)
		_ = MustGPIO().SetPin(a.pins.Step, false)
		a.StepHigh = false
		a.Stopped = true
	} else if !a.Stopped {
		a.TargetSpeed = a.StopSpeed + 1
	}
	restoreInterrupts(state)
}

// applyDirection drives the direction pin and derives the signed step
// delta. Must run before the next rising edge; callers hold the critical
// section.
func (a *MotorAxis) applyDirection() {
	forward := a.Dir == DirForward
	if a.reverse {
		forward = !forward
	}
	_ = MustGPIO().SetPin(a.pins.Dir, !forward)

	mag := int8(1)
	if a.HighSpeed {
		mag = HighSpeedStepRatio
	}
	if forward {
		a.StepDir = mag
	} else {
		a.StepDir = -mag
	}
}
