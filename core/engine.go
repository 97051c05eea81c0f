package core

// The step engine. Each axis owns one timer in CTC mode whose period is
// reloaded from the dithered table; captureEvent is the interrupt body.
// A step is two phases, rise then fall, each lasting CurrentSpeed capture
// events, so a complete step takes 2·CurrentSpeed events at a period
// averaging the table mean.

// captureEvent fires once per timer period. It counts down to the next
// pulse edge, advances the dithered period cursor, and on falling edges
// settles position, goto latching and the stop decision; on rising edges
// it walks the acceleration table toward TargetSpeed.
func (a *MotorAxis) captureEvent(t *Timer) uint8 {
	a.IRQToNext--
	if a.IRQToNext == 0 {
		a.DistributionSegment = (a.DistributionSegment + 1) & (DistributionLength - 1)
		a.IRQToNext = a.CurrentSpeed
		if a.StepHigh {
			if a.stepFall() {
				return SF_DONE
			}
		} else {
			a.stepRise()
		}
	}
	t.WakeTime += uint32(a.Periods[a.DistributionSegment])
	return SF_RESCHEDULE
}

// stepFall completes a pulse: position advances, goto state is settled,
// and the axis disarms when motion has ended. Returns true when the timer
// must stop.
func (a *MotorAxis) stepFall() bool {
	g := MustGPIO()
	_ = g.SetPin(a.pins.Step, false)
	a.StepHigh = false
	a.JVal = (a.JVal + uint32(int32(a.StepDir))) & PositionMask

	if a.GotoRunning {
		if !a.GotoDecelerating && a.JVal == a.GotoTarget {
			// From here the remaining distance equals the ramp-down
			// length; force the walk downward.
			a.GotoDecelerating = true
			a.TargetSpeed = a.StopSpeed + 1
		}
		if a.GotoDecelerating && a.JVal == a.GotoFinal {
			a.halt()
			return true
		}
		return false
	}

	if a.CurrentSpeed > a.StopSpeed {
		a.halt()
		return true
	}
	return false
}

// stepRise starts the next pulse and runs the accel/decel walk.
func (a *MotorAxis) stepRise() {
	g := MustGPIO()
	_ = g.SetPin(a.pins.Step, true)
	a.StepHigh = true

	if a.AccelRepeatsLeft > 0 {
		a.AccelRepeatsLeft--
		return
	}

	cur := a.CurrentSpeed
	tgt := a.TargetSpeed
	switch {
	case cur > tgt: // too slow, climb the table
		if a.AccelIndex >= AccelTableLength-1 {
			cur = tgt
		} else {
			a.AccelIndex++
			s := a.Accel[a.AccelIndex].Speed
			if s <= tgt {
				// The next rung is past the target; snapping here keeps
				// the cruise speed from being overshot.
				cur = tgt
			} else {
				cur = s
				a.AccelRepeatsLeft = a.Accel.dwellPulses(a.AccelIndex, a.HighSpeed)
			}
		}
	case cur < tgt: // too fast, descend the table
		if a.AccelIndex == 0 {
			cur = tgt
		} else {
			a.AccelIndex--
			s := a.Accel[a.AccelIndex].Speed
			if s >= tgt {
				cur = tgt
			} else {
				cur = s
				a.AccelRepeatsLeft = a.Accel.dwellPulses(a.AccelIndex, a.HighSpeed)
			}
		}
	}
	a.CurrentSpeed = cur
}

// halt marks the axis idle. The caller stops the timer by returning
// SF_DONE; the emergency path cancels it explicitly.
func (a *MotorAxis) halt() {
	a.Stopped = true
	a.GotoRunning = false
	a.GotoDecelerating = false
}
