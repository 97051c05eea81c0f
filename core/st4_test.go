package core

import "testing"

func pressST4(r *testRig, pin GPIOPin) {
	r.gpio.drive(pin, false) // buttons are active low
	ST4PinChange()
}

func releaseST4(r *testRig, pin GPIOPin) {
	r.gpio.release(pin)
	ST4PinChange()
}

// startTracking puts RA into a sidereal slew the way the basic
// hand-controller mode does.
func startTracking(r *testRig, t *testing.T) {
	t.Helper()
	r.issue(t, ":G101")
	r.issue(t, ":J1")
	r.sup.Poll()
	r.fire(t, 50000) // settle at cruise
}

func TestST4GuidesRARate(t *testing.T) {
	r := newTestRig(t, testConfig())
	startTracking(r, t)
	a := GetAxis(RA)

	pressST4(r, ST4Pins[RA][0]) // RA+
	if a.TargetSpeed != 800 {
		t.Errorf("RA+ target = %d, want 800 (1.25× sidereal)", a.TargetSpeed)
	}
	if a.Dir != DirForward {
		t.Error("guiding must not flip the RA direction")
	}

	releaseST4(r, ST4Pins[RA][0])
	if a.TargetSpeed != 1000 {
		t.Errorf("release target = %d, want sidereal 1000", a.TargetSpeed)
	}

	pressST4(r, ST4Pins[RA][1]) // RA-
	if a.TargetSpeed != 1333 {
		t.Errorf("RA- target = %d, want 1333 (0.75× sidereal)", a.TargetSpeed)
	}
	if a.StopSpeed < 1333 {
		t.Errorf("StopSpeed = %d fell below the guide target; axis would stop", a.StopSpeed)
	}

	// The axis must keep running across the whole exchange.
	if a.Stopped {
		t.Fatal("RA stopped while guiding")
	}
}

func TestST4NudgesDC(t *testing.T) {
	r := newTestRig(t, testConfig())
	startTracking(r, t)
	dc := GetAxis(DC)

	pressST4(r, ST4Pins[DC][0]) // DC+
	if dc.Stopped {
		t.Fatal("DC did not start")
	}
	if dc.TargetSpeed != 4000 {
		t.Errorf("DC target = %d, want 4000 (0.25× sidereal)", dc.TargetSpeed)
	}
	if dc.Dir != DirForward {
		t.Error("DC direction should be forward")
	}

	start := dc.JVal
	r.fire(t, 30000)
	if dc.JVal == start {
		t.Error("DC did not move")
	}

	releaseST4(r, ST4Pins[DC][0])
	r.runUntilStopped(t, DC, 500000)
}

func TestST4ReversalWaitsForStop(t *testing.T) {
	r := newTestRig(t, testConfig())
	startTracking(r, t)
	dc := GetAxis(DC)

	pressST4(r, ST4Pins[DC][0])
	r.fire(t, 20000)
	if dc.Stopped {
		t.Fatal("DC should be creeping")
	}

	// Opposite button while still moving: ramp down, do not reverse
	// under power.
	r.gpio.release(ST4Pins[DC][0])
	pressST4(r, ST4Pins[DC][1])
	if dc.Dir != DirForward {
		t.Error("direction flipped on a moving axis")
	}
	r.runUntilStopped(t, DC, 500000)
}

// Property: ST4 input is inert while a goto is in flight on either axis.
func TestST4InertDuringGoto(t *testing.T) {
	r := newTestRig(t, testConfig())

	r.issue(t, ":G200")
	r.issue(t, ":H2004000")
	r.issue(t, ":J2")
	r.sup.Poll()

	dc := GetAxis(DC)
	if !dc.GotoRunning {
		t.Fatal("goto did not start")
	}

	ra := GetAxis(RA)
	raTarget := ra.TargetSpeed
	dcTarget := dc.TargetSpeed

	pressST4(r, ST4Pins[RA][0])
	pressST4(r, ST4Pins[DC][1])

	if ra.TargetSpeed != raTarget || !ra.Stopped {
		t.Error("RA state changed by ST4 during goto")
	}
	if dc.TargetSpeed != dcTarget || dc.Dir != DirForward {
		t.Error("DC goto corrupted by ST4")
	}
}
