package core

// Mode supervisor: the main-loop dispatcher. It decides at startup (and
// periodically, until a standalone mode latches) whether the device on
// the ST4 port is EQMOD over serial, a basic direction-button hand
// controller, or an advanced controller speaking Synta over SPI; and it
// consumes deferred movement arms once the target axis is quiescent.

// HCMode is the elected controller mode.
type HCMode uint8

const (
	ModeEQMOD HCMode = iota
	ModeBasic
	ModeAdvanced
)

// probeInterval is how many main-loop iterations pass between probes of
// the hand-controller detection line.
const probeInterval = 65536

// Supervisor owns the main-loop state.
type Supervisor struct {
	mode         HCMode
	standalone   bool
	probeCounter uint32

	// Transport switches requested by a standalone election; platform
	// code observes these after Poll returns.
	SerialDisabled bool
	SPIEnabled     bool
}

// NewSupervisor boots the dispatcher in EQMOD mode.
func NewSupervisor() *Supervisor {
	return &Supervisor{mode: ModeEQMOD}
}

// Mode returns the currently elected controller mode.
func (s *Supervisor) Mode() HCMode {
	return s.mode
}

// Poll runs one main-loop iteration: dispatch due capture events, probe
// the detection line when the counter wraps, and service deferred arms.
func (s *Supervisor) Poll() {
	ProcessTimers()

	s.probeCounter++
	if s.probeCounter%probeInterval == 0 && !s.standalone {
		s.electMode(ProbeHandController())
	}

	for ax := Axis(0); ax < NumAxes; ax++ {
		s.serviceReady(ax)
	}
}

// ForceProbe runs the detection immediately. Boot calls this once so a
// standalone controller is live before the first movement command.
func (s *Supervisor) ForceProbe() {
	if !s.standalone {
		s.electMode(ProbeHandController())
	}
}

// ProbeHandController three-states the shared IRQ line: drive the pull
// down, then up, and watch whether the line follows. A floating line
// follows both pulls (nothing attached: EQMOD over serial); an external
// drive pins it low (basic controller) or high (advanced controller).
func ProbeHandController() HCMode {
	g := MustGPIO()

	_ = g.ConfigureInputPullDown(ST4IRQPin)
	probeSettle()
	lowRead := g.ReadPin(ST4IRQPin)

	_ = g.ConfigureInputPullUp(ST4IRQPin)
	probeSettle()
	highRead := g.ReadPin(ST4IRQPin)

	switch {
	case !lowRead && highRead:
		return ModeEQMOD
	case !lowRead && !highRead:
		return ModeBasic
	default:
		return ModeAdvanced
	}
}

// probeSettle burns a few cycles so the line reaches the pull level
// before it is sampled.
func probeSettle() {
	for i := 0; i < 8; i++ {
		_ = MustGPIO().ReadPin(ST4IRQPin)
	}
}

// electMode latches a standalone mode. Basic drops the serial link and
// starts sidereal tracking on RA; advanced keeps the Synta decoder but
// moves it onto SPI. Either way both position counters reset to
// mid-range so the controller starts from a known origin.
func (s *Supervisor) electMode(mode HCMode) {
	s.mode = mode
	if mode == ModeEQMOD {
		return
	}
	if mode == ModeAdvanced && !conf.AllowAdvancedHC {
		s.mode = ModeEQMOD
		return
	}
	s.standalone = true

	state := disableInterrupts()
	axes[RA].JVal = PositionHome
	axes[DC].JVal = PositionHome
	restoreInterrupts(state)

	switch mode {
	case ModeBasic:
		s.SerialDisabled = true
		MotorEnable(RA)
		a := axes[RA]
		a.Dir = DirForward
		a.CmdIVal = conf.Axis[RA].SiderealIVal
		if err := ConfigureStepMode(RA, false); err == nil {
			MotorSlew(RA)
			a.ReadyTo = ReadySlewing
		}
	case ModeAdvanced:
		s.SPIEnabled = true
	}
}

// serviceReady consumes a deferred J once the axis is quiescent: the
// microstep mode and step geometry are reconfigured from the buffered
// GVal on a stopped motor, then the slew or goto starts. A slew leaves
// the axis retargetable; a goto locks it until the move completes.
func (s *Supervisor) serviceReady(ax Axis) {
	a := axes[ax]
	if a.ReadyTo != ReadyArmed || !a.Stopped {
		return
	}

	highSpeed := a.GVal > 2 && conf.AllowHighSpeed
	if err := ConfigureStepMode(ax, highSpeed); err != nil {
		DebugPrintln("[SUPER] step mode: " + err.Error())
		a.ReadyTo = ReadyIdle
		return
	}

	if a.GVal&1 == 1 {
		MotorSlew(ax)
		a.ReadyTo = ReadySlewing
	} else {
		MotorGoto(ax)
		a.ReadyTo = ReadyIdle
	}
}
