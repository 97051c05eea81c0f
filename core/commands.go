package core

import (
	"eqstep/synta"
)

// Synta command decoder: a stateless translation from parsed command
// packets to motor controller and configuration calls. Handlers return
// the response payload, or a protocol error code.

const errNone = -1

// SyntaHandler processes one command for one axis. It returns the
// response payload (nil for a bare acknowledgement) and a protocol error
// code, errNone on success.
type SyntaHandler func(ax Axis, a *MotorAxis, payload []byte) ([]byte, int)

type syntaCommand struct {
	name    string
	motion  bool // refused while still in programming mode
	handler SyntaHandler
}

var (
	syntaRegistry = map[byte]*syntaCommand{}

	// programmingMode gates motion commands until the configuration
	// store is valid. Boot with a bad magic lands here.
	programmingMode bool
)

// InProgrammingMode reports whether motion commands are gated off.
func InProgrammingMode() bool {
	return programmingMode
}

// SetProgrammingMode is used by boot and by tests.
func SetProgrammingMode(on bool) {
	programmingMode = on
}

func registerSynta(letter byte, name string, motion bool, h SyntaHandler) {
	syntaRegistry[letter] = &syntaCommand{name: name, motion: motion, handler: h}
}

// InitSyntaCommands registers the full command set.
func InitSyntaCommands() {
	if len(syntaRegistry) > 0 {
		return
	}

	// Read-only queries
	registerSynta('e', "get_version", false, cmdGetVersion)
	registerSynta('a', "get_steps_per_rev", false, cmdGetAVal)
	registerSynta('b', "get_sidereal_divisor", false, cmdGetBVal)
	registerSynta('s', "get_steps_per_worm_rev", false, cmdGetSVal)
	registerSynta('g', "get_highspeed_ratio", false, cmdGetGVal)
	registerSynta('f', "get_axis_status", false, cmdGetStatus)
	registerSynta('j', "get_position", false, cmdGetPosition)

	// Motion
	registerSynta('E', "set_position", true, cmdSetPosition)
	registerSynta('G', "set_motion_mode", true, cmdSetMotionMode)
	registerSynta('H', "set_goto_distance", true, cmdSetGotoDistance)
	registerSynta('I', "set_target_period", true, cmdSetTargetPeriod)
	registerSynta('J', "arm_movement", true, cmdArmMovement)
	registerSynta('K', "stop", false, cmdStop)
	registerSynta('L', "emergency_stop", false, cmdEmergencyStop)
	registerSynta('F', "enable_driver", true, cmdEnableDriver)
	registerSynta('R', "reset_mcu", false, cmdResetMCU)

	// Programming / configuration passthrough
	registerSynta('A', "set_steps_per_rev", false, cmdSetAVal)
	registerSynta('B', "set_sidereal_divisor", false, cmdSetBVal)
	registerSynta('S', "set_steps_per_worm_rev", false, cmdSetSVal)
	registerSynta('n', "set_sidereal_period", false, cmdSetSiderealIVal)
	registerSynta('d', "set_goto_speed", false, cmdSetGotoSpeed)
	registerSynta('D', "set_reverse", false, cmdSetReverse)
	registerSynta('Y', "set_microsteps", false, cmdSetMicrosteps)
	registerSynta('W', "set_feature", false, cmdSetFeature)
	registerSynta('C', "set_accel_speed", false, cmdSetAccelSpeed)
	registerSynta('c', "set_accel_repeats", false, cmdSetAccelRepeats)
	registerSynta('z', "get_accel_entry", false, cmdGetAccelEntry)
	registerSynta('T', "store_config", false, cmdStoreConfig)
	registerSynta('q', "query_programming", false, cmdQueryProgramming)
	registerSynta('O', "leave_programming", false, cmdLeaveProgramming)
}

// ProcessPacket dispatches one parsed packet and returns the framed
// response bytes.
func ProcessPacket(pkt *synta.Packet) []byte {
	cmd, ok := syntaRegistry[pkt.Command]
	if !ok {
		return synta.ReplyError(synta.ErrUnknownCommand)
	}
	if cmd.motion && programmingMode {
		return synta.ReplyError(synta.ErrNotInitialized)
	}

	var targets []Axis
	switch pkt.Axis {
	case synta.AxisRA:
		targets = []Axis{RA}
	case synta.AxisDC:
		targets = []Axis{DC}
	case synta.AxisBoth:
		targets = []Axis{RA, DC}
	}

	var resp []byte
	for _, ax := range targets {
		payload, code := cmd.handler(ax, axes[ax], pkt.Payload)
		if code != errNone {
			return synta.ReplyError(uint8(code))
		}
		resp = payload
	}
	if resp == nil {
		return synta.ReplyEmpty()
	}
	return synta.Reply(resp)
}

func bothStopped() bool {
	return axes[RA].Stopped && axes[DC].Stopped
}

// --- queries ---

func cmdGetVersion(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	return synta.FormatValue(synta.Version, 3), errNone
}

func cmdGetAVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	return synta.FormatValue(conf.Axis[ax].AVal, 3), errNone
}

// cmdGetBVal reports the sidereal divisor. Outside programming mode the
// value is nudged by (b·(2s+1))/(2s) — a workaround for rounding inside
// a third-party ASCOM driver that must be preserved bit-exactly.
func cmdGetBVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	b := conf.Axis[ax].BVal
	if !programmingMode {
		s := uint64(conf.Axis[ax].SiderealIVal)
		b = uint32(uint64(b) * (2*s + 1) / (2 * s))
	}
	return synta.FormatValue(b, 3), errNone
}

func cmdGetSVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	return synta.FormatValue(conf.Axis[ax].SVal, 3), errNone
}

func cmdGetGVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	return synta.FormatValue(HighSpeedStepRatio, 1), errNone
}

// cmdGetStatus composes the three-nibble axis status word:
//
//	n0: bit0 goto mode, bit1 reverse, bit2 high-speed
//	n1: bit0 running
//	n2: bit0 energised, bit1 initialised
func cmdGetStatus(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	var st uint32
	if a.GotoEn {
		st |= 0x001
	}
	if a.Dir == DirReverse {
		st |= 0x002
	}
	if a.HighSpeed {
		st |= 0x004
	}
	if !a.Stopped {
		st |= 0x010
	}
	if a.Enabled {
		st |= 0x100
	}
	if !programmingMode {
		st |= 0x200
	}
	return synta.FormatNibbles(st, 3), errNone
}

func cmdGetPosition(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	state := disableInterrupts()
	j := a.JVal
	restoreInterrupts(state)
	return synta.FormatValue(j, 3), errNone
}

// --- motion ---

func cmdSetPosition(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, err := synta.ParseValue(payload)
	if err != nil {
		return nil, synta.ErrInvalidChar
	}
	if !a.Stopped {
		return nil, synta.ErrNotStopped
	}
	state := disableInterrupts()
	a.JVal = v & PositionMask
	restoreInterrupts(state)
	return nil, errNone
}

// cmdSetMotionMode buffers the G payload: low nibble is the mode value
// (odd = slew, even = goto; above 2 = high-speed), high nibble the
// direction. Consumed on a quiescent motor when J fires.
func cmdSetMotionMode(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	if len(payload) != 2 {
		return nil, synta.ErrInvalidValue
	}
	v, err := synta.ParseNibbles(payload)
	if err != nil {
		return nil, synta.ErrInvalidChar
	}
	a.GVal = uint8(v & 0x0F)
	a.Dir = uint8(v>>4) & 1
	a.ReadyTo = ReadyIdle
	return nil, errNone
}

func cmdSetGotoDistance(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, err := synta.ParseValue(payload)
	if err != nil {
		return nil, synta.ErrInvalidChar
	}
	a.HVal = v & PositionMask
	return nil, errNone
}

// cmdSetTargetPeriod buffers a new target period, clamped so it never
// outruns the fastest accel-table rung. While a slew is live the engine
// retargets immediately and ramps there through the table.
func cmdSetTargetPeriod(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, err := synta.ParseValue(payload)
	if err != nil {
		return nil, synta.ErrInvalidChar
	}
	if v == 0 || v > PeriodMax {
		return nil, synta.ErrInvalidValue
	}
	ival := uint16(v)
	if top := a.Accel.TopSpeed(); ival < top {
		ival = top
	}
	a.CmdIVal = ival
	if a.ReadyTo == ReadySlewing && !a.Stopped {
		MotorStart(ax, ival)
	}
	return nil, errNone
}

func cmdArmMovement(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	if !a.Enabled {
		MotorEnable(ax)
	}
	a.GotoEn = a.GVal&1 == 0
	a.ReadyTo = ReadyArmed
	return nil, errNone
}

func cmdStop(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	MotorStop(ax, false)
	return nil, errNone
}

func cmdEmergencyStop(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	MotorStop(ax, true)
	MotorDisable(ax)
	return nil, errNone
}

func cmdEnableDriver(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	MotorEnable(ax)
	return nil, errNone
}

// cmdResetMCU arms the watchdog for a 120ms bite; the host sees the
// acknowledgement before the reset lands.
func cmdResetMCU(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	if watchdogDriver != nil {
		watchdogDriver.Arm(120)
	}
	return nil, errNone
}

// --- programming / configuration ---

func parseConfigValue(payload []byte) (uint32, int) {
	v, err := synta.ParseValue(payload)
	if err != nil {
		return 0, synta.ErrInvalidChar
	}
	return v, errNone
}

func cmdSetAVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].AVal = v
	return nil, errNone
}

func cmdSetBVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if v == 0 {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].BVal = v
	RebuildRateTable(ax, v)
	return nil, errNone
}

func cmdSetSVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].SVal = v
	return nil, errNone
}

func cmdSetSiderealIVal(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if v < SiderealIValMin || v > SiderealIValMax {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].SiderealIVal = uint16(v)
	return nil, errNone
}

func cmdSetGotoSpeed(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if v == 0 || v > 0xFF {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].NormalGotoSpeed = uint8(v)
	return nil, errNone
}

func cmdSetReverse(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Axis[ax].Reverse = v != 0
	a.reverse = v != 0
	return nil, errNone
}

func cmdSetMicrosteps(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if v > 0xFF || validateMicrosteps(conf.DriverFamily, uint8(v)) != nil {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.Microsteps = uint8(v)
	return nil, errNone
}

// cmdSetFeature is the global byte store: sub-function in the low byte,
// value in the high byte. 0 = driver family, 1 = allow high-speed gear
// change, 2 = allow advanced hand-controller detection.
func cmdSetFeature(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	sub := uint8(v)
	val := uint8(v >> 8)
	switch sub {
	case 0:
		if val >= familyCount {
			return nil, synta.ErrInvalidValue
		}
		conf.DriverFamily = val
	case 1:
		conf.AllowHighSpeed = val != 0
	case 2:
		conf.AllowAdvancedHC = val != 0
	default:
		return nil, synta.ErrInvalidValue
	}
	return nil, errNone
}

func cmdSetAccelSpeed(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	idx := uint8(v)
	if idx >= AccelTableLength {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.AccelTable[ax][idx].Speed = uint16(v >> 8)
	a.Accel = conf.AccelTable[ax]
	a.MinSpeed = a.Accel.MinSpeed()
	return nil, errNone
}

func cmdSetAccelRepeats(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	idx := uint8(v)
	if idx >= AccelTableLength {
		return nil, synta.ErrInvalidValue
	}
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	conf.AccelTable[ax][idx].Repeats = uint8(v >> 8)
	a.Accel = conf.AccelTable[ax]
	return nil, errNone
}

func cmdGetAccelEntry(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v, code := parseConfigValue(payload)
	if code != errNone {
		return nil, code
	}
	idx := uint8(v)
	if idx >= AccelTableLength {
		return nil, synta.ErrInvalidValue
	}
	e := conf.AccelTable[ax][idx]
	return synta.FormatValue(uint32(e.Speed)|uint32(e.Repeats)<<16, 3), errNone
}

func cmdStoreConfig(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	if err := SaveConfig(MustEEPROM(), conf); err != nil {
		return nil, synta.ErrInvalidValue
	}
	return nil, errNone
}

func cmdQueryProgramming(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	v := uint32(0)
	if programmingMode {
		v = 1
	}
	return synta.FormatValue(v, 1), errNone
}

// cmdLeaveProgramming validates the RAM configuration and, if sound,
// rebuilds the motion state and opens the motion command set.
func cmdLeaveProgramming(ax Axis, a *MotorAxis, payload []byte) ([]byte, int) {
	if !bothStopped() {
		return nil, synta.ErrNotStopped
	}
	if err := conf.Validate(); err != nil {
		return nil, synta.ErrInvalidValue
	}
	InitMotion(conf)
	programmingMode = false
	return nil, errNone
}
