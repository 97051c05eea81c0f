package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// AxisPins groups the output pins that drive one axis.
type AxisPins struct {
	Step   GPIOPin
	Dir    GPIOPin
	Enable GPIOPin    // active low
	Mode   [3]GPIOPin // microstep mode select (M0..M2)
}

// Pin assignment. ST4 inputs are active low with internal pull-ups; the
// IRQ pin doubles as the hand-controller detection line.
var (
	axisPins = [NumAxes]AxisPins{
		{Step: 2, Dir: 3, Enable: 4, Mode: [3]GPIOPin{5, 6, 7}},
		{Step: 8, Dir: 9, Enable: 10, Mode: [3]GPIOPin{11, 12, 13}},
	}

	ST4Pins = [NumAxes][2]GPIOPin{
		{14, 15}, // RA+ / RA-
		{16, 17}, // DC+ / DC-
	}

	ST4IRQPin GPIOPin = 18
)

// ConfigureIO claims every pin the motion core owns. Called once at boot.
func ConfigureIO() error {
	g := MustGPIO()
	for ax := range axisPins {
		p := &axisPins[ax]
		if err := g.ConfigureOutput(p.Step); err != nil {
			return err
		}
		if err := g.ConfigureOutput(p.Dir); err != nil {
			return err
		}
		if err := g.ConfigureOutput(p.Enable); err != nil {
			return err
		}
		// Drivers disabled until the host enables them
		if err := g.SetPin(p.Enable, true); err != nil {
			return err
		}
		for _, m := range p.Mode {
			if err := g.ConfigureOutput(m); err != nil {
				return err
			}
		}
	}
	for ax := range ST4Pins {
		for _, pin := range ST4Pins[ax] {
			if err := g.ConfigureInputPullUp(pin); err != nil {
				return err
			}
		}
	}
	return g.ConfigureInputPullUp(ST4IRQPin)
}
