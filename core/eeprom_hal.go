package core

// EEPROMDriver is the abstract persistent-store interface the config
// layer uses. Platform code supplies a real EEPROM or a file-backed image.
type EEPROMDriver interface {
	ReadByte(addr uint16) byte
	WriteByte(addr uint16, value byte)

	// Sync flushes pending writes to the backing store
	Sync() error
}

var eepromDriver EEPROMDriver

// SetEEPROMDriver is called by target-specific code to register its driver.
func SetEEPROMDriver(d EEPROMDriver) {
	eepromDriver = d
}

// MustEEPROM returns the configured driver or panics if missing.
func MustEEPROM() EEPROMDriver {
	if eepromDriver == nil {
		panic("EEPROM driver not configured")
	}
	return eepromDriver
}

// WatchdogDriver arms the hardware watchdog. The core never feeds it: the
// R command arms a short timeout and lets it bite, which is how the host
// resets the controller.
type WatchdogDriver interface {
	Arm(timeoutMs uint32)
}

var watchdogDriver WatchdogDriver

// SetWatchdogDriver registers the platform watchdog.
func SetWatchdogDriver(d WatchdogDriver) {
	watchdogDriver = d
}
