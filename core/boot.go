package core

// Boot brings the motion core up from the persistent store: claim the
// pins, load and validate configuration, build the motion state and the
// command registry, and probe the hand-controller port once.
//
// A bad or missing EEPROM image leaves the firmware in programming mode
// with defaults in RAM: motion commands answer with error packets until
// the host writes a sound configuration and issues the leave command.
func Boot() (*Supervisor, error) {
	if err := ConfigureIO(); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(MustEEPROM())
	if err != nil {
		DebugPrintln("[BOOT] config: " + err.Error())
		cfg = DefaultConfig()
		SetProgrammingMode(true)
	} else {
		SetProgrammingMode(false)
	}
	SetActiveConfig(cfg)
	InitMotion(cfg)
	InitSyntaCommands()

	sup := NewSupervisor()
	if !programmingMode {
		sup.ForceProbe()
	}
	return sup, nil
}
