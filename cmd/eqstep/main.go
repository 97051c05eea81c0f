// Hosted firmware entry point. Runs the motion core against the
// simulation board, with the Synta link on a real serial port so EQMOD
// or a SynScan hand controller can drive it.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"eqstep/core"
	"eqstep/host/serial"
	"eqstep/synta"
	"eqstep/targets/sim"
)

var configPath = flag.String("config", "", "Path to the simulator config file")

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := loadRuntimeConfig(*configPath)
	if err != nil {
		log.Fatalw("config", "error", err)
	}

	board := sim.NewBoard()
	eeprom, err := sim.NewEEPROM(cfg.EEPROMPath)
	if err != nil {
		log.Fatalw("eeprom image", "error", err)
	}
	watchdog := &sim.Watchdog{}

	core.SetGPIODriver(board)
	core.SetEEPROMDriver(eeprom)
	core.SetWatchdogDriver(watchdog)
	core.SetTMCRegisterComm(&sim.TMCRecorder{})
	core.SetDebugWriter(func(s string) { log.Debug(s) })
	core.SetDebugEnabled(cfg.Debug)
	board.SetST4Handler(core.ST4PinChange)

	sup, err := core.Boot()
	if err != nil {
		log.Fatalw("boot", "error", err)
	}
	if core.InProgrammingMode() {
		log.Warn("no valid configuration: starting in programming mode")
	}

	port, err := serial.Open(serial.DefaultConfig(cfg.Device))
	if err != nil {
		log.Fatalw("serial", "device", cfg.Device, "error", err)
	}
	defer port.Close()
	log.Infow("listening", "device", cfg.Device)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	run(log, sup, port, watchdog, stop)
}

// runtimeConfig is the simulator-side configuration, distinct from the
// EEPROM-backed mount configuration the host programs over the wire.
type runtimeConfig struct {
	Device     string
	EEPROMPath string
	Debug      bool
}

func loadRuntimeConfig(path string) (*runtimeConfig, error) {
	v := viper.New()
	v.SetDefault("device", "/dev/ttyUSB0")
	v.SetDefault("eeprom", "eqstep-eeprom.bin")
	v.SetDefault("debug", false)
	v.SetEnvPrefix("eqstep")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &runtimeConfig{
		Device:     v.GetString("device"),
		EEPROMPath: v.GetString("eeprom"),
		Debug:      v.GetBool("debug"),
	}, nil
}

// run is the foreground loop: advance the simulated tick clock from the
// monotonic clock, pump serial bytes through the scanner and decoder, and
// let the supervisor dispatch capture events and deferred arms.
func run(log *zap.SugaredLogger, sup *core.Supervisor, port serial.Port, watchdog *sim.Watchdog, stop <-chan os.Signal) {
	var scanner synta.Scanner
	start := time.Now()
	buf := make([]byte, 64)
	armedAt := time.Time{}

	for {
		select {
		case <-stop:
			log.Info("shutting down")
			return
		default:
		}

		// 8 timer ticks per microsecond
		core.SetTime(uint32(time.Since(start).Microseconds() * (core.TimerFreq / 1000000)))
		sup.Poll()

		if watchdog.Armed {
			if armedAt.IsZero() {
				armedAt = time.Now()
				log.Warnw("watchdog armed", "timeout_ms", watchdog.TimeoutMs)
			} else if time.Since(armedAt) > time.Duration(watchdog.TimeoutMs)*time.Millisecond {
				log.Warn("watchdog bite: resetting")
				return
			}
		}

		if sup.SerialDisabled {
			// Basic hand-controller mode: nothing to serve, just pace
			// the loop.
			time.Sleep(time.Millisecond)
			continue
		}

		n, err := port.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		for _, c := range buf[:n] {
			pkt, bad := scanner.Feed(c)
			if bad {
				if _, err := port.Write(synta.ReplyError(synta.ErrInvalidChar)); err != nil {
					log.Errorw("serial write", "error", err)
				}
				continue
			}
			if pkt == nil {
				continue
			}
			resp := core.ProcessPacket(pkt)
			if _, err := port.Write(resp); err != nil {
				log.Errorw("serial write", "error", err)
			}
		}
	}
}
