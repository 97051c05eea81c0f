package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	e := newTestEEPROM()

	cfg := DefaultConfig()
	cfg.Axis[RA].AVal = 0x123456
	cfg.Axis[RA].BVal = 40000
	cfg.Axis[DC].SVal = 0x00BEEF
	cfg.Axis[DC].Reverse = true
	cfg.Axis[RA].SiderealIVal = 998
	cfg.Axis[DC].NormalGotoSpeed = 24
	cfg.Microsteps = 32
	cfg.AllowHighSpeed = false
	cfg.AccelTable[DC][2] = AccelEntry{Speed: 260, Repeats: 9}

	require.NoError(t, SaveConfig(e, cfg))

	loaded, err := LoadConfig(e)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsBlankEEPROM(t *testing.T) {
	e := newTestEEPROM()
	_, err := LoadConfig(e)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestLoadRejectsCorruptMagic(t *testing.T) {
	e := newTestEEPROM()
	require.NoError(t, SaveConfig(e, DefaultConfig()))

	e.WriteByte(3, 'x')
	_, err := LoadConfig(e)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestLoadValidatesStoredImage(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"driver family", func(c *Config) { c.DriverFamily = 9 }, ErrBadDriver},
		{"microsteps", func(c *Config) { c.Microsteps = 3 }, ErrBadMicrostep},
		{"498x microstep cap", func(c *Config) { c.DriverFamily = FamilyA498x; c.Microsteps = 32 }, ErrBadMicrostep},
		{"sidereal too slow", func(c *Config) { c.Axis[RA].SiderealIVal = 1201 }, ErrBadSidereal},
		{"sidereal too fast", func(c *Config) { c.Axis[DC].SiderealIVal = 100 }, ErrBadSidereal},
		{"goto speed", func(c *Config) { c.Axis[RA].NormalGotoSpeed = 0 }, ErrBadGotoSpeed},
		{"accel monotone", func(c *Config) { c.AccelTable[RA][4].Speed = 900 }, ErrBadAccelTable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEEPROM()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			require.NoError(t, SaveConfig(e, cfg))

			_, err := LoadConfig(e)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
