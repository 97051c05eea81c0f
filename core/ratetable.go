package core

// The axis timers have 16-bit periods counted at TimerFreq. A single
// 16-bit period quantises the sidereal rate by up to ~0.3%, which smears
// stars over a long exposure. Instead of one period the engine cycles
// through a 32-slot table whose entries differ by at most one tick and
// whose sum equals the rounded ideal total, cutting the effective
// quantisation error by the table length.

const (
	// DistributionLength is the number of slots in the dithered period
	// table. Must stay a power of two: the engine masks the cursor.
	DistributionLength = 32

	// PeriodMin is the fastest (smallest) period a slot may hold. Below
	// this the capture ISR cannot complete before the next event.
	PeriodMin = 128

	// PeriodMax is the 16-bit timer ceiling.
	PeriodMax = 65535
)

// BuildRateTable converts the 24-bit sidereal divisor bVal into the
// 32-slot period table. The total of all slots is round(32·TimerFreq/bVal)
// with the remainder ticks spread at equally spaced offsets, so the
// long-term average step frequency matches the divisor exactly while no
// single slot is off by more than one tick.
func BuildRateTable(bVal uint32) [DistributionLength]uint16 {
	var table [DistributionLength]uint16
	if bVal == 0 {
		for i := range table {
			table[i] = PeriodMax
		}
		return table
	}

	total := (DistributionLength*TimerFreq + bVal/2) / bVal
	base := total / DistributionLength
	rem := total % DistributionLength

	for i := uint32(0); i < DistributionLength; i++ {
		p := base
		// Bresenham spread: slot i takes an extra tick when the running
		// remainder crosses a slot boundary.
		if (i+1)*rem/DistributionLength != i*rem/DistributionLength {
			p++
		}
		if p < PeriodMin {
			p = PeriodMin
		}
		if p > PeriodMax {
			p = PeriodMax
		}
		table[i] = uint16(p)
	}
	return table
}
