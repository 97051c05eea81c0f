package core

import "testing"

func TestRateTableSumMatchesIdeal(t *testing.T) {
	for _, bVal := range []uint32{32000, 40000, 48000, 50000, 61000} {
		table := BuildRateTable(bVal)

		want := (uint64(DistributionLength)*TimerFreq + uint64(bVal)/2) / uint64(bVal)
		var sum uint64
		for _, p := range table {
			sum += uint64(p)
		}
		if sum != want {
			t.Errorf("bVal=%d: period sum = %d, want %d", bVal, sum, want)
		}

		minP, maxP := table[0], table[0]
		for _, p := range table {
			if p < minP {
				minP = p
			}
			if p > maxP {
				maxP = p
			}
			if p < PeriodMin || p > PeriodMax {
				t.Errorf("bVal=%d: period %d out of range", bVal, p)
			}
		}
		if maxP-minP > 1 {
			t.Errorf("bVal=%d: slot spread %d, dithering must stay within one tick", bVal, maxP-minP)
		}
	}
}

func TestRateTableRemainderSpread(t *testing.T) {
	// 32·8e6/61000 rounds to 4197 = 32·131 + 5: five slots carry the
	// extra tick.
	table := BuildRateTable(61000)
	counts := map[uint16]int{}
	for _, p := range table {
		counts[p]++
	}
	if counts[131] != 27 || counts[132] != 5 {
		t.Errorf("remainder spread = %v, want 27 slots of 131 and 5 of 132", counts)
	}
}

func TestRateTableClampsSlowRates(t *testing.T) {
	// Divisor so small the ideal period exceeds the 16-bit timer.
	table := BuildRateTable(100)
	for i, p := range table {
		if p != PeriodMax {
			t.Fatalf("slot %d = %d, want clamp to %d", i, p, PeriodMax)
		}
	}
}

func TestRateTableClampsFastRates(t *testing.T) {
	// Divisor so large the ideal period drops below the ISR floor.
	table := BuildRateTable(3000000)
	for i, p := range table {
		if p != PeriodMin {
			t.Fatalf("slot %d = %d, want clamp to %d", i, p, PeriodMin)
		}
	}
}

func TestRateTableZeroDivisor(t *testing.T) {
	table := BuildRateTable(0)
	for i, p := range table {
		if p != PeriodMax {
			t.Fatalf("slot %d = %d, want %d for a zero divisor", i, p, PeriodMax)
		}
	}
}
