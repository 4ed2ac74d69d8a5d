package pattern

import "testing"

func TestEuclidMaskEightThree(t *testing.T) {
	t.Parallel()
	got := euclidMask(8, 3, 0)
	want := []bool{true, false, false, true, false, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mask(8,3,0)[%d] = %v, want %v (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestEuclidMaskPulseCount(t *testing.T) {
	t.Parallel()
	for steps := 1; steps <= 16; steps++ {
		for pulses := 0; pulses <= steps; pulses++ {
			mask := euclidMask(steps, pulses, 0)
			n := 0
			for _, on := range mask {
				if on {
					n++
				}
			}
			if n != pulses {
				t.Fatalf("mask(%d,%d,0) has %d onsets, want %d", steps, pulses, n, pulses)
			}
		}
	}
}

func TestEuclidMaskRotation(t *testing.T) {
	t.Parallel()
	base := euclidMask(8, 3, 0)
	rot := euclidMask(8, 3, 1)
	for i := range rot {
		if rot[i] != base[(i+1)%8] {
			t.Fatalf("rotation mismatch at %d: %v vs %v", i, rot, base)
		}
	}

	// Full rotation is identity.
	full := euclidMask(8, 3, 8)
	for i := range full {
		if full[i] != base[i] {
			t.Fatalf("mask(8,3,8) differs from mask(8,3,0) at %d", i)
		}
	}
}
