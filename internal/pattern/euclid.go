package pattern

// euclidMask distributes pulses onsets as evenly as possible over steps
// slots (Bresenham bucket distribution) and rotates the mask left by
// rotation positions. euclidMask(8,3,0) is 10010010.
func euclidMask(steps, pulses, rotation int) []bool {
	mask := make([]bool, steps)
	if steps <= 0 || pulses <= 0 {
		return mask
	}
	if pulses > steps {
		pulses = steps
	}
	// Slot i fires when the bucket i*pulses wraps past a multiple of
	// steps, i.e. (i*pulses) mod steps < pulses. This yields exactly
	// pulses onsets with slot 0 always active.
	for i := 0; i < steps; i++ {
		if (i*pulses)%steps < pulses {
			mask[i] = true
		}
	}
	if r := ((rotation % steps) + steps) % steps; r != 0 {
		rotated := make([]bool, steps)
		for i := 0; i < steps; i++ {
			rotated[i] = mask[(i+r)%steps]
		}
		mask = rotated
	}
	return mask
}
