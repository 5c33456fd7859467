package gpio

// directionLevels maps a command to the DIR1/DIR2 levels:
// negative reverses, positive drives forward, zero releases both.
func directionLevels(cmd float64) (dir1, dir2 int) {
	switch {
	case cmd < 0:
		return 0, 1
	case cmd > 0:
		return 1, 0
	default:
		return 0, 0
	}
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
